package society

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

type SocietyStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *SocietyStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestSocietyStoreSuite(t *testing.T) {
	suite.Run(t, new(SocietyStoreSuite))
}

func (s *SocietyStoreSuite) newSociety(name string) *models.Society {
	soc, err := models.NewSociety(id.SocietyID(uuid.New()), name, "", time.Now())
	s.Require().NoError(err)
	return soc
}

func (s *SocietyStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by id and slug", func() {
		soc := s.newSociety("Green Meadows")
		s.Require().NoError(s.store.CreateIfSlugAvailable(s.ctx, soc))

		found, err := s.store.FindByID(s.ctx, soc.ID)
		s.Require().NoError(err)
		s.Equal("Green Meadows", found.Name)

		found, err = s.store.FindBySlug(s.ctx, "green-meadows")
		s.Require().NoError(err)
		s.Equal(soc.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown id or slug", func() {
		_, err := s.store.FindByID(s.ctx, id.SocietyID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindBySlug(s.ctx, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned values are copies", func() {
		soc := s.newSociety("Copy Check")
		s.Require().NoError(s.store.CreateIfSlugAvailable(s.ctx, soc))
		soc.Name = "mutated"

		found, err := s.store.FindByID(s.ctx, soc.ID)
		s.Require().NoError(err)
		s.Equal("Copy Check", found.Name)
	})
}

func (s *SocietyStoreSuite) TestSlugUniqueness() {
	first := s.newSociety("Lake View")
	second := s.newSociety("Lake View")
	s.Require().NoError(s.store.CreateIfSlugAvailable(s.ctx, first))

	err := s.store.CreateIfSlugAvailable(s.ctx, second)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *SocietyStoreSuite) TestList() {
	for _, name := range []string{"Palm Grove", "Oak Residency", "Palm Heights"} {
		s.Require().NoError(s.store.CreateIfSlugAvailable(s.ctx, s.newSociety(name)))
	}

	all, err := s.store.List(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Oak Residency", all[0].Name)

	palms, err := s.store.List(s.ctx, "PALM", 0)
	s.Require().NoError(err)
	s.Len(palms, 2)

	limited, err := s.store.List(s.ctx, "", 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *SocietyStoreSuite) TestUpdate() {
	s.Run("persists status changes", func() {
		soc := s.newSociety("Update Test")
		s.Require().NoError(s.store.CreateIfSlugAvailable(s.ctx, soc))

		soc.ApplyDeactivation(time.Now())
		s.Require().NoError(s.store.Update(s.ctx, soc))

		found, err := s.store.FindByID(s.ctx, soc.ID)
		s.Require().NoError(err)
		s.Equal(models.SocietyStatusInactive, found.Status)
	})

	s.Run("returns ErrNotFound for unknown society", func() {
		err := s.store.Update(s.ctx, s.newSociety("Ghost"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
