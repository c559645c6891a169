package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/blacklist/models"
	id "gatehouse/pkg/domain"
)

type BlacklistStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestBlacklistStoreSuite(t *testing.T) {
	suite.Run(t, new(BlacklistStoreSuite))
}

func (s *BlacklistStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *BlacklistStoreSuite) add(visitor id.VisitorID, society id.SocietyID, at time.Time) *models.Entry {
	e, err := models.NewEntry(id.NewBlacklistID(), visitor, society, "reason", id.NewUserID(), at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, e))
	return e
}

func (s *BlacklistStoreSuite) TestSocietyScopedBan() {
	visitor := id.NewVisitorID()
	societyA, societyB := id.NewSocietyID(), id.NewSocietyID()
	s.add(visitor, societyA, time.Now())

	banned, err := s.store.IsBanned(s.ctx, visitor, societyA)
	s.Require().NoError(err)
	s.True(banned)

	banned, err = s.store.IsBanned(s.ctx, visitor, societyB)
	s.Require().NoError(err)
	s.False(banned)
}

func (s *BlacklistStoreSuite) TestGlobalBanSurvivesSocietyRemoval() {
	visitor := id.NewVisitorID()
	society := id.NewSocietyID()
	s.add(visitor, society, time.Now())
	s.Require().NoError(s.store.Create(s.ctx, &models.Entry{
		ID: id.NewBlacklistID(), VisitorID: visitor, Reason: "legacy", IsActive: true, CreatedAt: time.Now(),
	}))

	n, err := s.store.DeactivateForSociety(s.ctx, visitor, society)
	s.Require().NoError(err)
	s.Equal(1, n)

	banned, err := s.store.IsBanned(s.ctx, visitor, society)
	s.Require().NoError(err)
	s.True(banned, "global entry still applies")

	active, err := s.store.HasAnyActive(s.ctx, visitor)
	s.Require().NoError(err)
	s.True(active)
}

func (s *BlacklistStoreSuite) TestListNewestFirst() {
	society := id.NewSocietyID()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	older := s.add(id.NewVisitorID(), society, base)
	newer := s.add(id.NewVisitorID(), society, base.Add(time.Hour))
	s.add(id.NewVisitorID(), id.NewSocietyID(), base)

	entries, err := s.store.ListActiveBySociety(s.ctx, society)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(newer.ID, entries[0].ID)
	s.Equal(older.ID, entries[1].ID)
}
