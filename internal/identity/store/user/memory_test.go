package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store    *InMemory
	ctx      context.Context
	society  id.SocietyID
	building id.BuildingID
	clock    time.Time
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.society = id.NewSocietyID()
	s.building = id.NewBuildingID()
	s.clock = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryUserStoreSuite) add(email, name string, role models.Role, flat string) *models.User {
	s.clock = s.clock.Add(time.Minute)
	u, err := models.NewUser(id.NewUserID(), email, "hash", name, role, s.clock)
	s.Require().NoError(err)
	u.SocietyID = s.society
	u.BuildingID = &s.building
	u.FlatNumber = flat
	s.Require().NoError(s.store.Create(s.ctx, u))
	return u
}

func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	u := s.add("Jane.Doe@Example.com", "Jane Doe", models.RoleResident, "A-101")

	s.Run("by id", func() {
		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u.Email, found.Email)
	})

	s.Run("by email, case-insensitively", func() {
		found, err := s.store.FindByEmail(s.ctx, "JANE.DOE@example.com")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate email conflicts", func() {
		dup, err := models.NewUser(id.NewUserID(), "jane.doe@example.com", "hash", "Other", models.RoleGuard, s.clock)
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})
}

func (s *InMemoryUserStoreSuite) TestHostQueries() {
	first := s.add("first@example.com", "Zara", models.RoleResident, "B-202")
	second := s.add("second@example.com", "Amit", models.RoleAdmin, " b-202 ")
	s.add("guard@example.com", "Guard", models.RoleGuard, "B-202")
	inactive := s.add("gone@example.com", "Gone", models.RoleResident, "B-202")
	inactive.IsActive = false
	s.store.users[inactive.ID].IsActive = false

	s.Run("flat match is trimmed, case-insensitive and oldest first", func() {
		hosts, err := s.store.FindHostsByFlat(s.ctx, s.society, s.building, "B-202")
		s.Require().NoError(err)
		s.Require().Len(hosts, 2)
		s.Equal(first.ID, hosts[0].ID)
		s.Equal(second.ID, hosts[1].ID)
	})

	s.Run("other building yields nothing", func() {
		hosts, err := s.store.FindHostsByFlat(s.ctx, s.society, id.NewBuildingID(), "B-202")
		s.Require().NoError(err)
		s.Empty(hosts)
	})

	s.Run("search orders by name and honours limit", func() {
		hosts, err := s.store.SearchHosts(s.ctx, s.society, "", 0)
		s.Require().NoError(err)
		s.Require().Len(hosts, 2)
		s.Equal("Amit", hosts[0].FullName)

		hosts, err = s.store.SearchHosts(s.ctx, s.society, "zar", 1)
		s.Require().NoError(err)
		s.Require().Len(hosts, 1)
		s.Equal(first.ID, hosts[0].ID)
	})

	s.Run("list by society filters role", func() {
		guards, err := s.store.ListBySociety(s.ctx, s.society, models.RoleGuard)
		s.Require().NoError(err)
		s.Len(guards, 1)
		all, err := s.store.ListBySociety(s.ctx, s.society, "")
		s.Require().NoError(err)
		s.Len(all, 3)
	})
}
