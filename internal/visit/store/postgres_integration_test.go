//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/identity/store/user"
	tenantmodels "gatehouse/internal/tenant/models"
	"gatehouse/internal/tenant/store/society"
	"gatehouse/internal/visit/models"
	"gatehouse/internal/visit/store"
	visitormodels "gatehouse/internal/visitor/models"
	visitorstore "gatehouse/internal/visitor/store"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/testutil/containers"
)

type PostgresVisitStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.PostgresStore
	societyID id.SocietyID
	hostID    id.UserID
	visitorID id.VisitorID
	now       time.Time
}

func TestPostgresVisitStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVisitStoreSuite))
}

func (s *PostgresVisitStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresVisitStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "visits", "visitors", "users", "buildings", "societies"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)

	soc, err := tenantmodels.NewSociety(id.NewSocietyID(), "Visit Store", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(society.NewPostgres(s.postgres.DB).CreateIfSlugAvailable(ctx, soc))

	host, err := identity.NewUser(id.NewUserID(), "host@example.com", "hash", "Host", identity.RoleResident, s.now)
	s.Require().NoError(err)
	host.SocietyID = soc.ID
	s.Require().NoError(user.NewPostgres(s.postgres.DB).Create(ctx, host))

	visitor, err := visitormodels.NewVisitor(id.NewVisitorID(), "9876543210", "Guest", "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(visitorstore.NewPostgres(s.postgres.DB).Create(ctx, visitor))

	s.societyID, s.hostID, s.visitorID = soc.ID, host.ID, visitor.ID
}

func (s *PostgresVisitStoreSuite) TestRoundTripAndTokens() {
	ctx := context.Background()
	expected := s.now.Add(time.Hour)
	v := models.NewInvitation(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "Dinner", &expected,
		"123456", "VMS-0123456789AB", s.now.Add(30*time.Minute), s.now)
	s.Require().NoError(s.store.Create(ctx, v))

	found, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(s.societyID, found.SocietyID, "society comes from the host")
	s.Equal(expected, *found.ExpectedArrival)
	s.Equal("VMS-0123456789AB", found.QRCode)

	byOTP, err := s.store.FindByOTP(ctx, "123456", s.now)
	s.Require().NoError(err)
	s.Equal(v.ID, byOTP.ID)

	_, err = s.store.FindByQR(ctx, "VMS-0123456789AB", s.now.Add(30*time.Minute))
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(found.CheckIn(s.now, "https://img"))
	s.Require().NoError(s.store.Update(ctx, found))
	_, err = s.store.FindByOTP(ctx, "123456", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)

	dup := models.NewInvitation(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "", nil,
		"654321", "VMS-0123456789AB", s.now.Add(time.Hour), s.now)
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresVisitStoreSuite) TestTakenQRLeavesTxUsable() {
	ctx := context.Background()
	taken := models.NewInvitation(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "", nil,
		"111111", "VMS-AAAAAAAAAAAA", s.now.Add(30*time.Minute), s.now)
	s.Require().NoError(s.store.Create(ctx, taken))

	retry := models.NewInvitation(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "", nil,
		"222222", "VMS-BBBBBBBBBBBB", s.now.Add(30*time.Minute), s.now)
	err := txcontext.NewSQLRunner(s.postgres.DB).RunInTx(ctx, func(ctx context.Context) error {
		clash := models.NewInvitation(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "", nil,
			"222222", "VMS-AAAAAAAAAAAA", s.now.Add(30*time.Minute), s.now)
		s.Require().ErrorIs(s.store.Create(ctx, clash), sentinel.ErrConflict)
		return s.store.Create(ctx, retry)
	})
	s.Require().NoError(err)

	found, err := s.store.FindByQR(ctx, "VMS-BBBBBBBBBBBB", s.now)
	s.Require().NoError(err)
	s.Equal(retry.ID, found.ID)
}

func (s *PostgresVisitStoreSuite) TestWalkInsStoreNullTokens() {
	ctx := context.Background()
	guard := id.NewUserID()
	for i := 0; i < 2; i++ {
		w := models.NewWalkIn(id.NewVisitID(), s.visitorID, s.hostID, s.societyID, "", guard, s.now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Create(ctx, w))
	}

	list, err := s.store.List(ctx, store.Filter{SocietyID: &s.societyID, Status: models.StatusPending, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.True(list[0].IsWalkIn())
	s.Equal(guard, *list[0].Metadata.GuardID)
	s.True(list[0].CreatedAt.After(list[1].CreatedAt))

	n, err := s.store.CountByStatus(ctx, &s.societyID, models.StatusPending)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.CountDistinctVisitorsBetween(ctx, nil, s.now.Add(-time.Minute), s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(1, n)
}
