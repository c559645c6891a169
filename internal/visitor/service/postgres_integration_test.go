//go:build integration

package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/service"
	"gatehouse/internal/visitor/store"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/requestcontext"
	"gatehouse/pkg/testutil/containers"
)

// lateStore misses the first phone lookup, as if another request inserted
// the same phone between the lookup and the insert.
type lateStore struct {
	*store.PostgresStore
	missed bool
}

func (l *lateStore) FindByPhone(ctx context.Context, phone string) (*models.Visitor, error) {
	if !l.missed {
		l.missed = true
		return nil, sentinel.ErrNotFound
	}
	return l.PostgresStore.FindByPhone(ctx, phone)
}

type FindOrCreateTxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	tx       *txcontext.SQLRunner
	ctx      context.Context
}

func TestFindOrCreateTxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(FindOrCreateTxSuite))
}

func (s *FindOrCreateTxSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.tx = txcontext.NewSQLRunner(s.postgres.DB)
}

func (s *FindOrCreateTxSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "visits", "visitors"))
}

func (s *FindOrCreateTxSuite) newService(st service.Store) *service.Service {
	return service.New(st, service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func (s *FindOrCreateTxSuite) TestSamePhoneTwiceInOneTx() {
	svc := s.newService(store.NewPostgres(s.postgres.DB))

	var first, second *models.Visitor
	err := s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
		var err error
		if first, err = svc.FindOrCreate(ctx, "9876543210", "Ravi", ""); err != nil {
			return err
		}
		second, err = svc.FindOrCreate(ctx, "9876543210", "Ravi Kumar", "")
		return err
	})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("Ravi Kumar", second.Name)
}

func (s *FindOrCreateTxSuite) TestLostInsertRaceRecoversInsideTx() {
	pg := store.NewPostgres(s.postgres.DB)
	existing, err := models.NewVisitor(id.NewVisitorID(), "9876543210", "Ravi", "", requestcontext.Now(s.ctx))
	s.Require().NoError(err)
	s.Require().NoError(pg.Create(s.ctx, existing))

	svc := s.newService(&lateStore{PostgresStore: pg})
	var got *models.Visitor
	err = s.tx.RunInTx(s.ctx, func(ctx context.Context) error {
		var err error
		if got, err = svc.FindOrCreate(ctx, "9876543210", "Ravi", ""); err != nil {
			return err
		}
		// the transaction must still accept statements after the conflict
		_, err = pg.FindByID(ctx, got.ID)
		return err
	})
	s.Require().NoError(err)
	s.Equal(existing.ID, got.ID)
}
