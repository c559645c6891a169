//go:build integration

package society_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/tenant/models"
	"gatehouse/internal/tenant/store/society"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	txcontext "gatehouse/pkg/platform/tx"
	"gatehouse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *society.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = society.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "buildings", "users", "societies"))
}

func newTestSociety(name, slug string) *models.Society {
	soc, err := models.NewSociety(id.SocietyID(uuid.New()), name, slug, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		panic(err)
	}
	return soc
}

// Concurrent creates with one slug must yield exactly one row.
func (s *PostgresStoreSuite) TestConcurrentSlugConflict() {
	ctx := context.Background()
	const goroutines = 30

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfSlugAvailable(ctx, newTestSociety("Race Towers", "race-towers"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	soc := newTestSociety("Sunrise Towers", "")
	soc.City = "Pune"
	s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, soc))

	found, err := s.store.FindBySlug(ctx, "sunrise-towers")
	s.Require().NoError(err)
	s.Equal(soc.ID, found.ID)
	s.Equal("Pune", found.City)
	s.Equal(models.SocietyStatusActive, found.Status)

	listed, err := s.store.List(ctx, "sunrise", 10)
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *PostgresStoreSuite) TestCreateRolledBackWithTransaction() {
	ctx := context.Background()
	runner := txcontext.NewSQLRunner(s.postgres.DB)
	soc := newTestSociety("Rollback Court", "")

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.CreateIfSlugAvailable(ctx, soc))
		return errors.New("abort")
	})
	s.Require().Error(err)

	_, err = s.store.FindByID(ctx, soc.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
