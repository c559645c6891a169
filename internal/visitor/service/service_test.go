package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// racingStore reports a miss on the first phone lookup so Create hits the
// unique key, as when two requests register one phone at once.
type racingStore struct {
	*store.InMemory
	missed bool
}

func (r *racingStore) FindByPhone(ctx context.Context, phone string) (*models.Visitor, error) {
	if !r.missed {
		r.missed = true
		return nil, sentinel.ErrNotFound
	}
	return r.InMemory.FindByPhone(ctx, phone)
}

func TestFindOrCreate(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := New(store.NewInMemory(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	first, err := svc.FindOrCreate(ctx, "9876543210", "Test", "")
	require.NoError(t, err)

	t.Run("same phone returns the same visitor with the new name", func(t *testing.T) {
		again, err := svc.FindOrCreate(ctx, "9876543210", "Test Kumar", "test@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "Test Kumar", again.Name)

		stored, err := svc.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", stored.Email)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.FindOrCreate(ctx, "123", "Test", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = svc.FindOrCreate(ctx, "9876543210", "", "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown visitor", func(t *testing.T) {
		_, err := svc.Get(ctx, id.NewVisitorID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.True(t, dErrors.HasCode(svc.SetBlacklisted(ctx, id.NewVisitorID(), true), dErrors.CodeNotFound))
	})
}

func TestFindOrCreate_LostRace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewInMemory()
	existing, err := models.NewVisitor(id.NewVisitorID(), "9876543210", "Test", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, mem.Create(ctx, existing))

	svc := New(&racingStore{InMemory: mem})
	got, err := svc.FindOrCreate(ctx, "9876543210", "Test", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
}
