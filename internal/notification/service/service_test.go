package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/notification/models"
	"gatehouse/internal/notification/store"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

type brokenStore struct {
	*store.InMemory
}

func (b *brokenStore) Create(context.Context, *models.Notification) error {
	return errors.New("connection reset")
}

func host() identity.Principal {
	return identity.Principal{UserID: id.NewUserID(), SocietyID: id.NewSocietyID(), Roles: identity.NewRoleSet(identity.RoleResident)}
}

func TestNotifyAndList(t *testing.T) {
	svc := New(store.NewInMemory())
	alice, bob := host(), host()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	svc.Notify(requestcontext.WithTime(context.Background(), base), alice.UserID, models.KindWalkInPending, "Visitor at gate", "first", map[string]any{"visit_id": "v1"})
	svc.Notify(requestcontext.WithTime(context.Background(), base.Add(time.Minute)), alice.UserID, models.KindVisitorArrived, "Visitor checked in", "second", nil)
	svc.Notify(requestcontext.WithTime(context.Background(), base), bob.UserID, models.KindWalkInPending, "Visitor at gate", "other", nil)

	list, err := svc.List(context.Background(), alice, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Body)
	assert.Equal(t, "v1", list[1].Metadata["visit_id"])
	assert.NotNil(t, list[0].Metadata)

	t.Run("mark read", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(context.Background(), alice, list[0].ID))
		unread, err := svc.List(context.Background(), alice, true)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, "first", unread[0].Body)
	})

	t.Run("someone else's notification", func(t *testing.T) {
		err := svc.MarkRead(context.Background(), bob, list[1].ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
		assert.Equal(t, "Notification not found", err.Error())
	})

	t.Run("guards have no inbox", func(t *testing.T) {
		guard := identity.Principal{UserID: id.NewUserID(), Roles: identity.NewRoleSet(identity.RoleGuard)}
		_, err := svc.List(context.Background(), guard, false)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestNotifySwallowsStoreFailures(t *testing.T) {
	var logs bytes.Buffer
	svc := New(&brokenStore{InMemory: store.NewInMemory()}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), id.NewUserID(), models.KindVisitorArrived, "Visitor checked in", "x", nil)
	})
	assert.Contains(t, logs.String(), "failed to store notification")
	assert.Contains(t, logs.String(), "connection reset")
}
