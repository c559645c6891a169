// Package service stores in-app notifications for hosts. Delivery is
// fire-and-forget for callers: failures are logged, never returned.
package service

import (
	"context"
	"errors"
	"log/slog"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/notification/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// ListLimit caps a notification listing.
const ListLimit = 100

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify records a notification for userID. It joins the caller's unit of
// work when one is open.
func (s *Service) Notify(ctx context.Context, userID id.UserID, kind, title, body string, metadata map[string]any) {
	n := models.New(id.NewNotificationID(), userID, kind, title, body, metadata, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to store notification",
			"user_id", userID,
			"type", kind,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// List returns the actor's own notifications, newest first.
func (s *Service) List(ctx context.Context, actor identity.Principal, unreadOnly bool) ([]*models.Notification, error) {
	if err := actor.Require(identity.CapHostVisits); err != nil {
		return nil, err
	}
	out, err := s.store.ListByUser(ctx, actor.UserID, unreadOnly, ListLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, actor identity.Principal, notificationID id.NotificationID) error {
	if err := actor.Require(identity.CapHostVisits); err != nil {
		return err
	}
	err := s.store.MarkRead(ctx, actor.UserID, notificationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Notification not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
