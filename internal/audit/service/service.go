// Package service records admin actions. Recording is best effort: callers
// never see a failure, it is logged instead.
package service

import (
	"context"
	"log/slog"
	"maps"

	"gatehouse/internal/audit/models"
	identity "gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

type Store interface {
	Append(ctx context.Context, e *models.Entry) error
	List(ctx context.Context, societyID *id.SocietyID, limit int) ([]*models.Entry, error)
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

// LogAdminAction appends an entry when actor holds the admin role and is a
// no-op for everyone else. The endpoint comes from the request context.
func (s *Service) LogAdminAction(ctx context.Context, actor identity.Principal, action string, details map[string]any) {
	if !actor.IsAdmin() {
		return
	}
	method, endpoint := requestcontext.Endpoint(ctx)
	entry := &models.Entry{
		ID:        id.NewAuditLogID(),
		UserID:    actor.UserID,
		Action:    action,
		Endpoint:  endpoint,
		Method:    method,
		Details:   maps.Clone(details),
		CreatedAt: requestcontext.Now(ctx),
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if actor.HasSociety() {
		society := actor.SocietyID
		entry.SocietyID = &society
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record admin action",
			"action", action,
			"user_id", actor.UserID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// List returns recent entries of the admin's society. Platform operators see
// every society.
func (s *Service) List(ctx context.Context, actor identity.Principal, limit int) ([]*models.Entry, error) {
	var scope *id.SocietyID
	if !actor.Can(identity.CapManageAllSocieties) {
		if err := actor.Require(identity.CapManageSociety); err != nil {
			return nil, err
		}
		society, err := actor.RequireSociety()
		if err != nil {
			return nil, err
		}
		scope = &society
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	entries, err := s.store.List(ctx, scope, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit logs")
	}
	return entries, nil
}
