// Package service keeps the visitor registry: one visitor per phone number,
// shared by invitations, walk-ins and the blacklist.
package service

import (
	"context"
	"errors"
	"log/slog"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, v *models.Visitor) error
	FindByID(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
	FindByPhone(ctx context.Context, phone string) (*models.Visitor, error)
	Update(ctx context.Context, v *models.Visitor) error
	SetBlacklisted(ctx context.Context, visitorID id.VisitorID, flag bool) error
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

// FindOrCreate returns the visitor registered under phone, creating it when
// missing. An existing visitor takes the new name, and the new email when
// one is given.
func (s *Service) FindOrCreate(ctx context.Context, phone, name, email string) (*models.Visitor, error) {
	if err := models.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	existing, err := s.store.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, name, email)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up visitor")
	}

	v, err := models.NewVisitor(id.NewVisitorID(), phone, name, email, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, v); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create visitor")
		}
		// lost a race on the phone key
		existing, err = s.store.FindByPhone(ctx, phone)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up visitor")
		}
		return s.refresh(ctx, existing, name, email)
	}
	s.logger.DebugContext(ctx, "visitor registered",
		"visitor_id", v.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return v, nil
}

func (s *Service) refresh(ctx context.Context, v *models.Visitor, name, email string) (*models.Visitor, error) {
	if !v.Refresh(name, email, requestcontext.Now(ctx)) {
		return v, nil
	}
	if err := s.store.Update(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visitor")
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	v, err := s.store.FindByID(ctx, visitorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Visitor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visitor")
	}
	return v, nil
}

// SetBlacklisted updates the cached "banned somewhere" flag.
func (s *Service) SetBlacklisted(ctx context.Context, visitorID id.VisitorID, flag bool) error {
	if err := s.store.SetBlacklisted(ctx, visitorID, flag); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Visitor not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visitor")
	}
	return nil
}
