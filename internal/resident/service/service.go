// Package service resolves the residents who host visits: by id within a
// society, by building and flat for walk-ins, and by search for the gate.
package service

import (
	"context"
	"errors"
	"log/slog"

	identity "gatehouse/internal/identity/models"
	tenantmodels "gatehouse/internal/tenant/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	FindHostsByFlat(ctx context.Context, societyID id.SocietyID, buildingID id.BuildingID, flat string) ([]*identity.User, error)
	SearchHosts(ctx context.Context, societyID id.SocietyID, q string, limit int) ([]*identity.User, error)
}

type Buildings interface {
	BuildingInSociety(ctx context.Context, buildingID id.BuildingID, societyID id.SocietyID) (*tenantmodels.Building, error)
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 200
)

type Service struct {
	users     UserStore
	buildings Buildings
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(users UserStore, buildings Buildings, opts ...Option) *Service {
	s := &Service{users: users, buildings: buildings, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Resident not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
	}
	return u, nil
}

// EnsureInSociety loads a user and checks it belongs to societyID.
func (s *Service) EnsureInSociety(ctx context.Context, userID id.UserID, societyID id.SocietyID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
	}
	if u == nil || u.SocietyID != societyID {
		return nil, dErrors.New(dErrors.CodeNotFound, "Resident not found or does not belong to your society")
	}
	return u, nil
}

func (s *Service) EnsureBuildingInSociety(ctx context.Context, buildingID id.BuildingID, societyID id.SocietyID) (*tenantmodels.Building, error) {
	return s.buildings.BuildingInSociety(ctx, buildingID, societyID)
}

// FindByBuildingAndFlat returns the active resident or admin registered on
// the flat. Flats are matched case-insensitively. When several accounts
// share a flat the oldest wins and the ambiguity is logged.
func (s *Service) FindByBuildingAndFlat(ctx context.Context, societyID id.SocietyID, buildingID id.BuildingID, flat string) (*identity.User, error) {
	notFound := dErrors.New(dErrors.CodeNotFound, "No resident found for this tower and flat. Check building and flat number.")
	if flat == "" {
		return nil, notFound
	}
	hosts, err := s.users.FindHostsByFlat(ctx, societyID, buildingID, flat)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up residents")
	}
	if len(hosts) == 0 {
		return nil, notFound
	}
	if len(hosts) > 1 {
		s.logger.WarnContext(ctx, "several residents share a flat; using the oldest account",
			"society_id", societyID,
			"building_id", buildingID,
			"flat_number", flat,
			"matches", len(hosts),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return hosts[0], nil
}

// List searches the active residents and admins of the actor's society by
// name, email or flat.
func (s *Service) List(ctx context.Context, actor identity.Principal, q string, limit int) ([]*identity.User, error) {
	if err := actor.Require(identity.CapGateOperations); err != nil {
		return nil, err
	}
	societyID, err := actor.RequireSociety()
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	users, err := s.users.SearchHosts(ctx, societyID, q, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list residents")
	}
	return users, nil
}
