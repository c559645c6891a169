// Package service projects visits into the gate dashboard: headline counts,
// the emergency muster and a host's pending requests.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/visit/models"
	visitservice "gatehouse/internal/visit/service"
	"gatehouse/internal/visit/store"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

const (
	MusterLimit     = 500
	MyRequestsLimit = 20
)

type Store interface {
	List(ctx context.Context, f store.Filter) ([]*models.Visit, error)
	CountDistinctVisitorsBetween(ctx context.Context, societyID *id.SocietyID, from, to time.Time) (int, error)
	CountByStatus(ctx context.Context, societyID *id.SocietyID, status models.Status) (int, error)
}

// Describer attaches visitor and host names to visits.
type Describer interface {
	Describe(ctx context.Context, visits []*models.Visit) ([]*visitservice.Detail, error)
}

type AuditLogger interface {
	LogAdminAction(ctx context.Context, actor identity.Principal, action string, details map[string]any)
}

type Stats struct {
	VisitorsToday    int `json:"visitors_today"`
	PendingApprovals int `json:"pending_approvals"`
	CheckedIn        int `json:"checked_in"`
}

// MusterEntry is one person currently inside.
type MusterEntry struct {
	VisitorName  string    `json:"visitor_name"`
	VisitorPhone string    `json:"visitor_phone"`
	HostName     string    `json:"host_name"`
	Purpose      string    `json:"purpose"`
	CheckInTime  time.Time `json:"checkin_time"`
}

type Service struct {
	store    Store
	describe Describer
	audit    AuditLogger
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func New(store Store, describe Describer, opts ...Option) *Service {
	s := &Service{store: store, describe: describe, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope returns the society an actor's dashboard covers. Platform operators
// without a society see every society.
func scope(actor identity.Principal) (*id.SocietyID, error) {
	if !actor.HasSociety() && actor.Can(identity.CapManageAllSocieties) {
		return nil, nil
	}
	society, err := actor.RequireSociety()
	if err != nil {
		return nil, err
	}
	return &society, nil
}

// Stats counts today's distinct visitors (by visit creation, UTC day), pending
// approvals and people inside. The counts are read concurrently.
func (s *Service) Stats(ctx context.Context, actor identity.Principal) (*Stats, error) {
	society, err := scope(actor)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountDistinctVisitorsBetween(gctx, society, dayStart, dayStart.AddDate(0, 0, 1))
		stats.VisitorsToday = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(gctx, society, models.StatusPending)
		stats.PendingApprovals = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(gctx, society, models.StatusCheckedIn)
		stats.CheckedIn = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard stats")
	}
	return &stats, nil
}

// Muster lists everyone checked in, for emergency headcount. format is only
// recorded in the audit trail.
func (s *Service) Muster(ctx context.Context, actor identity.Principal, format string) ([]MusterEntry, error) {
	if err := actor.Require(identity.CapGateOperations); err != nil {
		return nil, err
	}
	society, err := scope(actor)
	if err != nil {
		return nil, err
	}
	visits, err := s.store.List(ctx, store.Filter{SocietyID: society, Status: models.StatusCheckedIn, Limit: MusterLimit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load muster")
	}
	details, err := s.describe.Describe(ctx, visits)
	if err != nil {
		return nil, err
	}
	out := make([]MusterEntry, 0, len(details))
	for _, d := range details {
		e := MusterEntry{
			VisitorName:  d.VisitorName,
			VisitorPhone: d.VisitorPhone,
			HostName:     d.HostName,
			Purpose:      d.Purpose,
		}
		if d.ActualArrival != nil {
			e.CheckInTime = *d.ActualArrival
		}
		out = append(out, e)
	}
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "muster_export", map[string]any{"format": format, "count": len(out)})
	}
	s.logger.InfoContext(ctx, "muster read",
		"count", len(out),
		"format", format,
		"request_id", requestcontext.RequestID(ctx),
	)
	return out, nil
}

// MyRequests returns the visits waiting on the actor's approval, newest first.
func (s *Service) MyRequests(ctx context.Context, actor identity.Principal) ([]*visitservice.Detail, error) {
	if err := actor.Require(identity.CapHostVisits); err != nil {
		return nil, err
	}
	host := actor.UserID
	visits, err := s.store.List(ctx, store.Filter{HostID: &host, Status: models.StatusPending, Limit: MyRequestsLimit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending requests")
	}
	return s.describe.Describe(ctx, visits)
}
