package service

import (
	"context"
	"log/slog"

	"gatehouse/internal/blacklist/metrics"
	"gatehouse/internal/blacklist/models"
	identity "gatehouse/internal/identity/models"
	visitormodels "gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, e *models.Entry) error
	IsBanned(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (bool, error)
	DeactivateForSociety(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (int, error)
	HasAnyActive(ctx context.Context, visitorID id.VisitorID) (bool, error)
	ListActiveBySociety(ctx context.Context, societyID id.SocietyID) ([]*models.Entry, error)
}

// Visitors is the visitor registry.
type Visitors interface {
	FindOrCreate(ctx context.Context, phone, name, email string) (*visitormodels.Visitor, error)
	Get(ctx context.Context, visitorID id.VisitorID) (*visitormodels.Visitor, error)
	SetBlacklisted(ctx context.Context, visitorID id.VisitorID, flag bool) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditLogger interface {
	LogAdminAction(ctx context.Context, actor identity.Principal, action string, details map[string]any)
}

// Service is the per-society blacklist gate.
type Service struct {
	store    Store
	visitors Visitors
	tx       TxRunner
	audit    AuditLogger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func New(store Store, visitors Visitors, tx TxRunner, opts ...Option) *Service {
	s := &Service{store: store, visitors: visitors, tx: tx, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsBlacklisted reports whether the visitor is banned in the society, either
// by a society entry or by a legacy global one.
func (s *Service) IsBlacklisted(ctx context.Context, visitorID id.VisitorID, societyID id.SocietyID) (bool, error) {
	banned, err := s.store.IsBanned(ctx, visitorID, societyID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check blacklist")
	}
	if banned {
		s.metrics.IncrementHit()
	}
	return banned, nil
}

// Add bans a visitor from the actor's society.
func (s *Service) Add(ctx context.Context, actor identity.Principal, visitorID id.VisitorID, reason string) (*visitormodels.Visitor, error) {
	societyID, err := s.authorize(actor)
	if err != nil {
		return nil, err
	}
	var visitor *visitormodels.Visitor
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		visitor, txErr = s.add(ctx, actor, societyID, visitorID, reason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.afterAdd(ctx, actor, visitor, "blacklist_add")
	return visitor, nil
}

// AddByPhone registers the visitor when the phone is new, then bans it.
func (s *Service) AddByPhone(ctx context.Context, actor identity.Principal, phone, name, reason string) (*visitormodels.Visitor, error) {
	societyID, err := s.authorize(actor)
	if err != nil {
		return nil, err
	}
	var visitor *visitormodels.Visitor
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, txErr := s.visitors.FindOrCreate(ctx, phone, name, "")
		if txErr != nil {
			return txErr
		}
		visitor, txErr = s.add(ctx, actor, societyID, v.ID, reason)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.afterAdd(ctx, actor, visitor, "blacklist_add_by_phone")
	return visitor, nil
}

func (s *Service) add(ctx context.Context, actor identity.Principal, societyID id.SocietyID, visitorID id.VisitorID, reason string) (*visitormodels.Visitor, error) {
	visitor, err := s.visitors.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	banned, err := s.IsBlacklisted(ctx, visitorID, societyID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, dErrors.New(dErrors.CodeConflict, "Visitor is already blacklisted in this society")
	}
	entry, err := models.NewEntry(id.NewBlacklistID(), visitorID, societyID, reason, actor.UserID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add blacklist entry")
	}
	if err := s.visitors.SetBlacklisted(ctx, visitorID, true); err != nil {
		return nil, err
	}
	visitor.IsBlacklisted = true
	return visitor, nil
}

func (s *Service) afterAdd(ctx context.Context, actor identity.Principal, visitor *visitormodels.Visitor, action string) {
	s.metrics.IncrementAdded()
	s.logger.InfoContext(ctx, "visitor blacklisted",
		"visitor_id", visitor.ID,
		"society_id", actor.SocietyID,
		"user_id", actor.UserID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, action, map[string]any{
			"visitor_id":    visitor.ID.String(),
			"visitor_phone": visitor.Phone,
		})
	}
}

// Remove lifts the actor's society ban. The visitor's cached flag is cleared
// only when no other active entry remains anywhere.
func (s *Service) Remove(ctx context.Context, actor identity.Principal, visitorID id.VisitorID) (*visitormodels.Visitor, error) {
	societyID, err := s.authorize(actor)
	if err != nil {
		return nil, err
	}
	var visitor *visitormodels.Visitor
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		if visitor, txErr = s.visitors.Get(ctx, visitorID); txErr != nil {
			return txErr
		}
		n, txErr := s.store.DeactivateForSociety(ctx, visitorID, societyID)
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to remove blacklist entry")
		}
		if n == 0 {
			return dErrors.New(dErrors.CodeInvalidTransition, "Visitor is not blacklisted in this society")
		}
		stillBanned, txErr := s.store.HasAnyActive(ctx, visitorID)
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to check blacklist")
		}
		if !stillBanned {
			if txErr := s.visitors.SetBlacklisted(ctx, visitorID, false); txErr != nil {
				return txErr
			}
		}
		visitor.IsBlacklisted = stillBanned
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementRemoved()
	s.logger.InfoContext(ctx, "visitor removed from blacklist",
		"visitor_id", visitorID,
		"society_id", societyID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit != nil {
		s.audit.LogAdminAction(ctx, actor, "blacklist_remove", map[string]any{"visitor_id": visitorID.String()})
	}
	return visitor, nil
}

// List returns one row per visitor banned in the actor's society, most
// recently banned first.
func (s *Service) List(ctx context.Context, actor identity.Principal) ([]models.Listed, error) {
	societyID, err := s.authorize(actor)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListActiveBySociety(ctx, societyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list blacklist")
	}
	out := make([]models.Listed, 0, len(entries))
	seen := make(map[id.VisitorID]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.VisitorID]; dup {
			continue
		}
		seen[e.VisitorID] = struct{}{}
		visitor, err := s.visitors.Get(ctx, e.VisitorID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Listed{
			EntryID:       e.ID,
			VisitorID:     e.VisitorID,
			VisitorName:   visitor.Name,
			VisitorPhone:  visitor.Phone,
			Reason:        e.Reason,
			BlacklistedBy: e.CreatedBy,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) authorize(actor identity.Principal) (id.SocietyID, error) {
	if err := actor.Require(identity.CapGateOperations); err != nil {
		return id.SocietyID{}, err
	}
	return actor.RequireSociety()
}
