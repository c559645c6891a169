// Package service records gate consent. Client address and user agent come
// from the request context, so the visit engine only names the visit.
package service

import (
	"context"
	"log/slog"

	"gatehouse/internal/consent/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, l *models.Log) error
	ListByVisit(ctx context.Context, visitID id.VisitID) ([]*models.Log, error)
}

type Recorder struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends a data-collection consent row for the visit. It joins the
// caller's unit of work when one is open.
func (r *Recorder) Record(ctx context.Context, visitorID id.VisitorID, visitID id.VisitID) error {
	l := models.NewDataCollection(id.NewConsentLogID(), visitorID, visitID,
		requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx), requestcontext.Now(ctx))
	if err := r.store.Append(ctx, l); err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "consent recorded",
		"visit_id", visitID,
		"device", l.Device,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ForVisit returns the consent trail of a visit, oldest first.
func (r *Recorder) ForVisit(ctx context.Context, visitID id.VisitID) ([]*models.Log, error) {
	return r.store.ListByVisit(ctx, visitID)
}
