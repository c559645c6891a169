package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/consent/models"
	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	visitservice "gatehouse/internal/visit/service"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service reads the consent trail of a visit.
type Service interface {
	ForVisit(ctx context.Context, visitID id.VisitID) ([]*models.Log, error)
}

// Visits authorizes access to a visit before its consent rows are shown.
type Visits interface {
	Get(ctx context.Context, actor identity.Principal, visitID id.VisitID) (*visitservice.Detail, error)
}

type Handler struct {
	consent Service
	visits  Visits
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(consent Service, visits Visits, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{consent: consent, visits: visits, auth: auth, logger: logger}
}

// Register mounts the admin consent trail endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(authmw.RequireCapability(identity.CapManageSociety))
		r.Get("/visitors/{visitID}/consent", h.handleTrail)
	})
}

type trailResponse struct {
	VisitID  id.VisitID    `json:"visit_id"`
	Consents []*models.Log `json:"consents"`
}

func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.visits.Get(ctx, actor, visitID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	logs, err := h.consent.ForVisit(ctx, visitID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read consent trail",
			"visit_id", visitID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trailResponse{VisitID: visitID, Consents: logs})
}
