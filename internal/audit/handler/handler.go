package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/audit/models"
	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, actor identity.Principal, limit int) ([]*models.Entry, error)
}

type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(svc Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: svc, auth: auth, logger: logger}
}

// Register mounts the audit trail. Role checks live in the service because
// platform operators read it without CapManageSociety.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/audit-logs", h.handleList)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a number"))
			return
		}
	}
	entries, err := h.service.List(r.Context(), actor, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
