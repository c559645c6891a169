package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
)

type Service interface {
	List(ctx context.Context, actor identity.Principal, q string, limit int) ([]*identity.User, error)
}

type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(svc Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: svc, auth: auth, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(authmw.RequireCapability(identity.CapGateOperations))
		r.Get("/residents", h.handleList)
	})
}

// residentResponse is what the gate needs to pick a host.
type residentResponse struct {
	ID         id.UserID      `json:"id"`
	FullName   string         `json:"full_name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone,omitempty"`
	Role       identity.Role  `json:"role"`
	BuildingID *id.BuildingID `json:"building_id,omitempty"`
	FlatNumber string         `json:"flat_number,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a number"))
			return
		}
		limit = n
	}
	users, err := h.service.List(r.Context(), actor, r.URL.Query().Get("q"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]residentResponse, 0, len(users))
	for _, u := range users {
		out = append(out, residentResponse{
			ID:         u.ID,
			FullName:   u.FullName,
			Email:      u.Email,
			Phone:      u.Phone,
			Role:       u.Role,
			BuildingID: u.BuildingID,
			FlatNumber: u.FlatNumber,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
