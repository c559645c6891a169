package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/tenant/models"
	"gatehouse/internal/tenant/service"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// Service is the tenant directory as seen by the transport.
type Service interface {
	Create(ctx context.Context, actor identity.Principal, req service.CreateSocietyRequest) (*models.Society, error)
	GetBySlug(ctx context.Context, slug string) (*models.SocietyDetails, error)
	List(ctx context.Context, actor identity.Principal, q string) ([]*models.Society, error)
	ListBuildings(ctx context.Context, actor identity.Principal, societyID id.SocietyID) ([]*models.Building, error)
	CreateBuilding(ctx context.Context, actor identity.Principal, req service.CreateBuildingRequest) (*models.Building, error)
}

type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

// New wires the handler. auth is the RequireAuth middleware.
func New(svc Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: svc, auth: auth, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/societies/by-slug/{slug}", h.handleGetBySlug)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/societies", h.handleList)
		r.Post("/societies", h.handleCreate)
		r.Get("/buildings", h.handleListBuildings)
		r.Post("/buildings", h.handleCreateBuilding)
	})
}

type slugResponse struct {
	ID        id.SocietyID       `json:"id"`
	Slug      string             `json:"slug"`
	Name      string             `json:"name"`
	Buildings []*models.Building `json:"buildings,omitempty"`
}

func (h *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details, err := h.service.GetBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.logger.WarnContext(ctx, "society lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := slugResponse{ID: details.ID, Slug: details.Slug, Name: details.Name}
	if r.URL.Query().Get("include_buildings") == "true" {
		resp.Buildings = details.Buildings
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	societies, err := h.service.List(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, societies)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req service.CreateSocietyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	society, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, society)
}

func (h *Handler) handleListBuildings(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var societyID id.SocietyID
	if raw := r.URL.Query().Get("society_id"); raw != "" {
		parsed, err := id.ParseSocietyID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		societyID = parsed
	}
	buildings, err := h.service.ListBuildings(r.Context(), actor, societyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if buildings == nil {
		buildings = []*models.Building{}
	}
	httputil.WriteJSON(w, http.StatusOK, buildings)
}

type createBuildingRequest struct {
	SocietyID string `json:"society_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (h *Handler) handleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var body createBuildingRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req := service.CreateBuildingRequest{Name: body.Name, SortOrder: body.SortOrder}
	if body.SocietyID != "" {
		societyID, err := id.ParseSocietyID(body.SocietyID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req.SocietyID = societyID
	}
	building, err := h.service.CreateBuilding(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, building)
}
