package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/blacklist/models"
	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	visitormodels "gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

type Service interface {
	Add(ctx context.Context, actor identity.Principal, visitorID id.VisitorID, reason string) (*visitormodels.Visitor, error)
	AddByPhone(ctx context.Context, actor identity.Principal, phone, name, reason string) (*visitormodels.Visitor, error)
	Remove(ctx context.Context, actor identity.Principal, visitorID id.VisitorID) (*visitormodels.Visitor, error)
	List(ctx context.Context, actor identity.Principal) ([]models.Listed, error)
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
		r.Get("/blacklist", h.handleList)
		r.Post("/blacklist", h.handleAdd)
		r.Post("/blacklist/by-phone", h.handleAddByPhone)
		r.Delete("/blacklist/{visitorID}", h.handleRemove)
	})
}

type addRequest struct {
	VisitorID id.VisitorID `json:"visitor_id"`
	Reason    string       `json:"reason"`
}

type addByPhoneRequest struct {
	VisitorPhone string `json:"visitor_phone"`
	VisitorName  string `json:"visitor_name"`
	Reason       string `json:"reason"`
}

type visitorResponse struct {
	Message string                 `json:"message"`
	Visitor *visitormodels.Visitor `json:"visitor"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	listed, err := h.service.List(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listed)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req addRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	visitor, err := h.service.Add(r.Context(), actor, req.VisitorID, req.Reason)
	if err != nil {
		h.logFailure(r, "blacklist add failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, visitorResponse{Message: "Visitor blacklisted", Visitor: visitor})
}

func (h *Handler) handleAddByPhone(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req addByPhoneRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	visitor, err := h.service.AddByPhone(r.Context(), actor, req.VisitorPhone, req.VisitorName, req.Reason)
	if err != nil {
		h.logFailure(r, "blacklist add by phone failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, visitorResponse{Message: "Visitor blacklisted", Visitor: visitor})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visitorID, err := id.ParseVisitorID(chi.URLParam(r, "visitorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	visitor, err := h.service.Remove(r.Context(), actor, visitorID)
	if err != nil {
		h.logFailure(r, "blacklist remove failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visitorResponse{Message: "Visitor removed from blacklist", Visitor: visitor})
}

func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
