package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "gatehouse/internal/identity/middleware"
	"gatehouse/internal/identity/models"
	"gatehouse/internal/identity/service"
	tenantservice "gatehouse/internal/tenant/service"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

type Service interface {
	RegisterSociety(ctx context.Context, req service.RegisterSocietyRequest) (*service.AuthResult, error)
	Signup(ctx context.Context, req service.SignupRequest) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Me(ctx context.Context, actor models.Principal) (*service.UserView, error)
	ListUsers(ctx context.Context, actor models.Principal, role string) ([]*service.UserView, error)
	CreateUser(ctx context.Context, actor models.Principal, req service.CreateUserRequest) (*service.UserView, error)
}

type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(svc Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: svc, auth: auth, logger: logger}
}

// Register mounts the public auth routes and the authenticated user routes.
// Callers may wrap r with a rate limiter before registering.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register-society", h.handleRegisterSociety)
	r.Post("/auth/signup", h.handleSignup)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/auth/me", h.handleMe)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/users", h.handleListUsers)
		r.Post("/users", h.handleCreateUser)
	})
}

type buildingInput struct {
	Name string `json:"name"`
}

type registerSocietyRequest struct {
	SocietyName        string          `json:"society_name"`
	SocietySlug        string          `json:"society_slug"`
	Address            string          `json:"address"`
	City               string          `json:"city"`
	State              string          `json:"state"`
	Pincode            string          `json:"pincode"`
	Country            string          `json:"country"`
	ContactEmail       string          `json:"contact_email"`
	ContactPhone       string          `json:"contact_phone"`
	RegistrationNumber string          `json:"registration_number"`
	Buildings          []buildingInput `json:"buildings"`
	Email              string          `json:"email"`
	Password           string          `json:"password"`
	FullName           string          `json:"full_name"`
	Phone              string          `json:"phone"`
	FlatNumber         string          `json:"flat_number"`
}

func (req registerSocietyRequest) toService() service.RegisterSocietyRequest {
	names := make([]string, 0, len(req.Buildings))
	for _, b := range req.Buildings {
		names = append(names, b.Name)
	}
	return service.RegisterSocietyRequest{
		Society: tenantservice.CreateSocietyRequest{
			Name:               req.SocietyName,
			Slug:               req.SocietySlug,
			Address:            req.Address,
			City:               req.City,
			State:              req.State,
			Pincode:            req.Pincode,
			Country:            req.Country,
			ContactEmail:       req.ContactEmail,
			ContactPhone:       req.ContactPhone,
			RegistrationNumber: req.RegistrationNumber,
		},
		Buildings: names,
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Flat:      req.FlatNumber,
	}
}

func (h *Handler) handleRegisterSociety(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerSocietyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.RegisterSociety(ctx, req.toService())
	if err != nil {
		h.logger.WarnContext(ctx, "society registration failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	view, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// handleLogout only acknowledges the request. Tokens are stateless, so the
// client discards its copy.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	h.logger.InfoContext(r.Context(), "user logged out",
		"user_id", actor.UserID,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	users, err := h.service.ListUsers(r.Context(), actor, r.URL.Query().Get("role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.CreateUser(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}
