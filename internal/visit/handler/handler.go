package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	"gatehouse/internal/visit/models"
	"gatehouse/internal/visit/service"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

type Service interface {
	CreateInvitation(ctx context.Context, actor identity.Principal, req service.InvitationRequest) (*service.Detail, error)
	CreateWalkIn(ctx context.Context, actor identity.Principal, req service.WalkInRequest) (*service.Detail, error)
	Approve(ctx context.Context, actor identity.Principal, visitID id.VisitID) (*service.Detail, error)
	CheckInByOTP(ctx context.Context, actor identity.Principal, otp, photoURL string) (*models.Visit, error)
	CheckInByQR(ctx context.Context, actor identity.Principal, qr, photoURL string) (*models.Visit, error)
	CheckOut(ctx context.Context, actor identity.Principal, visitID id.VisitID) (*models.Visit, error)
	Get(ctx context.Context, actor identity.Principal, visitID id.VisitID) (*service.Detail, error)
	List(ctx context.Context, actor identity.Principal, req service.ListRequest) ([]*service.Detail, error)
}

const consentRequired = "Consent required: Please agree to data collection (DPDP Act 2023)"

type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	limit   func(http.Handler) http.Handler
	logger  *slog.Logger
}

type Option func(*Handler)

// WithCheckInLimiter wraps the token check-in routes, which are the ones
// open to OTP guessing.
func WithCheckInLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.limit = mw }
}

func New(svc Service, auth func(http.Handler) http.Handler, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: svc, auth: auth, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/visitors", h.handleList)
		r.Get("/visitors/{visitID}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireCapability(identity.CapHostVisits))
			r.Post("/visitors/invite", h.handleInvite)
			r.Post("/visitors/{visitID}/approve", h.handleApprove)
			r.Patch("/visitors/{visitID}/approve", h.handleApprove)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireCapability(identity.CapGateOperations))
			r.Post("/visitors/walkin", h.handleWalkIn)
			r.Post("/visitors/{visitID}/checkout", h.handleCheckOutByPath)
			r.Post("/checkin/checkout", h.handleCheckOut)
			r.Group(func(r chi.Router) {
				if h.limit != nil {
					r.Use(h.limit)
				}
				r.Post("/checkin/otp", h.handleCheckInOTP)
				r.Post("/checkin/qr", h.handleCheckInQR)
			})
		})
	})
}

type checkInRequest struct {
	OTP          string `json:"otp"`
	QRCode       string `json:"qr_code"`
	ConsentGiven bool   `json:"consent_given"`
	PhotoURL     string `json:"photo_url"`
}

type checkOutRequest struct {
	VisitID id.VisitID `json:"visit_id"`
}

type gateResponse struct {
	VisitID     id.VisitID    `json:"visit_id"`
	Status      models.Status `json:"status"`
	CheckInTime time.Time     `json:"checkin_time"`
	Message     string        `json:"message"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req service.InvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.CreateInvitation(r.Context(), actor, req)
	if err != nil {
		h.logFailure(r, "invitation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleWalkIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req service.WalkInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.CreateWalkIn(r.Context(), actor, req)
	if err != nil {
		h.logFailure(r, "walk-in registration failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Approve(r.Context(), actor, visitID)
	if err != nil {
		h.logFailure(r, "approval failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleCheckInOTP(w http.ResponseWriter, r *http.Request) {
	h.handleCheckIn(w, r, func(ctx context.Context, actor identity.Principal, req checkInRequest) (*models.Visit, error) {
		return h.service.CheckInByOTP(ctx, actor, req.OTP, req.PhotoURL)
	})
}

func (h *Handler) handleCheckInQR(w http.ResponseWriter, r *http.Request) {
	h.handleCheckIn(w, r, func(ctx context.Context, actor identity.Principal, req checkInRequest) (*models.Visit, error) {
		return h.service.CheckInByQR(ctx, actor, req.QRCode, req.PhotoURL)
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request,
	checkIn func(context.Context, identity.Principal, checkInRequest) (*models.Visit, error)) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !req.ConsentGiven {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, consentRequired))
		return
	}
	visit, err := checkIn(r.Context(), actor, req)
	if err != nil {
		h.logFailure(r, "check-in refused", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, gateResponse{
		VisitID:     visit.ID,
		Status:      visit.Status,
		CheckInTime: *visit.ActualArrival,
		Message:     "Check-in successful",
	})
}

func (h *Handler) handleCheckOutByPath(w http.ResponseWriter, r *http.Request) {
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.checkOut(w, r, visitID)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req checkOutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.VisitID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "visit_id is required"))
		return
	}
	h.checkOut(w, r, req.VisitID)
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request, visitID id.VisitID) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visit, err := h.service.CheckOut(r.Context(), actor, visitID)
	if err != nil {
		h.logFailure(r, "check-out failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, gateResponse{
		VisitID:     visit.ID,
		Status:      visit.Status,
		CheckInTime: *visit.ActualDeparture,
		Message:     "Check-out successful",
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visitID, err := id.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.service.Get(r.Context(), actor, visitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	req := service.ListRequest{Status: q.Get("status"), HostID: q.Get("host_id")}
	var err error
	if req.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		httputil.WriteError(w, err)
		return
	}
	visits, err := h.service.List(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visits)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a number")
	}
	return n, nil
}

func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"code", dErrors.CodeOf(err),
		"request_id", requestcontext.RequestID(ctx),
	)
}
