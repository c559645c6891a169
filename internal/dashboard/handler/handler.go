package handler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/dashboard/service"
	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	visitservice "gatehouse/internal/visit/service"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

type Service interface {
	Stats(ctx context.Context, actor identity.Principal) (*service.Stats, error)
	Muster(ctx context.Context, actor identity.Principal, format string) ([]service.MusterEntry, error)
	MyRequests(ctx context.Context, actor identity.Principal) ([]*visitservice.Detail, error)
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
		r.Get("/dashboard/stats", h.handleStats)
		r.With(authmw.RequireCapability(identity.CapHostVisits)).Get("/dashboard/my-requests", h.handleMyRequests)
		r.With(authmw.RequireCapability(identity.CapGateOperations)).Get("/dashboard/muster", h.handleMuster)
	})
}

type musterResponse struct {
	Count    int                   `json:"count"`
	Visitors []service.MusterEntry `json:"visitors"`
}

type requestsResponse struct {
	Count  int                    `json:"count"`
	Visits []*visitservice.Detail `json:"visits"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	visits, err := h.service.MyRequests(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requestsResponse{Count: len(visits), Visits: visits})
}

func (h *Handler) handleMuster(w http.ResponseWriter, r *http.Request) {
	actor, ok := authmw.Principal(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	entries, err := h.service.Muster(r.Context(), actor, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if format != "csv" {
		httputil.WriteJSON(w, http.StatusOK, musterResponse{Count: len(entries), Visitors: entries})
		return
	}

	stamp := requestcontext.Now(r.Context()).UTC().Format("20060102_1504")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=muster_"+stamp+".csv")
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	rows := [][]string{{"visitor_name", "visitor_phone", "host_name", "purpose", "checkin_time"}}
	for _, e := range entries {
		checkIn := ""
		if !e.CheckInTime.IsZero() {
			checkIn = e.CheckInTime.Format(time.RFC3339)
		}
		rows = append(rows, []string{e.VisitorName, e.VisitorPhone, e.HostName, e.Purpose, checkIn})
	}
	if err := cw.WriteAll(rows); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write muster csv", "error", err)
	}
}
