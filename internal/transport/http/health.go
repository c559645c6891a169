package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"gatehouse/pkg/platform/httputil"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Health answers /health. Every registered check must pass for a 200.
type Health struct {
	checks  map[string]Check
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealth(logger *slog.Logger) *Health {
	return &Health{checks: make(map[string]Check), timeout: 2 * time.Second, logger: logger}
}

// Add registers a named check. Call it before serving.
func (h *Health) Add(name string, check Check) {
	h.checks[name] = check
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			resp.Checks[name] = "unhealthy"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}
