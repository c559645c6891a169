// Package service applies a fixed-window request limit, switching to an
// in-memory counter while the shared store is failing.
package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"gatehouse/internal/ratelimit/models"
	"gatehouse/pkg/platform/circuit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Counter increments the hit count of key's current window.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

type Limiter struct {
	primary  Counter
	fallback Counter
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithFallback installs the counter used while the primary is failing.
func WithFallback(c Counter) Option {
	return func(l *Limiter) { l.fallback = c }
}

func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New allows limit hits per key per minute. A non-positive limit disables
// limiting.
func New(primary Counter, limit int, opts ...Option) *Limiter {
	l := &Limiter{
		primary: primary,
		breaker: circuit.New("ratelimit"),
		limit:   limit,
		window:  time.Minute,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one hit for key. An error is returned only when no counter
// could answer.
func (l *Limiter) Check(ctx context.Context, key string) (*models.Result, error) {
	now := l.now()
	if l.limit <= 0 {
		return &models.Result{Allowed: true, Limit: l.limit, ResetAt: now}, nil
	}

	count, resetAt, err := l.primary.Increment(ctx, key, l.window, now)
	degraded := false
	switch {
	case err != nil:
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using in-memory fallback", "error", err)
		}
		if !useFallback || l.fallback == nil {
			return nil, err
		}
		degraded = true
	default:
		trusted, change := l.breaker.RecordSuccess()
		if change.Closed {
			l.logger.InfoContext(ctx, "rate limit store recovered")
		}
		degraded = !trusted && l.fallback != nil
	}
	if degraded {
		if count, resetAt, err = l.fallback.Increment(ctx, key, l.window, now); err != nil {
			return nil, err
		}
	}

	res := &models.Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   resetAt,
		Degraded:  degraded,
	}
	if !res.Allowed {
		res.RetryAfter = int(math.Ceil(resetAt.Sub(now).Seconds()))
		if res.RetryAfter < 1 {
			res.RetryAfter = 1
		}
	}
	return res, nil
}
