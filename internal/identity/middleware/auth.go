// Package middleware resolves the bearer token of a request into a Principal
// and enforces capability checks in front of handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"gatehouse/internal/identity/models"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/httputil"
	"gatehouse/pkg/requestcontext"
)

// PrincipalResolver turns a raw bearer token into a Principal. An empty
// token is passed through so demo mode can resolve the demo user.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (models.Principal, error)
}

type principalKey struct{}

// WithPrincipal stores p in ctx. Service tests use it directly.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	ctx = requestcontext.WithUserID(ctx, p.UserID)
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by RequireAuth.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests whose token does not resolve to an active user.
func RequireAuth(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, err := resolver.Resolve(ctx, BearerToken(r))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if dErrors.CodeOf(err) == dErrors.CodeInternal {
					httputil.WriteError(w, err)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Could not validate credentials"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequireCapability answers 403 unless the principal holds c.
func RequireCapability(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Not authenticated"))
				return
			}
			if err := principal.Require(c); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Principal fetches the principal for a handler and writes 401 when it is
// missing, which only happens if RequireAuth was not mounted.
func Principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Not authenticated"))
	}
	return p, ok
}
