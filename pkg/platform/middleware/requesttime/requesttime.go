// Package requesttime pins one "now" per HTTP request so that arrival-window
// checks, consent timestamps and audit rows all agree on the same instant.
package requesttime

import (
	"net/http"
	"time"

	"gatehouse/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
