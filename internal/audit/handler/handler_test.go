package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/audit/models"
	"gatehouse/internal/audit/service"
	"gatehouse/internal/audit/store"
	authmw "gatehouse/internal/identity/middleware"
	identity "gatehouse/internal/identity/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
	"gatehouse/pkg/testutil"
)

func newRouter(svc Service, actor identity.Principal) http.Handler {
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authmw.WithPrincipal(r.Context(), actor)))
		})
	}
	r := chi.NewRouter()
	New(svc, auth, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestListAuditLogs(t *testing.T) {
	svc := service.New(store.NewInMemory())
	society := id.NewSocietyID()
	admin := identity.Principal{UserID: id.NewUserID(), SocietyID: society, Roles: identity.NewRoleSet(identity.RoleAdmin, identity.RoleResident)}
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc.LogAdminAction(requestcontext.WithEndpoint(ctx, "POST", "/buildings"), admin, "create_building", map[string]any{"name": "Tower B"})

	t.Run("admin reads the trail", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(svc, admin), testutil.NewRequest(t, http.MethodGet, "/audit-logs?limit=10"))
		testutil.AssertStatusOK(t, rr)
		entries := testutil.UnmarshalResponse[[]models.Entry](t, rr)
		require.Len(t, *entries, 1)
		assert.Equal(t, "create_building", (*entries)[0].Action)
		assert.Equal(t, "/buildings", (*entries)[0].Endpoint)
	})

	t.Run("guards are forbidden", func(t *testing.T) {
		guard := identity.Principal{UserID: id.NewUserID(), SocietyID: society, Roles: identity.NewRoleSet(identity.RoleGuard)}
		rr := testutil.DoRequest(newRouter(svc, guard), testutil.NewRequest(t, http.MethodGet, "/audit-logs"))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("non-numeric limit", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(svc, admin), testutil.NewRequest(t, http.MethodGet, "/audit-logs?limit=all"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}
