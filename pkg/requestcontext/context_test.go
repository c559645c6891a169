package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "gatehouse/pkg/domain"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("zero values when unset", func(t *testing.T) {
		assert.True(t, UserID(ctx).IsNil())
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, ClientIP(ctx))
		assert.Empty(t, UserAgent(ctx))
	})

	t.Run("round trips injected values", func(t *testing.T) {
		userID := id.NewUserID()
		fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

		c := WithUserID(ctx, userID)
		c = WithRequestID(c, "req-1")
		c = WithClientMetadata(c, "10.0.0.1", "curl/8.0")
		c = WithTime(c, fixed)
		c = WithEndpoint(c, "POST", "/blacklist")

		assert.Equal(t, userID, UserID(c))
		assert.Equal(t, "req-1", RequestID(c))
		assert.Equal(t, "10.0.0.1", ClientIP(c))
		assert.Equal(t, "curl/8.0", UserAgent(c))
		assert.Equal(t, fixed, Now(c))
		method, path := Endpoint(c)
		assert.Equal(t, "POST", method)
		assert.Equal(t, "/blacklist", path)
	})
}
