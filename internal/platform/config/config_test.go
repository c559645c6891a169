package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("KAFKA_BROKERS", "")

		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "dev-secret-key-change-in-production", cfg.Auth.SecretKey)
		assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
		assert.Equal(t, "account", cfg.Auth.Audience)
		assert.Empty(t, cfg.Database.URL)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, DefaultVisitPolicy(), cfg.Visit)
		assert.Equal(t, 60, cfg.RateLimit.TokenLookupsPerMinute)
	})

	t.Run("visit policy overrides", func(t *testing.T) {
		t.Setenv("OTP_LENGTH", "8")
		t.Setenv("OTP_EXPIRE_MINUTES", "15")
		t.Setenv("ARRIVAL_WINDOW_MINUTES", "30")
		t.Setenv("QR_PREFIX", "GATE")

		p := FromEnv().Visit
		assert.Equal(t, 8, p.OTPLength)
		assert.Equal(t, 15*time.Minute, p.OTPValidity)
		assert.Equal(t, 30*time.Minute, p.ArrivalWindow)
		assert.Equal(t, "GATE", p.QRPrefix)
	})

	t.Run("malformed values fall back", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
		t.Setenv("AUTH_DEMO_MODE", "maybe")
		t.Setenv("REDIS_DIAL_TIMEOUT", "soon")

		cfg := FromEnv()
		assert.Equal(t, 60, cfg.RateLimit.TokenLookupsPerMinute)
		assert.False(t, cfg.Auth.DemoMode)
		assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	})

	t.Run("list values", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("CORS_ORIGINS", "https://gate.example.com")

		cfg := FromEnv()
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, []string{"https://gate.example.com"}, cfg.Server.CORSOrigins)
	})
}
