package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	pstrings "gatehouse/pkg/platform/strings"
)

// Config is the full process configuration, assembled once in main.
type Config struct {
	Server    Server
	Log       Log
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Auth      Auth
	WhatsApp  WhatsApp
	Visit     VisitPolicy
	RateLimit RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string // "json" or "text"
}

// Database is empty when the process runs on in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit outbox relay. No brokers disables the relay.
type Kafka struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

type Auth struct {
	SecretKey         string
	AccessTokenTTL    time.Duration
	Issuer            string
	DemoMode          bool
	KeycloakURL       string
	KeycloakRealm     string
	Audience          string
	PublicKeyCacheTTL time.Duration
}

// WhatsApp configures the WAHA gateway. An empty URL disables delivery.
type WhatsApp struct {
	APIURL  string
	APIKey  string
	Session string
	Timeout time.Duration
}

// VisitPolicy holds the constants the visit engine depends on.
type VisitPolicy struct {
	OTPLength     int
	OTPValidity   time.Duration
	ArrivalWindow time.Duration
	QRPrefix      string
}

type RateLimit struct {
	TokenLookupsPerMinute int
}

// DefaultVisitPolicy: 6 digit OTP, 30 minute validity, ±60 minute arrival
// window, "VMS" QR prefix.
func DefaultVisitPolicy() VisitPolicy {
	return VisitPolicy{
		OTPLength:     6,
		OTPValidity:   30 * time.Minute,
		ArrivalWindow: 60 * time.Minute,
		QRPrefix:      "VMS",
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		// Use a default for development - should be overridden in production
		secret = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            getString("GATEHOUSE_ADDR", ":8080"),
			CORSOrigins:     pstrings.SplitList(getString("CORS_ORIGINS", "http://localhost:3000")),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  getString("LOG_LEVEL", "info"),
			Format: getString("LOG_FORMAT", "json"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", time.Hour),
			Migrate:         getBool("DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:      pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   getString("KAFKA_AUDIT_TOPIC", "gatehouse.audit"),
			PollInterval: getDuration("KAFKA_OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("KAFKA_OUTBOX_BATCH_SIZE", 100),
		},
		Auth: Auth{
			SecretKey:         secret,
			AccessTokenTTL:    time.Duration(getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
			Issuer:            getString("JWT_ISSUER", "gatehouse"),
			DemoMode:          getBool("AUTH_DEMO_MODE", false),
			KeycloakURL:       os.Getenv("KEYCLOAK_URL"),
			KeycloakRealm:     getString("KEYCLOAK_REALM", "vms"),
			Audience:          getString("JWT_AUDIENCE", "account"),
			PublicKeyCacheTTL: getDuration("PUBLIC_KEY_CACHE_TTL", time.Hour),
		},
		WhatsApp: WhatsApp{
			APIURL:  os.Getenv("WAHA_API_URL"),
			APIKey:  os.Getenv("WAHA_API_KEY"),
			Session: getString("WAHA_SESSION", "default"),
			Timeout: getDuration("WAHA_TIMEOUT", 10*time.Second),
		},
		Visit: visitPolicyFromEnv(),
		RateLimit: RateLimit{
			TokenLookupsPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}
}

func visitPolicyFromEnv() VisitPolicy {
	p := DefaultVisitPolicy()
	p.OTPLength = getInt("OTP_LENGTH", p.OTPLength)
	p.OTPValidity = time.Duration(getInt("OTP_EXPIRE_MINUTES", int(p.OTPValidity/time.Minute))) * time.Minute
	p.ArrivalWindow = time.Duration(getInt("ARRIVAL_WINDOW_MINUTES", int(p.ArrivalWindow/time.Minute))) * time.Minute
	p.QRPrefix = getString("QR_PREFIX", p.QRPrefix)
	return p
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
