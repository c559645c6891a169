package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	audithandler "gatehouse/internal/audit/handler"
	"gatehouse/internal/audit/relay"
	auditservice "gatehouse/internal/audit/service"
	blacklisthandler "gatehouse/internal/blacklist/handler"
	blacklistmetrics "gatehouse/internal/blacklist/metrics"
	blacklistservice "gatehouse/internal/blacklist/service"
	consenthandler "gatehouse/internal/consent/handler"
	consentservice "gatehouse/internal/consent/service"
	dashboardhandler "gatehouse/internal/dashboard/handler"
	dashboardservice "gatehouse/internal/dashboard/service"
	identityhandler "gatehouse/internal/identity/handler"
	authmw "gatehouse/internal/identity/middleware"
	identityservice "gatehouse/internal/identity/service"
	userstore "gatehouse/internal/identity/store/user"
	jwttoken "gatehouse/internal/jwt_token"
	"gatehouse/internal/messaging/whatsapp"
	notificationhandler "gatehouse/internal/notification/handler"
	notificationservice "gatehouse/internal/notification/service"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/kafka"
	"gatehouse/internal/platform/logger"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/platform/postgres"
	"gatehouse/internal/platform/redis"
	"gatehouse/internal/platform/tracing"
	ratelimitmw "gatehouse/internal/ratelimit/middleware"
	ratelimitservice "gatehouse/internal/ratelimit/service"
	ratelimitstore "gatehouse/internal/ratelimit/store"
	residenthandler "gatehouse/internal/resident/handler"
	residentservice "gatehouse/internal/resident/service"
	tenanthandler "gatehouse/internal/tenant/handler"
	tenantmetrics "gatehouse/internal/tenant/metrics"
	tenantservice "gatehouse/internal/tenant/service"
	tenantstore "gatehouse/internal/tenant/store"
	httptransport "gatehouse/internal/transport/http"
	"gatehouse/internal/visit/cache"
	visithandler "gatehouse/internal/visit/handler"
	visitmetrics "gatehouse/internal/visit/metrics"
	visitservice "gatehouse/internal/visit/service"
	visitorservice "gatehouse/internal/visitor/service"
)

const (
	requestTimeout  = 30 * time.Second
	auditPartitions = 3
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	tracing.Init()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if db != nil {
		defer db.Close()
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	if kc != nil {
		defer kc.Close()
	}

	st := newStores(db)
	reg := prometheus.DefaultRegisterer
	httpMetrics := metrics.New(reg)

	audit := auditservice.New(st.audit, auditservice.WithLogger(log))

	tenants := tenantservice.New(st.societies, st.buildings, st.tx,
		tenantservice.WithLogger(log),
		tenantservice.WithAuditLogger(audit),
		tenantservice.WithMetrics(tenantmetrics.New(reg)),
	)

	identityOpts := []identityservice.Option{
		identityservice.WithLogger(log),
		identityservice.WithAuditLogger(audit),
		identityservice.WithTokenTTL(cfg.Auth.AccessTokenTTL),
	}
	if cfg.Auth.KeycloakURL != "" {
		keys := jwttoken.NewPublicKeyCache(
			jwttoken.NewJWKSFetcher(cfg.Auth.KeycloakURL, cfg.Auth.KeycloakRealm, 10*time.Second),
			cfg.Auth.PublicKeyCacheTTL,
		)
		verifier := jwttoken.NewKeycloakVerifier(keys, jwttoken.RealmURL(cfg.Auth.KeycloakURL, cfg.Auth.KeycloakRealm), cfg.Auth.Audience)
		identityOpts = append(identityOpts, identityservice.WithExternalVerifier(verifier))
	}
	if cfg.Auth.DemoMode {
		if _, err := tenantstore.SeedDemoSociety(ctx, st.societies, st.buildings); err != nil {
			return fmt.Errorf("seed demo society: %w", err)
		}
		if err := userstore.SeedDemoUsers(ctx, st.users, tenantstore.DemoSocietyID, tenantstore.DemoBuildingID); err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
		identityOpts = append(identityOpts, identityservice.WithDemoMode(userstore.DemoUserID))
		log.Warn("demo mode enabled, unauthenticated requests act as the demo resident")
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	identity := identityservice.New(st.users, tenants, tokens, st.tx, identityOpts...)
	auth := authmw.RequireAuth(identity, log)

	visitors := visitorservice.New(st.visitors, visitorservice.WithLogger(log))
	blacklist := blacklistservice.New(st.blacklist, visitors, st.tx,
		blacklistservice.WithLogger(log),
		blacklistservice.WithMetrics(blacklistmetrics.New(reg)),
		blacklistservice.WithAuditLogger(audit),
	)
	residents := residentservice.New(st.users, tenants, residentservice.WithLogger(log))
	notifications := notificationservice.New(st.notifications, notificationservice.WithLogger(log))
	consent := consentservice.New(st.consent, consentservice.WithLogger(log))

	visitOpts := []visitservice.Option{
		visitservice.WithLogger(log),
		visitservice.WithMetrics(visitmetrics.New(reg)),
		visitservice.WithAuditLogger(audit),
		visitservice.WithPolicy(cfg.Visit),
		visitservice.WithMessenger(whatsapp.New(cfg.WhatsApp,
			whatsapp.WithLogger(log),
			whatsapp.WithValidity(cfg.Visit.OTPValidity),
		)),
	}
	if rdb != nil {
		visitOpts = append(visitOpts, visitservice.WithTokenCache(cache.New(rdb.Client)))
	}
	visits := visitservice.New(st.visits, visitors, blacklist, residents, notifications, consent, st.tx, visitOpts...)

	dashboard := dashboardservice.New(st.visits, visits,
		dashboardservice.WithLogger(log),
		dashboardservice.WithAuditLogger(audit),
	)

	limiter := newLimiter(cfg.RateLimit, rdb, log)
	limits := ratelimitmw.New(limiter, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.TokenLookupsPerMinute <= 0),
		ratelimitmw.WithMetrics(httpMetrics),
	)

	health := httptransport.NewHealth(log)
	if db != nil {
		health.Add("postgres", db.PingContext)
	}
	if rdb != nil {
		health.Add("redis", rdb.Health)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: requestTimeout,
	}, log, httpMetrics, health,
		identityhandler.New(identity, auth, log),
		tenanthandler.New(tenants, auth, log),
		residenthandler.New(residents, auth, log),
		visithandler.New(visits, auth, log, visithandler.WithCheckInLimiter(limits.PerIP("checkin"))),
		blacklisthandler.New(blacklist, auth, log),
		consenthandler.New(consent, visits, auth, log),
		notificationhandler.New(notifications, auth, log),
		dashboardhandler.New(dashboard, auth, log),
		audithandler.New(audit, auth, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gatehouse", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if r := newRelay(gctx, cfg.Kafka, st, kc, log); r != nil {
		g.Go(func() error { return r.Run(gctx) })
	}
	return g.Wait()
}

// newLimiter counts in Redis when it is configured and in memory otherwise.
// With Redis the in-memory counter takes over while Redis is failing.
func newLimiter(cfg config.RateLimit, rdb *redis.Client, log *slog.Logger) *ratelimitservice.Limiter {
	if rdb == nil {
		return ratelimitservice.New(ratelimitstore.NewInMemory(), cfg.TokenLookupsPerMinute,
			ratelimitservice.WithLogger(log))
	}
	return ratelimitservice.New(ratelimitstore.NewRedis(rdb.Client), cfg.TokenLookupsPerMinute,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithFallback(ratelimitstore.NewInMemory()),
	)
}

// newRelay returns nil unless both Postgres and Kafka are configured.
func newRelay(ctx context.Context, cfg config.Kafka, st stores, kc *kgo.Client, log *slog.Logger) *relay.Relay {
	if kc == nil {
		return nil
	}
	if st.outbox == nil {
		log.Warn("kafka configured without a database, audit relay disabled")
		return nil
	}
	if err := kafka.EnsureTopic(ctx, kc, cfg.AuditTopic, auditPartitions); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
	}
	return relay.New(st.outbox, kc, cfg.AuditTopic,
		relay.WithLogger(log),
		relay.WithInterval(cfg.PollInterval),
		relay.WithBatchSize(cfg.BatchSize),
	)
}
