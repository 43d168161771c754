package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/alert"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/config"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/database"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/kafka"
	appredis "github.com/rick-sundayai/sales-flow-security/internal/infra/redis"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
	"github.com/rick-sundayai/sales-flow-security/internal/repository/memory"
	pgrepo "github.com/rick-sundayai/sales-flow-security/internal/repository/postgres"
	redisrepo "github.com/rick-sundayai/sales-flow-security/internal/repository/redis"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/handlers"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/routes"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// App owns every long-lived resource and its shutdown order.
type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	pool     *pgxpool.Pool
	redis    *appredis.Client
	producer *kafka.Producer

	sessionSweeper   *usecase.SessionSweeper
	retentionSweeper *usecase.RetentionSweeper
	server           *http.Server
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	metrics := telemetry.Attach("salesflow")

	userRepo := pgrepo.NewUserRepository(pool)
	auditRepo := pgrepo.NewAuditRepository(pool)

	var sessionStore port.SessionStore
	var rateLimits port.RateLimitStore
	if cfg.Redis.Store == "redis" {
		client, err := appredis.NewClient(cfg.Redis, logger)
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		sessionStore = redisrepo.NewSessionStore(client.Client(), cfg.Redis.SessionPrefix)
		rateLimits = redisrepo.NewRateLimitRepository(client.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "salesflow:ratelimit",
			TTL:       cfg.RateLimit.WindowDuration * 2,
		})
	} else {
		sessionStore = memory.NewSessionStore()
	}

	notifiers := make([]port.AlertNotifier, 0, 2)
	if cfg.Audit.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewWebhookNotifier(cfg.Audit.WebhookURL, logger))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("init kafka: %w", err)
		}
		a.producer = producer
		notifiers = append(notifiers, kafka.NewSecurityEventPublisher(producer, cfg.App, logger))
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, alert.NewStubNotifier(logger))
	}

	auditService := usecase.NewAuditService(auditRepo, logger, notifiers...).
		WithTelemetry(metrics).
		WithAlertTimeout(cfg.Audit.AlertTimeout)

	sessionService := usecase.NewSessionService(sessionStore, cfg.Session.Policy(), logger)

	identity := security.NewPlatformIdentityProvider(userRepo, []byte(cfg.Identity.JWTSecret))
	twoFactorService := usecase.NewTwoFactorService(userRepo, identity, cfg.Identity.Issuer, logger)

	a.sessionSweeper = usecase.NewSessionSweeper(sessionService, cfg.Session.CleanupInterval, logger).
		WithTelemetry(metrics)
	a.retentionSweeper = usecase.NewRetentionSweeper(auditService, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval, logger)

	healthChecks := map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}
	if a.redis != nil {
		healthChecks["redis"] = a.redis.HealthCheck
	}

	router := routes.New(routes.Dependencies{
		Logger:     logger,
		Metrics:    metrics,
		Sessions:   sessionService,
		TwoFactor:  twoFactorService,
		Audit:      auditService,
		Identity:   identity,
		RateLimits: rateLimits,
		RateLimitCfg: middleware.RateLimitConfig{
			MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
			Window:      cfg.RateLimit.WindowDuration,
		},
		CSRFCfg: middleware.CSRFConfig{
			CookieTTL: cfg.CSRF.TokenTTL,
			Secure:    cfg.App.IsProduction(),
		},
		SecureCookies: cfg.App.IsProduction(),
		HealthChecks:  healthChecks,
	})

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the background sweepers and serves HTTP until the context is
// cancelled, then shuts everything down in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.sessionSweeper.Start(ctx)
	a.retentionSweeper.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		a.shutdown(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return a.shutdown(shutdownCtx)
}

func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("shutdown http server: %w", err)
	}

	a.sessionSweeper.Stop()
	a.retentionSweeper.Stop()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.pool.Close()

	return firstErr
}

func (a *App) closePartial() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
