package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/handlers"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Logger        *zap.Logger
	Metrics       *telemetry.Provider
	Sessions      *usecase.SessionService
	TwoFactor     *usecase.TwoFactorService
	Audit         *usecase.AuditService
	Identity      port.IdentityProvider
	RateLimits    port.RateLimitStore
	RateLimitCfg  middleware.RateLimitConfig
	CSRFCfg       middleware.CSRFConfig
	SecureCookies bool
	HealthChecks  map[string]handlers.HealthCheck
}

// New builds the gin engine with the full middleware chain and route table.
func New(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))

	authHandler := handlers.NewAuthHandler(
		deps.Sessions, deps.TwoFactor, deps.Audit, deps.Identity,
		deps.CSRFCfg, deps.SecureCookies, deps.Logger,
	)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Audit, deps.CSRFCfg, deps.SecureCookies, deps.Logger)
	twoFactorHandler := handlers.NewTwoFactorHandler(deps.TwoFactor, deps.Audit, deps.Identity, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.Audit, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	router.GET("/healthz", healthHandler.Live)
	router.GET("/readyz", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireSession := middleware.RequireSession(deps.Sessions, deps.Audit, deps.Metrics, deps.SecureCookies, deps.Logger)
	csrfGuard := middleware.CSRFGuard(deps.CSRFCfg, deps.Audit, deps.Metrics)
	requireAdmin := middleware.RequireAdmin(roleResolver(deps.Identity), deps.Audit)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		// The CSRF token is anonymous-issuable so that login itself can be
		// guarded against cross-origin credential stuffing (login CSRF).
		auth.GET("/csrf", authHandler.CSRFToken)
		auth.POST("/login",
			csrfGuard,
			middleware.LoginRateLimit(deps.RateLimits, deps.RateLimitCfg, deps.Audit, deps.Logger),
			authHandler.Login,
		)
		auth.POST("/logout", requireSession, csrfGuard, authHandler.Logout)
	}

	sessions := api.Group("/sessions", requireSession, csrfGuard)
	{
		sessions.GET("", sessionHandler.List)
		sessions.POST("/:id/revoke", sessionHandler.Destroy)
		sessions.POST("/revoke-all", sessionHandler.DestroyAll)
	}

	twoFactor := api.Group("/2fa", requireSession, csrfGuard)
	{
		twoFactor.POST("/setup", twoFactorHandler.BeginSetup)
		twoFactor.POST("/verify", twoFactorHandler.VerifySetup)
		twoFactor.POST("/disable", twoFactorHandler.Disable)
		twoFactor.GET("/status", twoFactorHandler.Status)
	}

	admin := api.Group("/admin", requireSession, csrfGuard, requireAdmin)
	{
		admin.GET("/audit-log", auditHandler.Query)
	}

	return router
}

func roleResolver(identity port.IdentityProvider) middleware.RoleResolver {
	return func(ctx context.Context, userID string) ([]string, error) {
		resolved, err := identity.Lookup(ctx, userID)
		if err != nil {
			return nil, err
		}
		return resolved.Roles, nil
	}
}
