package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// RateLimitConfig bounds attempts per identifier within a sliding window.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginRateLimit throttles login attempts per client IP using a sliding
// window. Store failures fail open: losing rate limiting is preferable to
// losing logins when Redis is down.
func LoginRateLimit(store port.RateLimitStore, cfg RateLimitConfig, audit *usecase.AuditService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if store == nil || cfg.MaxAttempts <= 0 {
			c.Next()
			return
		}

		identifier := "login:" + c.ClientIP()
		now := time.Now().UTC()
		ctx := c.Request.Context()

		if err := store.TrimWindow(ctx, identifier, cfg.Window, now); err != nil {
			log.Warn("rate limit trim failed", zap.Error(err))
			c.Next()
			return
		}

		count, err := store.CountAttempts(ctx, identifier, cfg.Window, now)
		if err != nil {
			log.Warn("rate limit count failed", zap.Error(err))
			c.Next()
			return
		}

		if count >= cfg.MaxAttempts {
			if audit != nil {
				audit.Record(ctx, usecase.RecordInput{
					Action:   domain.ActionRateLimited,
					Resource: "auth",
					Outcome:  domain.OutcomeBlocked,
					Details: map[string]any{
						"attempts": count,
						"window":   cfg.Window.String(),
					},
					Request: RequestContextFrom(c),
				})
			}
			c.Header("Retry-After", retryAfterSeconds(cfg.Window))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				newErrorResponse(c, "too many attempts, try again later"))
			return
		}

		if err := store.RecordAttempt(ctx, identifier, now); err != nil {
			log.Warn("rate limit record failed", zap.Error(err))
		}

		c.Next()
	}
}

func retryAfterSeconds(window time.Duration) string {
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
