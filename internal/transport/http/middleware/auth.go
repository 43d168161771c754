package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// RequireSession validates the session cookie against policy. Failures fail
// closed with a generic message; the named reason goes to the audit trail only.
func RequireSession(sessions *usecase.SessionService, audit *usecase.AuditService, metrics *telemetry.Provider, secureCookies bool, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		reqCtx := RequestContextFrom(c)
		result, err := sessions.Validate(c.Request.Context(), sessionID, reqCtx)
		metrics.SessionValidated()
		if err != nil {
			log.Error("session validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication unavailable"))
			return
		}

		if !result.Valid {
			auditValidationFailure(c, audit, result, reqCtx)
			ClearSessionCookie(c, secureCookies)
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "session invalid or expired"))
			return
		}

		c.Set(UserIDKey, result.Session.UserID)
		c.Set(SessionKey, result.Session)
		c.Next()
	}
}

func auditValidationFailure(c *gin.Context, audit *usecase.AuditService, result usecase.ValidationResult, reqCtx domain.RequestContext) {
	if audit == nil {
		return
	}

	var action string
	switch result.Reason {
	case domain.ReasonExpiredMaxAge, domain.ReasonExpiredIdle:
		action = domain.ActionSessionExpired
	case domain.ReasonFingerprintMismatch:
		action = domain.ActionFingerprintMismatch
	default:
		// A stale cookie for a session that no longer exists is routine
		// (old tab after logout); not a security event worth recording.
		return
	}

	userID := ""
	if result.Session != nil {
		userID = result.Session.UserID
	}

	audit.Record(c.Request.Context(), usecase.RecordInput{
		UserID:   userID,
		Action:   action,
		Resource: "session",
		Outcome:  domain.OutcomeBlocked,
		Details:  map[string]any{"reason": string(result.Reason), "path": c.Request.URL.Path},
		Request:  reqCtx,
	})
}

// RoleResolver resolves the roles held by a user.
type RoleResolver func(ctx context.Context, userID string) ([]string, error)

// RequireAdmin gates admin-only surfaces. Unauthorized attempts are
// audit-logged as blocked.
func RequireAdmin(resolve RoleResolver, audit *usecase.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetAuthenticatedUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		roles, err := resolve(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authorization unavailable"))
			return
		}

		for _, role := range roles {
			if role == domain.RoleAdmin {
				c.Next()
				return
			}
		}

		if audit != nil {
			audit.Record(c.Request.Context(), usecase.RecordInput{
				UserID:   userID,
				Action:   domain.ActionAdminAccessDenied,
				Resource: "audit_log",
				Outcome:  domain.OutcomeBlocked,
				Details:  map[string]any{"path": c.Request.URL.Path},
				Request:  RequestContextFrom(c),
			})
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}
