package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// CSRFConfig carries the guard's tunables.
type CSRFConfig struct {
	CookieTTL time.Duration
	Secure    bool
}

// CSRFGuard enforces the double-submit cookie pattern on state-changing
// methods. Safe methods pass through untouched; on mutation the cookie and
// the x-csrf-token header must match in constant time.
func CSRFGuard(cfg CSRFConfig, audit *usecase.AuditService, metrics *telemetry.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookieToken, _ := c.Cookie(CSRFCookieName)
		headerToken := c.GetHeader(CSRFHeaderName)

		if !security.CSRFTokensMatch(cookieToken, headerToken) {
			metrics.CSRFBlocked()
			if audit != nil {
				userID, _ := GetAuthenticatedUserID(c)
				audit.Record(c.Request.Context(), usecase.RecordInput{
					UserID:   userID,
					Action:   domain.ActionCSRFBlocked,
					Resource: "csrf",
					Outcome:  domain.OutcomeBlocked,
					Details: map[string]any{
						"path":           c.Request.URL.Path,
						"method":         c.Request.Method,
						"cookie_present": cookieToken != "",
						"header_present": headerToken != "",
					},
					Request: RequestContextFrom(c),
				})
			}
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "csrf token missing or invalid"))
			return
		}

		c.Next()
	}
}

// IssueCSRFToken mints a fresh token and installs it as the cookie half of
// the pair. The cookie is HttpOnly, so the value is also returned in the
// x-csrf-token response header for the client to echo back.
func IssueCSRFToken(c *gin.Context, cfg CSRFConfig) (string, error) {
	token, err := security.GenerateCSRFToken()
	if err != nil {
		return "", err
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CSRFCookieName, token, int(cfg.CookieTTL.Seconds()), "/", "", cfg.Secure, true)
	c.Header(CSRFHeaderName, token)
	return token, nil
}

// ClearCSRFToken expires the CSRF cookie, used on logout.
func ClearCSRFToken(c *gin.Context, cfg CSRFConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CSRFCookieName, "", -1, "/", "", cfg.Secure, true)
}
