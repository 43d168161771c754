package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

const (
	// SessionCookieName is the cookie carrying the session identifier.
	SessionCookieName = "session-id"
	// CSRFCookieName is the cookie half of the double-submit pair.
	CSRFCookieName = "csrf-token"
	// CSRFHeaderName is the header half of the double-submit pair.
	CSRFHeaderName = "x-csrf-token"

	// UserIDKey is the gin context key for the authenticated user id.
	UserIDKey = "user_id"
	// SessionKey is the gin context key for the validated session record.
	SessionKey = "session"
)

// RequestContextFrom derives the request context used for session binding
// and audit entries.
func RequestContextFrom(c *gin.Context) domain.RequestContext {
	sessionID, _ := c.Cookie(SessionCookieName)
	return domain.RequestContext{
		IPAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		AcceptEncoding: c.GetHeader("Accept-Encoding"),
		SessionID:      sessionID,
	}
}

// GetAuthenticatedUserID returns the user id set by RequireSession.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}

// GetSession returns the session record set by RequireSession.
func GetSession(c *gin.Context) (*domain.Session, bool) {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok
}

// SetSessionCookie installs the session cookie on the response.
func SetSessionCookie(c *gin.Context, sessionID string, maxAge time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, sessionID, int(maxAge.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie by setting an empty value
// with an already-past expiry.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}
