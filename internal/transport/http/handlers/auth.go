package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/logger"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// AuthHandler owns the login/logout surface: credential checks, the optional
// two-factor challenge, session issuance and the CSRF cookie pair.
type AuthHandler struct {
	sessions      *usecase.SessionService
	twoFactor     *usecase.TwoFactorService
	audit         *usecase.AuditService
	identity      port.IdentityProvider
	csrfCfg       middleware.CSRFConfig
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(
	sessions *usecase.SessionService,
	twoFactor *usecase.TwoFactorService,
	audit *usecase.AuditService,
	identity port.IdentityProvider,
	csrfCfg middleware.CSRFConfig,
	secureCookies bool,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		sessions:      sessions,
		twoFactor:     twoFactor,
		audit:         audit,
		identity:      identity,
		csrfCfg:       csrfCfg,
		secureCookies: secureCookies,
		logger:        log,
	}
}

// Login establishes a session either from an email/password pair or from a
// platform-issued bearer token, runs the two-factor challenge when the
// account has one enabled, and issues the session plus CSRF cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	reqCtx := middleware.RequestContextFrom(c)

	var identity *domain.Identity
	var twoFactorCode string

	if token := bearerToken(c); token != "" {
		// The body is optional on token login; it may still carry a 2FA code.
		var req tokenLoginRequest
		_ = c.ShouldBindJSON(&req)
		twoFactorCode = req.TwoFactorCode

		resolved, err := h.identity.IdentityFromToken(ctx, token)
		if err != nil {
			if errors.Is(err, security.ErrInvalidToken) {
				h.audit.Record(ctx, usecase.RecordInput{
					Action:   domain.ActionLoginFailed,
					Resource: "auth",
					Outcome:  domain.OutcomeFailure,
					Details:  map[string]any{"method": "platform_token"},
					Request:  reqCtx,
				})
				c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid platform token"))
				return
			}
			RespondWithMappedError(c, h.logger, err)
			return
		}
		identity = resolved
	} else {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
			return
		}
		twoFactorCode = req.TwoFactorCode

		resolved, err := h.identity.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, security.ErrInvalidCredentials) {
				h.audit.Record(ctx, usecase.RecordInput{
					Action:   domain.ActionLoginFailed,
					Resource: "auth",
					Outcome:  domain.OutcomeFailure,
					Details:  map[string]any{"email": logger.MaskEmail(req.Email)},
					Request:  reqCtx,
				})
				c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
				return
			}
			RespondWithMappedError(c, h.logger, err)
			return
		}
		identity = resolved
	}

	status, err := h.twoFactor.Status(ctx, identity.UserID)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}
	if status.IsEnabled {
		if twoFactorCode == "" {
			c.JSON(http.StatusUnauthorized, twoFactorRequiredResponse{
				Error:             "two-factor code required",
				TwoFactorRequired: true,
			})
			return
		}
		if err := h.twoFactor.VerifyChallenge(ctx, identity.UserID, twoFactorCode); err != nil {
			if errors.Is(err, usecase.ErrInvalidTwoFactorCode) {
				h.audit.Record(ctx, usecase.RecordInput{
					UserID:   identity.UserID,
					Action:   domain.ActionTwoFactorFailed,
					Resource: "auth",
					Outcome:  domain.OutcomeFailure,
					Request:  reqCtx,
				})
				c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid two-factor code"))
				return
			}
			RespondWithMappedError(c, h.logger, err)
			return
		}
	}

	session, evicted, err := h.sessions.Create(ctx, identity.UserID, reqCtx)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	for _, victim := range evicted {
		h.audit.Record(ctx, usecase.RecordInput{
			UserID:     identity.UserID,
			Action:     domain.ActionSessionEvicted,
			Resource:   "session",
			ResourceID: victim.ID,
			Outcome:    domain.OutcomeSuccess,
			Details:    map[string]any{"last_activity": victim.LastActivity.Format(time.RFC3339)},
			Request:    reqCtx,
		})
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   identity.UserID,
		Action:   domain.ActionLogin,
		Resource: "auth",
		Outcome:  domain.OutcomeSuccess,
		Request:  domain.RequestContext{
			IPAddress:      reqCtx.IPAddress,
			UserAgent:      reqCtx.UserAgent,
			AcceptLanguage: reqCtx.AcceptLanguage,
			AcceptEncoding: reqCtx.AcceptEncoding,
			SessionID:      session.ID,
		},
	})

	middleware.SetSessionCookie(c, session.ID, h.sessions.Policy().MaxAge, h.secureCookies)
	if _, err := middleware.IssueCSRFToken(c, h.csrfCfg); err != nil {
		h.logger.Error("issue csrf token failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, loginResponse{
		UserID:          identity.UserID,
		Email:           identity.Email,
		SessionExpires:  session.CreatedAt.Add(h.sessions.Policy().MaxAge).Format(time.RFC3339),
		EvictedSessions: len(evicted),
	})
}

// Logout destroys the current session and clears both cookies. Destruction is
// idempotent, so a stale cookie still produces a successful logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	session, ok := middleware.GetSession(c)
	if ok {
		if err := h.sessions.Destroy(ctx, session.ID); err != nil {
			RespondWithMappedError(c, h.logger, err)
			return
		}
		h.audit.Record(ctx, usecase.RecordInput{
			UserID:     session.UserID,
			Action:     domain.ActionLogout,
			Resource:   "session",
			ResourceID: session.ID,
			Outcome:    domain.OutcomeSuccess,
			Request:    middleware.RequestContextFrom(c),
		})
	}

	middleware.ClearSessionCookie(c, h.secureCookies)
	middleware.ClearCSRFToken(c, h.csrfCfg)
	c.JSON(http.StatusOK, statusResponse{Status: "logged_out"})
}

// CSRFToken rotates the CSRF cookie and echoes the fresh token in the
// response header and body. The cookie is HttpOnly, so this is the only way
// the client learns the value it must echo on mutations.
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	token, err := middleware.IssueCSRFToken(c, h.csrfCfg)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
