package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/logger"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// SessionHandler exposes the user's own session inventory: list, revoke one,
// revoke all.
type SessionHandler struct {
	sessions      *usecase.SessionService
	audit         *usecase.AuditService
	csrfCfg       middleware.CSRFConfig
	secureCookies bool
	logger        *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *usecase.SessionService, audit *usecase.AuditService, csrfCfg middleware.CSRFConfig, secureCookies bool, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, audit: audit, csrfCfg: csrfCfg, secureCookies: secureCookies, logger: log}
}

// List returns the caller's live sessions, most-recently-active first.
// IP addresses are masked and fingerprints never appear in the view.
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.List(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	current, _ := middleware.GetSession(c)
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:           s.ID,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
			IPAddress:    logger.MaskIP(s.IPAddress),
			UserAgent:    s.UserAgent,
			Current:      current != nil && current.ID == s.ID,
		})
	}

	c.JSON(http.StatusOK, sessionListResponse{Sessions: views})
}

// Destroy revokes one of the caller's sessions. Revoking a session the caller
// does not own is indistinguishable from revoking an unknown one.
func (h *SessionHandler) Destroy(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session id is required"))
		return
	}

	ctx := c.Request.Context()
	owned, err := h.sessions.List(ctx, userID)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	found := false
	for _, s := range owned {
		if s.ID == sessionID {
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "session not found"))
		return
	}

	if err := h.sessions.Destroy(ctx, sessionID); err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:     userID,
		Action:     domain.ActionSessionRevoked,
		Resource:   "session",
		ResourceID: sessionID,
		Outcome:    domain.OutcomeSuccess,
		Request:    middleware.RequestContextFrom(c),
	})

	if current, ok := middleware.GetSession(c); ok && current.ID == sessionID {
		middleware.ClearSessionCookie(c, h.secureCookies)
	}

	c.JSON(http.StatusOK, statusResponse{Status: "revoked"})
}

// DestroyAll revokes every session the caller owns, the current one
// included, and clears the cookies. This is the panic button for a
// suspected account compromise, so it is classified critical.
func (h *SessionHandler) DestroyAll(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	ctx := c.Request.Context()
	removed, err := h.sessions.DestroyAll(ctx, userID)
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   userID,
		Action:   domain.ActionGlobalLogout,
		Resource: "session",
		Outcome:  domain.OutcomeSuccess,
		Details:  map[string]any{"revoked": removed},
		Request:  middleware.RequestContextFrom(c),
	})

	middleware.ClearSessionCookie(c, h.secureCookies)
	middleware.ClearCSRFToken(c, h.csrfCfg)
	c.JSON(http.StatusOK, revokedResponse{Revoked: removed})
}
