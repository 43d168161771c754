package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/transport/http/middleware"
	"github.com/rick-sundayai/sales-flow-security/internal/usecase"
)

// TwoFactorHandler exposes the TOTP enrollment lifecycle.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
	audit     *usecase.AuditService
	identity  port.IdentityProvider
	logger    *zap.Logger
}

// NewTwoFactorHandler constructs a TwoFactorHandler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService, audit *usecase.AuditService, identity port.IdentityProvider, log *zap.Logger) *TwoFactorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TwoFactorHandler{twoFactor: twoFactor, audit: audit, identity: identity, logger: log}
}

var twoFactorErrorCases = []ErrorCase{
	{Err: usecase.ErrTwoFactorAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication already enabled"},
	{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusConflict, Message: "two-factor authentication not enabled"},
	{Err: usecase.ErrTwoFactorSetupNotStarted, Status: http.StatusConflict, Message: "two-factor setup not started"},
	{Err: usecase.ErrInvalidTwoFactorCode, Status: http.StatusBadRequest, Message: "invalid two-factor code"},
	{Err: usecase.ErrPasswordConfirmation, Status: http.StatusForbidden, Message: "password confirmation failed"},
}

// BeginSetup issues a fresh pending secret plus backup codes. The plaintext
// values appear in this response and nowhere else.
func (h *TwoFactorHandler) BeginSetup(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	ctx := c.Request.Context()
	email := h.lookupEmail(c, userID)

	result, err := h.twoFactor.BeginSetup(ctx, userID, email)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, twoFactorErrorCases...)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   userID,
		Action:   domain.ActionTwoFactorSetup,
		Resource: "two_factor",
		Outcome:  domain.OutcomeSuccess,
		Request:  middleware.RequestContextFrom(c),
	})

	c.JSON(http.StatusOK, twoFactorSetupResponse{
		Secret:      result.Secret,
		QRCodeURL:   result.QRPayload,
		BackupCodes: result.BackupCodes,
	})
}

// VerifySetup promotes the pending secret to active once the user proves
// their authenticator produces matching codes.
func (h *TwoFactorHandler) VerifySetup(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req twoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code is required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.twoFactor.VerifySetup(ctx, userID, req.Code); err != nil {
		h.audit.Record(ctx, usecase.RecordInput{
			UserID:   userID,
			Action:   domain.ActionTwoFactorFailed,
			Resource: "two_factor",
			Outcome:  domain.OutcomeFailure,
			Details:  map[string]any{"stage": "setup_verification"},
			Request:  middleware.RequestContextFrom(c),
		})
		RespondWithMappedError(c, h.logger, err, twoFactorErrorCases...)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   userID,
		Action:   domain.ActionTwoFactorEnabled,
		Resource: "two_factor",
		Outcome:  domain.OutcomeSuccess,
		Request:  middleware.RequestContextFrom(c),
	})

	c.JSON(http.StatusOK, statusResponse{Status: "enabled"})
}

// Disable clears the 2FA configuration after password re-confirmation.
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req twoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password is required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.twoFactor.Disable(ctx, userID, req.Password); err != nil {
		RespondWithMappedError(c, h.logger, err, twoFactorErrorCases...)
		return
	}

	h.audit.Record(ctx, usecase.RecordInput{
		UserID:   userID,
		Action:   domain.ActionTwoFactorDisabled,
		Resource: "two_factor",
		Outcome:  domain.OutcomeSuccess,
		Request:  middleware.RequestContextFrom(c),
	})

	c.JSON(http.StatusOK, statusResponse{Status: "disabled"})
}

// Status reports the caller's 2FA configuration.
func (h *TwoFactorHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	status, err := h.twoFactor.Status(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, twoFactorErrorCases...)
		return
	}

	resp := twoFactorStatusResponse{
		Enabled:    status.IsEnabled,
		Configured: status.IsConfigured,
		LastUsed:   status.LastUsed,
	}
	if status.IsEnabled {
		remaining := status.BackupCodesRemaining
		resp.BackupCodesRemaining = &remaining
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TwoFactorHandler) lookupEmail(c *gin.Context, userID string) string {
	// The otpauth payload wants an account label; fall back to the user id
	// when the identity provider cannot resolve an email.
	identity, err := h.identity.Lookup(c.Request.Context(), userID)
	if err != nil || identity.Email == "" {
		return userID
	}
	return identity.Email
}
