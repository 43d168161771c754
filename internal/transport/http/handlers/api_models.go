package handlers

import "time"

type loginRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"two_factor_code"`
}

type tokenLoginRequest struct {
	TwoFactorCode string `json:"two_factor_code"`
}

type loginResponse struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	SessionExpires  string `json:"session_expires"`
	EvictedSessions int    `json:"evicted_sessions,omitempty"`
}

type twoFactorRequiredResponse struct {
	Error             string `json:"error"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

type sessionView struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Current      bool      `json:"current"`
}

type sessionListResponse struct {
	Sessions []sessionView `json:"sessions"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

type twoFactorSetupResponse struct {
	Secret      string   `json:"secret"`
	QRCodeURL   string   `json:"qr_code_url"`
	BackupCodes []string `json:"backup_codes"`
}

type twoFactorCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type twoFactorDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

type twoFactorStatusResponse struct {
	Enabled              bool       `json:"enabled"`
	Configured           bool       `json:"configured"`
	BackupCodesRemaining *int       `json:"backup_codes_remaining,omitempty"`
	LastUsed             *time.Time `json:"last_used,omitempty"`
}

type auditEntryView struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Outcome    string         `json:"outcome"`
	RiskLevel  string         `json:"risk_level"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type auditQueryResponse struct {
	Entries []auditEntryView `json:"entries"`
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

type statusResponse struct {
	Status string `json:"status"`
}
