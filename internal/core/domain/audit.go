package domain

import "time"

// Outcome classifies the result of an audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// RiskLevel is the coarse severity attached to every audit entry.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Audit action taxonomy. Risk classification is keyed on these values;
// callers never supply a risk level themselves.
const (
	ActionLogin               = "auth.login"
	ActionLoginFailed         = "auth.login_failed"
	ActionLogout              = "auth.logout"
	ActionRateLimited         = "auth.rate_limited"
	ActionSessionEvicted      = "session.evicted"
	ActionSessionRevoked      = "session.revoked"
	ActionSessionExpired      = "security.session_expired"
	ActionFingerprintMismatch = "security.fingerprint_mismatch"
	ActionCSRFBlocked         = "security.csrf_blocked"
	ActionGlobalLogout        = "security.global_logout"
	ActionImpersonation       = "security.impersonation"
	ActionAccountLockout      = "account.lockout"
	ActionTwoFactorSetup      = "twofactor.setup_started"
	ActionTwoFactorEnabled    = "twofactor.enabled"
	ActionTwoFactorDisabled   = "twofactor.disabled"
	ActionTwoFactorFailed     = "twofactor.verify_failed"
	ActionAuditLogView        = "admin.audit_log_view"
	ActionAdminAccessDenied   = "admin.access_denied"
)

var actionRiskLevels = map[string]RiskLevel{
	ActionLogin:               RiskLow,
	ActionLoginFailed:         RiskMedium,
	ActionLogout:              RiskLow,
	ActionRateLimited:         RiskHigh,
	ActionSessionEvicted:      RiskLow,
	ActionSessionRevoked:      RiskLow,
	ActionSessionExpired:      RiskLow,
	ActionFingerprintMismatch: RiskHigh,
	ActionCSRFBlocked:         RiskHigh,
	ActionGlobalLogout:        RiskCritical,
	ActionImpersonation:       RiskCritical,
	ActionAccountLockout:      RiskCritical,
	ActionTwoFactorSetup:      RiskMedium,
	ActionTwoFactorEnabled:    RiskMedium,
	ActionTwoFactorDisabled:   RiskHigh,
	ActionTwoFactorFailed:     RiskMedium,
	ActionAuditLogView:        RiskMedium,
	ActionAdminAccessDenied:   RiskHigh,
}

// RiskForAction resolves the risk level for an action. Unmapped actions
// default to medium so nothing escapes classification.
func RiskForAction(action string) RiskLevel {
	if level, ok := actionRiskLevels[action]; ok {
		return level
	}
	return RiskMedium
}

// AuditEntry is an immutable record of one security-relevant action.
type AuditEntry struct {
	ID         string
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Outcome    Outcome
	RiskLevel  RiskLevel
	Details    map[string]any
	IPAddress  string
	UserAgent  string
	SessionID  string
	Timestamp  time.Time
}

// AuditFilter narrows an audit query. Zero values mean "no constraint";
// the date window is half-open: [StartDate, EndDate).
type AuditFilter struct {
	UserID    string
	Action    string
	Resource  string
	Outcome   Outcome
	RiskLevel RiskLevel
	StartDate time.Time
	EndDate   time.Time
}

// AuditPage describes offset/limit pagination for audit queries.
type AuditPage struct {
	Offset int
	Limit  int
}
