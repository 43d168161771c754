package domain

import "time"

// TwoFactorState enumerates the mutually exclusive 2FA configurations a user can be in.
type TwoFactorState string

const (
	TwoFactorDisabled     TwoFactorState = "disabled"
	TwoFactorPendingSetup TwoFactorState = "pending_setup"
	TwoFactorEnabled      TwoFactorState = "enabled"
)

// TwoFactorSettings holds the per-user 2FA profile fields. Backup codes are
// stored hashed; the plaintext codes exist only in the setup response.
type TwoFactorSettings struct {
	UserID        string
	Enabled       bool
	Secret        string
	PendingSecret string
	BackupCodes   []string
	EnabledAt     *time.Time
	LastUsedAt    *time.Time
}

// State derives the current configuration from the stored fields.
func (s TwoFactorSettings) State() TwoFactorState {
	switch {
	case s.Enabled && s.Secret != "":
		return TwoFactorEnabled
	case s.PendingSecret != "":
		return TwoFactorPendingSetup
	default:
		return TwoFactorDisabled
	}
}

// IsConfigured reports whether any secret (pending or active) exists.
func (s TwoFactorSettings) IsConfigured() bool {
	return s.Secret != "" || s.PendingSecret != ""
}

// TwoFactorStatus is the externally visible view of a user's 2FA configuration.
type TwoFactorStatus struct {
	IsEnabled            bool
	IsConfigured         bool
	BackupCodesRemaining int
	LastUsed             *time.Time
}
