package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

var (
	// ErrTwoFactorAlreadyEnabled indicates setup was attempted while an active secret exists.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrTwoFactorNotEnabled indicates the operation requires an enabled configuration.
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication not enabled")
	// ErrTwoFactorSetupNotStarted indicates verification was attempted without a pending secret.
	ErrTwoFactorSetupNotStarted = errors.New("two-factor setup not started")
	// ErrInvalidTwoFactorCode indicates the submitted code did not verify.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrPasswordConfirmation indicates the re-authentication password was wrong.
	ErrPasswordConfirmation = errors.New("password confirmation failed")
)

const (
	backupCodeCount  = 8
	backupCodeLength = 10
)

// SetupResult carries the secrets handed to the user exactly once, at setup time.
type SetupResult struct {
	Secret      string
	QRPayload   string
	BackupCodes []string
}

// TwoFactorService manages the TOTP enrollment state machine:
// disabled -> pending_setup -> enabled -> disabled.
type TwoFactorService struct {
	users    port.UserRepository
	identity port.IdentityProvider
	issuer   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewTwoFactorService constructs a TwoFactorService. The issuer appears in
// the otpauth:// payload shown by authenticator apps.
func NewTwoFactorService(users port.UserRepository, identity port.IdentityProvider, issuer string, logger *zap.Logger) *TwoFactorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &TwoFactorService{
		users:    users,
		identity: identity,
		issuer:   issuer,
		logger:   logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *TwoFactorService) WithClock(clock func() time.Time) *TwoFactorService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// BeginSetup issues a temporary secret and backup codes. Fails while an
// active secret exists; a previous abandoned pending setup is overwritten.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID, userEmail string) (*SetupResult, error) {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if settings.State() == domain.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, qrPayload, err := security.GenerateTOTPSecret(s.issuer, userEmail)
	if err != nil {
		return nil, fmt.Errorf("issue totp secret: %w", err)
	}

	codes, err := security.GenerateBackupCodes(backupCodeCount, backupCodeLength)
	if err != nil {
		return nil, fmt.Errorf("issue backup codes: %w", err)
	}

	hashed := make([]string, len(codes))
	for i, code := range codes {
		hashed[i] = security.HashToken(code)
	}

	settings.PendingSecret = secret
	settings.BackupCodes = hashed
	if err := s.users.SaveTwoFactor(ctx, *settings); err != nil {
		return nil, fmt.Errorf("save pending setup: %w", err)
	}

	return &SetupResult{Secret: secret, QRPayload: qrPayload, BackupCodes: codes}, nil
}

// VerifySetup validates the submitted code against the pending secret and, on
// success, promotes it to the active slot. An incorrect code leaves the
// stored state untouched.
func (s *TwoFactorService) VerifySetup(ctx context.Context, userID, code string) error {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}

	if settings.State() == domain.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if settings.PendingSecret == "" {
		return ErrTwoFactorSetupNotStarted
	}

	if !security.ValidateTOTPCode(strings.TrimSpace(code), settings.PendingSecret, s.now()) {
		return ErrInvalidTwoFactorCode
	}

	now := s.now()
	settings.Secret = settings.PendingSecret
	settings.PendingSecret = ""
	settings.Enabled = true
	settings.EnabledAt = &now

	if err := s.users.SaveTwoFactor(ctx, *settings); err != nil {
		return fmt.Errorf("promote pending secret: %w", err)
	}
	return nil
}

// VerifyChallenge validates a login-time code against the active secret,
// falling back to single-use backup codes.
func (s *TwoFactorService) VerifyChallenge(ctx context.Context, userID, code string) error {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if settings.State() != domain.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	code = strings.TrimSpace(code)
	now := s.now()

	if security.ValidateTOTPCode(code, settings.Secret, now) {
		settings.LastUsedAt = &now
		if err := s.users.SaveTwoFactor(ctx, *settings); err != nil {
			s.logger.Warn("update last used failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}

	hashed := security.HashToken(strings.ToUpper(code))
	for i, stored := range settings.BackupCodes {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(hashed)) == 1 {
			settings.BackupCodes = append(settings.BackupCodes[:i], settings.BackupCodes[i+1:]...)
			settings.LastUsedAt = &now
			if err := s.users.SaveTwoFactor(ctx, *settings); err != nil {
				return fmt.Errorf("consume backup code: %w", err)
			}
			return nil
		}
	}

	return ErrInvalidTwoFactorCode
}

// Disable clears the active secret, any pending secret and all backup codes.
// Re-authentication via password is required first.
func (s *TwoFactorService) Disable(ctx context.Context, userID, confirmedPassword string) error {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	if settings.State() != domain.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	ok, err := s.identity.VerifyPassword(ctx, userID, confirmedPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrPasswordConfirmation
	}

	settings.Enabled = false
	settings.Secret = ""
	settings.PendingSecret = ""
	settings.BackupCodes = nil
	settings.EnabledAt = nil

	if err := s.users.SaveTwoFactor(ctx, *settings); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}
	return nil
}

// Status reports the externally visible 2FA configuration. Backup code count
// is only populated for enabled accounts.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (domain.TwoFactorStatus, error) {
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return domain.TwoFactorStatus{}, err
	}

	status := domain.TwoFactorStatus{
		IsEnabled:    settings.State() == domain.TwoFactorEnabled,
		IsConfigured: settings.IsConfigured(),
		LastUsed:     settings.LastUsedAt,
	}
	if status.IsEnabled {
		status.BackupCodesRemaining = len(settings.BackupCodes)
	}
	return status, nil
}

func (s *TwoFactorService) loadSettings(ctx context.Context, userID string) (*domain.TwoFactorSettings, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	settings, err := s.users.GetTwoFactor(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.TwoFactorSettings{UserID: userID}, nil
		}
		return nil, fmt.Errorf("load two-factor settings: %w", err)
	}
	return settings, nil
}
