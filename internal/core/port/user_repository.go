package port

import (
	"context"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// UserRepository exposes the user-profile fields this subsystem owns (2FA state).
type UserRepository interface {
	GetTwoFactor(ctx context.Context, userID string) (*domain.TwoFactorSettings, error)
	SaveTwoFactor(ctx context.Context, settings domain.TwoFactorSettings) error
}
