package port

import (
	"context"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// IdentityProvider is the external credential/identity collaborator.
// Credentials and tokens are consumed as opaque capabilities.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Identity, error)
	IdentityFromToken(ctx context.Context, token string) (*domain.Identity, error)
	VerifyPassword(ctx context.Context, userID, password string) (bool, error)
	Lookup(ctx context.Context, userID string) (*domain.Identity, error)
}
