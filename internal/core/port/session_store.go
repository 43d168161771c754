package port

import (
	"context"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// SessionStore is the ground truth for live sessions. Implementations must be
// safe for concurrent use; Delete on an absent key is a no-op.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Put(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)
	Scan(ctx context.Context, fn func(session domain.Session) error) error
}
