package port

import (
	"context"
	"time"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// AuditRepository persists the append-only audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
