package port

import (
	"context"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

// AlertNotifier delivers critical security alerts on a best-effort basis.
// Failures must never propagate back to the operation being audited.
type AlertNotifier interface {
	Notify(ctx context.Context, event domain.SecurityAlertEvent) error
}
