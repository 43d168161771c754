package alert

import (
	"context"

	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
)

// StubNotifier logs alerts instead of delivering them. Useful for development
// environments without a webhook endpoint.
type StubNotifier struct {
	logger *zap.Logger
}

// NewStubNotifier constructs a development-friendly notifier.
func NewStubNotifier(logger *zap.Logger) *StubNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubNotifier{logger: logger}
}

// Notify logs the alert at warn level.
func (n *StubNotifier) Notify(_ context.Context, event domain.SecurityAlertEvent) error {
	n.logger.Warn("Stub security alert",
		zap.String("event_id", event.EventID),
		zap.String("action", event.Action),
		zap.String("risk_level", string(event.RiskLevel)),
		zap.String("user_id", event.UserID),
		zap.Time("timestamp", event.At),
		zap.Any("details", event.Details),
	)
	return nil
}

var _ port.AlertNotifier = (*StubNotifier)(nil)
