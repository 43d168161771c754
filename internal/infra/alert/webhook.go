package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
)

// WebhookNotifier posts critical security events to an outbound webhook.
// Delivery is best-effort; the caller bounds each attempt with a context timeout.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier constructs a notifier targeting the given URL.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	EventID   string         `json:"event_id"`
	Action    string         `json:"action"`
	RiskLevel string         `json:"risk_level"`
	Outcome   string         `json:"outcome"`
	UserID    string         `json:"user_id,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Notify delivers one alert. A non-2xx response counts as failure.
func (n *WebhookNotifier) Notify(ctx context.Context, event domain.SecurityAlertEvent) error {
	payload := webhookPayload{
		EventID:   event.EventID,
		Action:    event.Action,
		RiskLevel: string(event.RiskLevel),
		Outcome:   string(event.Outcome),
		UserID:    event.UserID,
		Resource:  event.Resource,
		IPAddress: event.IPAddress,
		Timestamp: event.At,
		Details:   event.Details,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ port.AlertNotifier = (*WebhookNotifier)(nil)
