package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/config"
)

const schemaVersion = "1.0"

// SecurityEventPublisher fans critical audit events onto the Kafka security
// event stream. It implements the alert notifier port so the audit logger
// stays decoupled from the transport.
type SecurityEventPublisher struct {
	producer *Producer
	appCfg   config.AppSettings
	logger   *zap.Logger
}

// NewSecurityEventPublisher constructs a Kafka-backed publisher.
func NewSecurityEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *SecurityEventPublisher {
	return &SecurityEventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Notify publishes one security alert event onto the stream.
func (p *SecurityEventPublisher) Notify(ctx context.Context, event domain.SecurityAlertEvent) error {
	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}
	ts := event.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	payload := struct {
		Action    string         `json:"action"`
		RiskLevel string         `json:"risk_level"`
		Outcome   string         `json:"outcome"`
		UserID    string         `json:"user_id,omitempty"`
		Resource  string         `json:"resource,omitempty"`
		IPAddress string         `json:"ip_address,omitempty"`
		Details   map[string]any `json:"details,omitempty"`
	}{
		Action:    event.Action,
		RiskLevel: string(event.RiskLevel),
		Outcome:   string(event.Outcome),
		UserID:    event.UserID,
		Resource:  event.Resource,
		IPAddress: event.IPAddress,
		Details:   event.Details,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: "security.alert",
		UserID:    event.UserID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName("alert"),
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AlertNotifier = (*SecurityEventPublisher)(nil)
