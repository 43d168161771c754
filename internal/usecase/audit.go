package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
)

const (
	// DefaultAuditPageLimit applies when a query does not name a page size.
	DefaultAuditPageLimit = 50
	// MaxAuditPageLimit caps a requested page size.
	MaxAuditPageLimit = 500

	defaultAlertTimeout = 5 * time.Second
)

// Detail keys that must never reach the persistent store. Values are replaced,
// not dropped, so the entry still shows the field was involved.
var secretDetailKeys = map[string]struct{}{
	"password":       {},
	"new_password":   {},
	"secret":         {},
	"totp_secret":    {},
	"pending_secret": {},
	"backup_codes":   {},
	"code":           {},
	"token":          {},
}

// RecordInput is what callers hand to the audit logger. Risk level is never
// part of the input; it is derived from the action.
type RecordInput struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Outcome    domain.Outcome
	Details    map[string]any
	Request    domain.RequestContext
}

// AuditService classifies, persists and fans out security-relevant events.
// The durable write is synchronous to preserve ordering; alert dispatch is
// fire-and-forget with its own timeout.
type AuditService struct {
	repo         port.AuditRepository
	notifiers    []port.AlertNotifier
	logger       *zap.Logger
	metrics      *telemetry.Provider
	alertTimeout time.Duration
	now          func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo port.AuditRepository, logger *zap.Logger, notifiers ...port.AlertNotifier) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &AuditService{
		repo:         repo,
		notifiers:    notifiers,
		logger:       logger,
		alertTimeout: defaultAlertTimeout,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuditService) WithClock(clock func() time.Time) *AuditService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithTelemetry attaches metric counters.
func (s *AuditService) WithTelemetry(metrics *telemetry.Provider) *AuditService {
	s.metrics = metrics
	return s
}

// WithAlertTimeout bounds each alert dispatch.
func (s *AuditService) WithAlertTimeout(timeout time.Duration) *AuditService {
	if timeout > 0 {
		s.alertTimeout = timeout
	}
	return s
}

// Record writes one immutable audit entry. Persistence failures are logged
// locally and never surfaced: auditing is best-effort observability, not a
// transactional guard on the operation being audited.
func (s *AuditService) Record(ctx context.Context, input RecordInput) {
	entry := domain.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Action:     input.Action,
		Resource:   input.Resource,
		ResourceID: input.ResourceID,
		Outcome:    input.Outcome,
		RiskLevel:  domain.RiskForAction(input.Action),
		Details:    sanitizeDetails(input.Details),
		IPAddress:  input.Request.IPAddress,
		UserAgent:  input.Request.UserAgent,
		SessionID:  input.Request.SessionID,
		Timestamp:  s.now(),
	}

	if s.repo != nil {
		if err := s.repo.Insert(ctx, entry); err != nil {
			s.logger.Error("persist audit entry failed",
				zap.String("action", entry.Action),
				zap.String("user_id", entry.UserID),
				zap.Error(err),
			)
		}
	}

	if s.metrics != nil {
		s.metrics.AuditRecorded(string(entry.RiskLevel))
	}

	if entry.RiskLevel == domain.RiskCritical {
		s.dispatchAlert(entry)
	}
}

func (s *AuditService) dispatchAlert(entry domain.AuditEntry) {
	if len(s.notifiers) == 0 {
		return
	}

	event := domain.SecurityAlertEvent{
		EventID:   entry.ID,
		Action:    entry.Action,
		RiskLevel: entry.RiskLevel,
		Outcome:   entry.Outcome,
		UserID:    entry.UserID,
		Resource:  entry.Resource,
		IPAddress: entry.IPAddress,
		At:        entry.Timestamp,
		Details:   entry.Details,
	}

	for _, notifier := range s.notifiers {
		go func(n port.AlertNotifier) {
			// Detached from the request context: the caller's response must
			// never wait on, or fail because of, the alert channel.
			alertCtx, cancel := context.WithTimeout(context.Background(), s.alertTimeout)
			defer cancel()

			if err := n.Notify(alertCtx, event); err != nil {
				s.logger.Warn("security alert dispatch failed",
					zap.String("action", event.Action),
					zap.String("event_id", event.EventID),
					zap.Error(err),
				)
				if s.metrics != nil {
					s.metrics.AlertFailed()
				}
			}
		}(notifier)
	}
}

// Query returns matching entries newest-first plus the total match count.
func (s *AuditService) Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int, error) {
	if s.repo == nil {
		return nil, 0, fmt.Errorf("audit repository not configured")
	}

	if page.Limit <= 0 {
		page.Limit = DefaultAuditPageLimit
	}
	if page.Limit > MaxAuditPageLimit {
		page.Limit = MaxAuditPageLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	entries, total, err := s.repo.Query(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit log: %w", err)
	}
	return entries, total, nil
}

// Cleanup deletes entries older than the retention window and returns the count removed.
func (s *AuditService) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit repository not configured")
	}
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup audit log: %w", err)
	}
	return removed, nil
}

func sanitizeDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	sanitized := make(map[string]any, len(details))
	for key, value := range details {
		if _, secret := secretDetailKeys[key]; secret {
			sanitized[key] = "[redacted]"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
