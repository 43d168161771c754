package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
)

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	failing bool
}

func (r *fakeAuditRepo) Insert(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("storage unavailable")
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) Query(_ context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.AuditEntry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if !filter.StartDate.IsZero() && entry.Timestamp.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && !entry.Timestamp.Before(filter.EndDate) {
			continue
		}
		matched = append(matched, entry)
	}

	total := len(matched)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}

func (r *fakeAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, entry := range r.entries {
		if entry.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return removed, nil
}

func (r *fakeAuditRepo) all() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

type fakeNotifier struct {
	events chan domain.SecurityAlertEvent
	err    error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(chan domain.SecurityAlertEvent, 8)}
}

func (n *fakeNotifier) Notify(_ context.Context, event domain.SecurityAlertEvent) error {
	n.events <- event
	return n.err
}

func (n *fakeNotifier) waitForEvent(t *testing.T) domain.SecurityAlertEvent {
	t.Helper()
	select {
	case event := <-n.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert dispatch")
		return domain.SecurityAlertEvent{}
	}
}

func (n *fakeNotifier) expectNoEvent(t *testing.T) {
	t.Helper()
	select {
	case event := <-n.events:
		t.Fatalf("unexpected alert dispatched for action %s", event.Action)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecordDerivesRiskFromAction(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nil)

	cases := []struct {
		action string
		want   domain.RiskLevel
	}{
		{domain.ActionLogin, domain.RiskLow},
		{domain.ActionAuditLogView, domain.RiskMedium},
		{domain.ActionCSRFBlocked, domain.RiskHigh},
		{domain.ActionGlobalLogout, domain.RiskCritical},
		{"some.unmapped_action", domain.RiskMedium},
	}

	for _, tc := range cases {
		svc.Record(context.Background(), RecordInput{
			UserID:  "user-1",
			Action:  tc.action,
			Outcome: domain.OutcomeSuccess,
		})
	}

	entries := repo.all()
	if len(entries) != len(cases) {
		t.Fatalf("persisted %d entries, want %d", len(entries), len(cases))
	}
	for i, tc := range cases {
		if entries[i].RiskLevel != tc.want {
			t.Errorf("action %s risk = %s, want %s", tc.action, entries[i].RiskLevel, tc.want)
		}
	}
}

func TestRecordRedactsSecretDetails(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nil)

	svc.Record(context.Background(), RecordInput{
		UserID:  "user-1",
		Action:  domain.ActionTwoFactorEnabled,
		Outcome: domain.OutcomeSuccess,
		Details: map[string]any{
			"totp_secret": "JBSWY3DPEHPK3PXP",
			"stage":       "setup",
		},
	})

	entries := repo.all()
	if len(entries) != 1 {
		t.Fatalf("persisted %d entries, want 1", len(entries))
	}
	if got := entries[0].Details["totp_secret"]; got != "[redacted]" {
		t.Errorf("totp_secret = %v, want redacted", got)
	}
	if got := entries[0].Details["stage"]; got != "setup" {
		t.Errorf("stage = %v, want preserved", got)
	}
}

func TestCriticalActionDispatchesAlert(t *testing.T) {
	repo := &fakeAuditRepo{}
	notifier := newFakeNotifier()
	svc := NewAuditService(repo, nil, notifier)

	svc.Record(context.Background(), RecordInput{
		UserID:   "user-1",
		Action:   domain.ActionGlobalLogout,
		Resource: "session",
		Outcome:  domain.OutcomeSuccess,
	})

	event := notifier.waitForEvent(t)
	if event.Action != domain.ActionGlobalLogout {
		t.Errorf("event action = %s, want %s", event.Action, domain.ActionGlobalLogout)
	}
	if event.RiskLevel != domain.RiskCritical {
		t.Errorf("event risk = %s, want critical", event.RiskLevel)
	}
}

func TestNonCriticalActionSkipsAlert(t *testing.T) {
	repo := &fakeAuditRepo{}
	notifier := newFakeNotifier()
	svc := NewAuditService(repo, nil, notifier)

	svc.Record(context.Background(), RecordInput{
		UserID:  "user-1",
		Action:  domain.ActionCSRFBlocked,
		Outcome: domain.OutcomeBlocked,
	})

	notifier.expectNoEvent(t)
}

func TestRecordSurvivesRepositoryFailure(t *testing.T) {
	repo := &fakeAuditRepo{failing: true}
	notifier := newFakeNotifier()
	svc := NewAuditService(repo, nil, notifier)

	// Must not panic or block; the alert still goes out.
	svc.Record(context.Background(), RecordInput{
		UserID:  "user-1",
		Action:  domain.ActionAccountLockout,
		Outcome: domain.OutcomeBlocked,
	})

	event := notifier.waitForEvent(t)
	if event.Action != domain.ActionAccountLockout {
		t.Errorf("event action = %s, want %s", event.Action, domain.ActionAccountLockout)
	}
}

func TestQueryClampsPagination(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, nil)

	for i := 0; i < 60; i++ {
		svc.Record(context.Background(), RecordInput{
			UserID:  "user-1",
			Action:  domain.ActionLogin,
			Outcome: domain.OutcomeSuccess,
		})
	}

	entries, total, err := svc.Query(context.Background(), domain.AuditFilter{}, domain.AuditPage{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 60 {
		t.Errorf("total = %d, want 60", total)
	}
	if len(entries) != DefaultAuditPageLimit {
		t.Errorf("page size = %d, want default %d", len(entries), DefaultAuditPageLimit)
	}

	entries, _, err = svc.Query(context.Background(), domain.AuditFilter{}, domain.AuditPage{Limit: 10_000})
	if err != nil {
		t.Fatalf("query with oversized limit: %v", err)
	}
	if len(entries) > MaxAuditPageLimit {
		t.Errorf("page size = %d, exceeds cap %d", len(entries), MaxAuditPageLimit)
	}
}

func TestQueryDateWindowIsHalfOpen(t *testing.T) {
	repo := &fakeAuditRepo{}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	svc := NewAuditService(repo, nil).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		clock.Set(base.Add(time.Duration(i) * time.Hour))
		svc.Record(context.Background(), RecordInput{
			UserID:  "user-1",
			Action:  domain.ActionLogin,
			Outcome: domain.OutcomeSuccess,
		})
	}

	// [base, base+2h) includes the first two entries, not the third.
	_, total, err := svc.Query(context.Background(), domain.AuditFilter{
		StartDate: base,
		EndDate:   base.Add(2 * time.Hour),
	}, domain.AuditPage{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 from half-open window", total)
	}
}

func TestCleanupValidatesRetention(t *testing.T) {
	repo := &fakeAuditRepo{}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(base)
	svc := NewAuditService(repo, nil).WithClock(clock.Now)

	svc.Record(context.Background(), RecordInput{
		UserID:  "user-1",
		Action:  domain.ActionLogin,
		Outcome: domain.OutcomeSuccess,
	})

	if _, err := svc.Cleanup(context.Background(), 0); err == nil {
		t.Error("cleanup accepted zero retention")
	}

	clock.Set(base.AddDate(0, 0, 91))
	removed, err := svc.Cleanup(context.Background(), 90)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
