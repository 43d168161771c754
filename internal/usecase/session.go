package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/infra/security"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationResult describes the outcome of a session validation. When Valid
// is false, Reason names the first failing check; the session record has
// already been destroyed at that point.
type ValidationResult struct {
	Valid   bool
	Session *domain.Session
	Reason  domain.ValidationReason
}

// SessionService coordinates session creation, validation and destruction
// against the configured policy.
type SessionService struct {
	store  port.SessionStore
	policy domain.SessionPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(store port.SessionStore, policy domain.SessionPolicy, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &SessionService{
		store:  store,
		policy: policy,
		logger: logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Policy returns the policy the service enforces.
func (s *SessionService) Policy() domain.SessionPolicy {
	return s.policy
}

// Create generates a new session for the user. When the per-user live-session
// count is already at the concurrency cap, the least-recently-active sessions
// are evicted first; evicted records are returned so the caller can audit them.
func (s *SessionService) Create(ctx context.Context, userID string, reqCtx domain.RequestContext) (*domain.Session, []domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}
	if s.store == nil {
		return nil, nil, fmt.Errorf("session store not configured")
	}

	sessionID, err := security.GenerateSessionID()
	if err != nil {
		return nil, nil, fmt.Errorf("generate session id: %w", err)
	}

	var evicted []domain.Session
	if s.policy.MaxConcurrentSessions > 0 {
		existing, err := s.store.ListByUser(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("list sessions: %w", err)
		}
		// ListByUser orders most-recently-active first, so overflow comes off the tail.
		if overflow := len(existing) - s.policy.MaxConcurrentSessions + 1; overflow > 0 {
			victims := existing[len(existing)-overflow:]
			for _, victim := range victims {
				if err := s.store.Delete(ctx, victim.ID); err != nil {
					return nil, nil, fmt.Errorf("evict session: %w", err)
				}
				evicted = append(evicted, victim)
			}
			s.logger.Info("evicted sessions over concurrency cap",
				zap.String("user_id", userID),
				zap.Int("evicted", len(victims)),
			)
		}
	}

	now := s.now()
	session := domain.Session{
		ID:           sessionID,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		UserAgent:    reqCtx.UserAgent,
		IPAddress:    reqCtx.IPAddress,
	}
	if s.policy.BindFingerprint {
		session.Fingerprint = security.Fingerprint(reqCtx)
	}

	if err := s.store.Put(ctx, session); err != nil {
		return nil, evicted, fmt.Errorf("store session: %w", err)
	}

	return &session, evicted, nil
}

// Validate checks the session against the policy. Checks run in a fixed
// order (existence, max age, idle timeout, fingerprint) and the first failure
// short-circuits, destroying the session record. On success last-activity is
// refreshed and the updated record returned.
func (s *SessionService) Validate(ctx context.Context, sessionID string, reqCtx domain.RequestContext) (ValidationResult, error) {
	if s.store == nil {
		return ValidationResult{}, fmt.Errorf("session store not configured")
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ValidationResult{Reason: domain.ReasonNotFound}, nil
		}
		return ValidationResult{}, fmt.Errorf("get session: %w", err)
	}

	now := s.now()

	if session.ExpiredByAge(now, s.policy.MaxAge) {
		return s.fail(ctx, session, domain.ReasonExpiredMaxAge)
	}
	if session.ExpiredByIdle(now, s.policy.IdleTimeout) {
		return s.fail(ctx, session, domain.ReasonExpiredIdle)
	}
	if s.policy.BindFingerprint && session.Fingerprint != "" {
		if security.Fingerprint(reqCtx) != session.Fingerprint {
			return s.fail(ctx, session, domain.ReasonFingerprintMismatch)
		}
	}

	session.Touch(now)
	if err := s.store.Put(ctx, *session); err != nil {
		return ValidationResult{}, fmt.Errorf("refresh session: %w", err)
	}

	return ValidationResult{Valid: true, Session: session}, nil
}

func (s *SessionService) fail(ctx context.Context, session *domain.Session, reason domain.ValidationReason) (ValidationResult, error) {
	if err := s.store.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("destroy invalid session failed",
			zap.String("session_id", session.ID),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
	}
	return ValidationResult{Session: session, Reason: reason}, nil
}

// RefreshActivity bumps last-activity without running policy checks.
// Returns false when the session is unknown.
func (s *SessionService) RefreshActivity(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get session: %w", err)
	}

	session.Touch(s.now())
	if err := s.store.Put(ctx, *session); err != nil {
		return false, fmt.Errorf("refresh session: %w", err)
	}
	return true, nil
}

// Destroy removes the session. Destruction is idempotent: destroying an
// unknown session succeeds without effect.
func (s *SessionService) Destroy(ctx context.Context, sessionID string) error {
	if s.store == nil {
		return fmt.Errorf("session store not configured")
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyAll removes every session owned by the user and returns the count removed.
func (s *SessionService) DestroyAll(ctx context.Context, userID string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("session store not configured")
	}
	removed, err := s.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("destroy all sessions: %w", err)
	}
	return removed, nil
}

// List returns the user's live sessions, most-recently-active first.
// Raw fingerprints never leave this subsystem; IP redaction happens at the
// transport layer before the list reaches the end user.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CleanupExpired sweeps the store for age- and idle-expired sessions so idle
// sessions are reclaimed even with no further request traffic. Returns the
// number of sessions removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("session store not configured")
	}

	now := s.now()
	expired := make([]string, 0)
	err := s.store.Scan(ctx, func(session domain.Session) error {
		if session.ExpiredByAge(now, s.policy.MaxAge) || session.ExpiredByIdle(now, s.policy.IdleTimeout) {
			expired = append(expired, session.ID)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	removed := 0
	for _, id := range expired {
		// A concurrent logout may have removed the session already; Delete
		// on an absent key is a no-op, so the sweep never races destructively.
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("sweep delete failed", zap.String("session_id", id), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}
