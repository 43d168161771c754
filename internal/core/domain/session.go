package domain

import "time"

// Session represents one authenticated device or browser instance.
type Session struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time
	Fingerprint  string
	UserAgent    string
	IPAddress    string
}

// SessionPolicy carries the limits enforced by the session lifecycle manager.
type SessionPolicy struct {
	MaxAge                time.Duration
	IdleTimeout           time.Duration
	MaxConcurrentSessions int
	BindFingerprint       bool
}

// ValidationReason names why a session failed validation. The external
// response stays generic; the reason is for audit entries and logs only.
type ValidationReason string

const (
	ReasonNotFound            ValidationReason = "not_found"
	ReasonExpiredMaxAge       ValidationReason = "expired_max_age"
	ReasonExpiredIdle         ValidationReason = "expired_idle"
	ReasonFingerprintMismatch ValidationReason = "fingerprint_mismatch"
)

// ExpiredByAge reports whether the session exceeded maxAge at the supplied moment.
// A session exactly at the boundary is still valid.
func (s Session) ExpiredByAge(at time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return at.Sub(s.CreatedAt) > maxAge
}

// ExpiredByIdle reports whether the session has been inactive longer than idleTimeout.
func (s Session) ExpiredByIdle(at time.Time, idleTimeout time.Duration) bool {
	if idleTimeout <= 0 {
		return false
	}
	return at.Sub(s.LastActivity) > idleTimeout
}

// Touch bumps last-activity, keeping it monotonically non-decreasing.
func (s *Session) Touch(at time.Time) {
	if at.After(s.LastActivity) {
		s.LastActivity = at
	}
}

// RequestContext carries request-derived data used for session binding and audit context.
type RequestContext struct {
	IPAddress      string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	SessionID      string
}
