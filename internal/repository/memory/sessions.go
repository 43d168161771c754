package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

// SessionStore is a mutex-guarded in-process session store for single-node
// deployments. Every inbound request goes through it, so all operations hold
// the lock only for the duration of the map access.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore constructs an empty in-memory store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

// Get returns a copy of the session or repository.ErrNotFound.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

// Put inserts or replaces the session record.
func (s *SessionStore) Put(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

// Delete removes the session. Deleting an absent key is a safe no-op.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// DeleteAllForUser removes every session owned by the user and returns the count removed.
func (s *SessionStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// ListByUser returns the user's sessions ordered most-recently-active first.
func (s *SessionStore) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result, nil
}

// Scan visits every session. The callback receives copies; mutations inside
// the callback do not affect the store.
func (s *SessionStore) Scan(_ context.Context, fn func(session domain.Session) error) error {
	s.mu.RLock()
	snapshot := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		snapshot = append(snapshot, session)
	}
	s.mu.RUnlock()

	for _, session := range snapshot {
		if err := fn(session); err != nil {
			return err
		}
	}
	return nil
}

var _ port.SessionStore = (*SessionStore)(nil)
