package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/rick-sundayai/sales-flow-security/internal/core/domain"
	"github.com/rick-sundayai/sales-flow-security/internal/core/port"
	"github.com/rick-sundayai/sales-flow-security/internal/repository"
)

// SessionStore is the networked session store for multi-node deployments.
// Sessions live as JSON values under a per-session key plus a per-user index
// set used for listing and bulk destruction.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore constructs a Redis-backed session store.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "salesflow:session"
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:s:%s", s.prefix, sessionID)
}

func (s *SessionStore) userKey(userID string) string {
	return fmt.Sprintf("%s:u:%s", s.prefix, userID)
}

// Get returns the session or repository.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Put inserts or replaces the session and maintains the per-user index.
func (s *SessionStore) Put(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), raw, 0)
	pipe.SAdd(ctx, s.userKey(session.UserID), session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting an absent key is a safe no-op.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.SRem(ctx, s.userKey(session.UserID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session owned by the user.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list user sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}

	pipe := s.client.TxPipeline()
	deleted := pipe.Del(ctx, keys...)
	pipe.Del(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis delete user sessions: %w", err)
	}
	return int(deleted.Val()), nil
}

// ListByUser returns the user's sessions ordered most-recently-active first.
// Dangling index entries (session expired out from under the set) are pruned.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list user sessions: %w", err)
	}

	result := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.client.SRem(ctx, s.userKey(userID), id)
				continue
			}
			return nil, err
		}
		result = append(result, *session)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result, nil
}

// Scan visits every stored session.
func (s *SessionStore) Scan(ctx context.Context, fn func(session domain.Session) error) error {
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("%s:s:*", s.prefix), 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("redis get session: %w", err)
		}

		var session domain.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if err := fn(session); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan sessions: %w", err)
	}
	return nil
}

var _ port.SessionStore = (*SessionStore)(nil)
