package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"grammardrill/internal/models"
)

const (
	sessionKeyPrefix = "quiz:session:"
	drillKeyPrefix   = "quiz:drill:"
)

// SessionStore keeps quiz sessions in Redis with a sliding expiry.
// A per-drill set indexes session IDs so a drill edit can drop them.
type SessionStore struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewSessionStore creates a Redis session store whose entries expire after ttl
func NewSessionStore(client *RedisClient, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func drillSessionsKey(drillID int64) string {
	return drillKeyPrefix + strconv.FormatInt(drillID, 10) + ":sessions"
}

// Create stores a new session
func (s *SessionStore) Create(ctx context.Context, session *models.QuizSession) error {
	if err := s.redis.SetJSON(ctx, sessionKey(session.ID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	client := s.redis.GetClient()
	key := drillSessionsKey(session.DrillID)
	if err := client.SAdd(ctx, key, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	if err := client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// Get retrieves a session, or nil if it does not exist or has expired
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := s.redis.GetJSON(ctx, sessionKey(sessionID), &session)
	if errors.Is(err, ErrSessionMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Update overwrites a session and refreshes its expiry along with the
// drill's session index
func (s *SessionStore) Update(ctx context.Context, session *models.QuizSession) error {
	if err := s.redis.SetJSON(ctx, sessionKey(session.ID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if err := s.redis.GetClient().Expire(ctx, drillSessionsKey(session.DrillID), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session index: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Delete(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByDrill removes every indexed session of a drill
func (s *SessionStore) DeleteByDrill(ctx context.Context, drillID int64) error {
	client := s.redis.GetClient()
	key := drillSessionsKey(drillID)

	ids, err := client.SMembers(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to list drill sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, key)

	if err := s.redis.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete drill sessions: %w", err)
	}
	return nil
}
