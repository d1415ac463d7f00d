package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quranverse-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own a countdown goroutine and subscribers, so the live object
//     stays in a local map on the instance that started it.
//   - Redis holds a liveness record per session (user, quiz, deadline) so
//     other instances and operators can see which attempts are running.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	ctx := context.Background()
	key := s.key(session.ID())
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"user", session.UserID(),
		"quiz", session.Quiz().ID,
		"time_limit", session.TimeLimit(),
	)
	if ttl := s.expiry(session); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// best-effort liveness marker
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("mark session %s live: %v", session.ID(), err)
	}
}

func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Live reports whether any instance still holds the session.
func (s *SessionStore) Live(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// expiry keeps the marker at least as long as the countdown can run.
func (s *SessionStore) expiry(session *app.Session) time.Duration {
	limit := time.Duration(session.TimeLimit()) * time.Second
	if s.ttl > limit {
		return s.ttl
	}
	return limit + time.Minute
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
