package memory

import (
	"context"
	"sync"
	"time"

	"learn-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// Token consumption and the attempt insert happen under one lock. A used
// token id is kept until the token itself expires, after which the service
// rejects the token before it reaches the store.
type AttemptStore struct {
	mu       sync.Mutex
	used     map[string]time.Time
	attempts map[string][]domain.Attempt
	limit    int
}

// NewAttemptStore keeps at most limit attempts per user; limit <= 0 keeps all.
func NewAttemptStore(limit int) *AttemptStore {
	return &AttemptStore{
		used:     make(map[string]time.Time),
		attempts: make(map[string][]domain.Attempt),
		limit:    limit,
	}
}

func (s *AttemptStore) Record(_ context.Context, rec domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(rec.Attempt.Timestamp)
	if _, ok := s.used[rec.TokenID]; ok {
		return domain.ErrTokenUsed
	}
	s.used[rec.TokenID] = rec.ExpiresAt

	history := append([]domain.Attempt{rec.Attempt}, s.attempts[rec.Attempt.UserID]...)
	if s.limit > 0 && len(history) > s.limit {
		history = history[:s.limit]
	}
	s.attempts[rec.Attempt.UserID] = history
	return nil
}

func (s *AttemptStore) History(_ context.Context, userID string, limit int) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.attempts[userID]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	out := make([]domain.Attempt, len(history))
	copy(out, history)
	return out, nil
}

// pruneLocked drops token ids that expired before now. A zero now (no
// attempt timestamp) keeps everything.
func (s *AttemptStore) pruneLocked(now time.Time) {
	if now.IsZero() {
		return
	}
	for id, expires := range s.used {
		if !expires.IsZero() && expires.Before(now) {
			delete(s.used, id)
		}
	}
}
