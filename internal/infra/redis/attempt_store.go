package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"learn-quiz-service/internal/domain"
)

// AttemptStore is a Redis implementation of app.AttemptStore.
// Notes:
//   - SETNX on quiz:token:{jti} is the single-use marker; it expires with the
//     token deadline since an expired token can never pass validation again.
//   - History is a capped list per user: LPUSH + LTRIM in one MULTI.
//   - If the history write fails the marker is released so the caller may resubmit.
type AttemptStore struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

func NewAttemptStore(client *redis.Client, limit int) *AttemptStore {
	return &AttemptStore{client: client, limit: int64(limit), now: time.Now}
}

func (s *AttemptStore) Record(ctx context.Context, rec domain.AttemptRecord) error {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl < time.Minute {
		ttl = time.Minute
	}
	ok, err := s.client.SetNX(ctx, s.tokenKey(rec.TokenID), rec.Attempt.ID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTokenUsed
	}

	data, err := json.Marshal(rec.Attempt)
	if err != nil {
		s.release(ctx, rec.TokenID)
		return err
	}
	historyKey := s.historyKey(rec.Attempt.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, historyKey, data)
		if s.limit > 0 {
			pipe.LTrim(ctx, historyKey, 0, s.limit-1)
		}
		return nil
	})
	if err != nil {
		s.release(ctx, rec.TokenID)
		return err
	}
	return nil
}

func (s *AttemptStore) History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.historyKey(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(raw))
	for _, item := range raw {
		var a domain.Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			log.Printf("skip malformed attempt for %s: %v", userID, err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *AttemptStore) release(ctx context.Context, tokenID string) {
	// best-effort; an orphaned marker only blocks a resubmit until the deadline
	if err := s.client.Del(ctx, s.tokenKey(tokenID)).Err(); err != nil {
		log.Printf("release token marker %s: %v", tokenID, err)
	}
}

func (s *AttemptStore) tokenKey(tokenID string) string {
	return "quiz:token:" + tokenID
}

func (s *AttemptStore) historyKey(userID string) string {
	return "quiz:attempts:" + userID
}
