package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActivityLedger keeps per-user daily counters as hashes:
// HINCRBY activity:{userID}:{yyyy-mm-dd} {field} {amount}
type ActivityLedger struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewActivityLedger(client *redis.Client, retention time.Duration) *ActivityLedger {
	return &ActivityLedger{client: client, retention: retention, now: time.Now}
}

func (l *ActivityLedger) IncrementDailyCounter(ctx context.Context, userID, field string, amount int) error {
	key := l.key(userID, l.now())
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, field, int64(amount))
		if l.retention > 0 {
			pipe.Expire(ctx, key, l.retention)
		}
		return nil
	})
	return err
}

// Counters returns every counter recorded for userID on day.
func (l *ActivityLedger) Counters(ctx context.Context, userID string, day time.Time) (map[string]int, error) {
	raw, err := l.client.HGetAll(ctx, l.key(userID, day)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for field, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

func (l *ActivityLedger) key(userID string, day time.Time) string {
	return "activity:" + userID + ":" + day.UTC().Format("2006-01-02")
}
