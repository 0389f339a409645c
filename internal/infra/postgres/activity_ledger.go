package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ActivityLedger upserts per-user daily counters.
type ActivityLedger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewActivityLedger(pool *pgxpool.Pool) *ActivityLedger {
	return &ActivityLedger{pool: pool, now: time.Now}
}

func (l *ActivityLedger) IncrementDailyCounter(ctx context.Context, userID, field string, amount int) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO activity_ledger (user_id, day, field, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, day, field)
		DO UPDATE SET amount = activity_ledger.amount + EXCLUDED.amount`,
		userID, dayOf(l.now()), field, amount)
	return err
}

// Counter reads one counter for userID on day.
func (l *ActivityLedger) Counter(ctx context.Context, userID, field string, day time.Time) (int, error) {
	var amount int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint FROM activity_ledger
		WHERE user_id=$1 AND day=$2 AND field=$3`,
		userID, dayOf(day), field).Scan(&amount)
	return int(amount), err
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
