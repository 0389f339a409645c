package memory

import (
	"context"
	"sync"
	"time"
)

// ActivityLedger keeps per-user daily counters in memory.
type ActivityLedger struct {
	mu       sync.Mutex
	counters map[string]map[string]int
	clock    func() time.Time
}

func NewActivityLedger() *ActivityLedger {
	return NewActivityLedgerWithClock(time.Now)
}

// NewActivityLedgerWithClock is test-only for deterministic days.
func NewActivityLedgerWithClock(now func() time.Time) *ActivityLedger {
	return &ActivityLedger{
		counters: make(map[string]map[string]int),
		clock:    now,
	}
}

func (l *ActivityLedger) IncrementDailyCounter(_ context.Context, userID, field string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(userID, l.clock())
	fields, ok := l.counters[key]
	if !ok {
		fields = make(map[string]int)
		l.counters[key] = fields
	}
	fields[field] += amount
	return nil
}

// Counter returns the value of field for userID on the given day.
func (l *ActivityLedger) Counter(userID, field string, day time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters[ledgerKey(userID, day)][field]
}

func ledgerKey(userID string, day time.Time) string {
	return userID + "|" + day.UTC().Format("2006-01-02")
}
