package app

import (
	"context"
	"errors"
	"sync"

	"learn-quiz-service/internal/domain"
)

// ActivityHub is an in-process publisher that fans attempt events out to
// per-user subscribers (websocket streams).
type ActivityHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.AttemptEvent]struct{}
}

func NewActivityHub() *ActivityHub {
	return &ActivityHub{subscribers: make(map[string]map[chan domain.AttemptEvent]struct{})}
}

// Subscribe returns a channel receiving events for userID.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *ActivityHub) Subscribe(userID string) (<-chan domain.AttemptEvent, func()) {
	ch := make(chan domain.AttemptEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.AttemptEvent]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the attempt's user.
func (h *ActivityHub) Publish(_ context.Context, event domain.AttemptEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.Attempt.UserID] {
		select {
		case ch <- event:
		default:
			// slow subscriber: drop the oldest queued event
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Publishers publishes to each publisher in turn and joins their errors.
type Publishers []EventPublisher

func (p Publishers) Publish(ctx context.Context, event domain.AttemptEvent) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
