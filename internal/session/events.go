package session

import "learn-quiz-service/internal/domain"

type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventRevealed     EventType = "revealed"
	EventFinished     EventType = "finished"
	EventSubmitFailed EventType = "submit_failed"
	EventWarning      EventType = "warning"
)

// Event is a notification for the UI layer. Delivery is best-effort: when
// the channel is full the oldest queued event is dropped.
type Event struct {
	Type       EventType
	State      State
	QuestionID string
	Message    string
	Err        error
	Result     *domain.SubmitResult
}
