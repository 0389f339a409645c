package domain

import "time"

// Mode selects how a quiz is delivered to the learner.
type Mode string

const (
	// ModeExam is timed; expiry auto-submits.
	ModeExam Mode = "exam"
	// ModePractice has no timer and reveals explanations before advancing.
	ModePractice Mode = "practice"
)

// ParseMode maps a wire value to a Mode, defaulting to exam.
func ParseMode(raw string) Mode {
	if Mode(raw) == ModePractice {
		return ModePractice
	}
	return ModeExam
}

// Option represents a possible answer for a question.
// Correct never leaves the server before submission.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Explanation string   `json:"explanation"`
	Options     []Option `json:"options"`
}

// CorrectOptionID returns the id of the first option flagged correct.
func (q Question) CorrectOptionID() string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// Quiz is authored content in one language.
type Quiz struct {
	ID          string     `json:"id"`
	Lang        string     `json:"lang"`
	DurationSec int        `json:"durationSec"`
	Questions   []Question `json:"questions"`
}

// Question looks up a question by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// PublicOption is the client-facing view of an Option.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is the client-facing view of a Question. Explanation is only
// populated for practice issuance; correctness never leaves the server before
// a submit.
type PublicQuestion struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Options     []PublicOption `json:"options"`
	Explanation string         `json:"explanation,omitempty"`
}

// IssuedQuiz is a shuffled quiz payload bound to a signed token.
type IssuedQuiz struct {
	ID          string           `json:"id"`
	Lang        string           `json:"lang"`
	Mode        Mode             `json:"mode"`
	DurationSec int              `json:"durationSec"`
	Questions   []PublicQuestion `json:"questions"`
	Token       string           `json:"token"`
}

// AnswerSubmission models one answered question.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

// SubmitResult is the scored outcome returned to the client.
type SubmitResult struct {
	Correct    int               `json:"correct"`
	Total      int               `json:"total"`
	CorrectMap map[string]string `json:"correctMap"`
	Solutions  map[string]string `json:"solutions"`
}

// Attempt is one persisted, scored completion of a quiz by a user.
type Attempt struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	UserID         string    `json:"userId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Timestamp      time.Time `json:"timestamp"`
}

// AttemptRecord pairs an attempt with the token id it consumes.
type AttemptRecord struct {
	Attempt   Attempt
	TokenID   string
	ExpiresAt time.Time
}

// QuizProgress is the client-local autosave blob for an in-progress quiz.
type QuizProgress struct {
	SelectedMap      map[string]string `json:"selectedMap"`
	CurrentIndex     int               `json:"currentIndex"`
	SecondsRemaining int               `json:"secondsRemaining"`
}

// AttemptEvent is emitted after an attempt is recorded.
type AttemptEvent struct {
	Type    string  `json:"type"`
	Attempt Attempt `json:"attempt"`
}

// EventAttemptRecorded is the AttemptEvent type for newly scored attempts.
const EventAttemptRecorded = "attempt.recorded"

// Activity ledger fields.
const (
	CounterQuizAttempts = "quiz_attempts"
	CounterQuizCorrect  = "quiz_correct"
)
