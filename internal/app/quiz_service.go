package app

import (
	"context"
	"time"

	"learn-quiz-service/internal/domain"
	"learn-quiz-service/internal/token"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID, lang string) (domain.Quiz, error)
}

// AttemptStore persists scored attempts. Record must consume the token id and
// insert the attempt atomically, returning domain.ErrTokenUsed when the token
// was already consumed.
type AttemptStore interface {
	Record(ctx context.Context, rec domain.AttemptRecord) error
	History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error)
}

// ActivityLedger keeps per-user daily counters.
type ActivityLedger interface {
	IncrementDailyCounter(ctx context.Context, userID, field string, amount int) error
}

// EventPublisher fans attempt events out to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AttemptEvent) error
}

const (
	defaultGrace          = 30 * time.Second
	defaultPracticeWindow = 24 * time.Hour
	defaultDurationSec    = 600
	defaultHistoryLimit   = 10
)

// QuizService issues token-bound quizzes and scores submissions.
type QuizService struct {
	quizzes   QuizRepository
	attempts  AttemptStore
	ledger    ActivityLedger
	publisher EventPublisher
	signer    *token.Signer

	now            func() time.Time
	seed           func() int64
	grace          time.Duration
	practiceWindow time.Duration
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithSeedSource overrides the per-issuance shuffle seed source.
func WithSeedSource(seed func() int64) Option {
	return func(s *QuizService) { s.seed = seed }
}

// WithGrace sets the window added to the quiz duration before a token expires.
func WithGrace(d time.Duration) Option {
	return func(s *QuizService) { s.grace = d }
}

// WithPracticeWindow sets how long practice tokens stay valid.
func WithPracticeWindow(d time.Duration) Option {
	return func(s *QuizService) { s.practiceWindow = d }
}

// WithPublisher attaches an event publisher notified after each recorded attempt.
func WithPublisher(p EventPublisher) Option {
	return func(s *QuizService) { s.publisher = p }
}

func NewQuizService(quizzes QuizRepository, attempts AttemptStore, ledger ActivityLedger, signer *token.Signer, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:        quizzes,
		attempts:       attempts,
		ledger:         ledger,
		signer:         signer,
		now:            time.Now,
		seed:           cryptoSeed,
		grace:          defaultGrace,
		practiceWindow: defaultPracticeWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the caller's most recent attempts, newest first.
func (s *QuizService) History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.attempts.History(ctx, userID, limit)
}
