package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"learn-quiz-service/internal/domain"
)

type State int

const (
	Idle State = iota
	InProgress
	Reviewing
	Submitting
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Reviewing:
		return "reviewing"
	case Submitting:
		return "submitting"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrNoQuiz       = errors.New("quiz payload has no questions")
)

const DefaultHistoryLimit = 10

// Scorer submits collected answers for a token-bound issuance.
type Scorer interface {
	Submit(ctx context.Context, quizID, token string, answers []domain.AnswerSubmission, lang string) (domain.SubmitResult, error)
}

// Deps is everything a Controller talks to. Store and Scorer are required.
type Deps struct {
	Store        Store
	Scorer       Scorer
	Clock        Clock
	Events       chan Event
	Logger       *log.Logger
	UserID       string
	HistoryLimit int
}

// Controller drives one quiz session: selection, navigation, countdown,
// practice reveal, autosave/resume and the final submit.
type Controller struct {
	deps Deps

	mu        sync.Mutex
	quiz      domain.IssuedQuiz
	state     State
	selected  map[string]string
	index     int
	remaining int
	finished  bool
	result    *domain.SubmitResult
	lastErr   error

	ticker   Ticker
	stopTick chan struct{}
}

func NewController(deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = DefaultHistoryLimit
	}
	return &Controller{deps: deps, selected: make(map[string]string)}
}

// Load enters InProgress for an issued quiz, resuming saved progress for the
// same quiz id when present. In exam mode the countdown starts immediately.
func (c *Controller) Load(ctx context.Context, quiz domain.IssuedQuiz) error {
	if len(quiz.Questions) == 0 {
		return ErrNoQuiz
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrInvalidState
	}
	c.quiz = quiz
	c.finished = false
	c.result = nil
	c.lastErr = nil

	if p, ok := c.loadProgressLocked(ctx); ok {
		c.selected = p.SelectedMap
		c.index = p.CurrentIndex
		c.remaining = p.SecondsRemaining
	} else {
		c.zeroLocked()
	}
	c.state = InProgress
	c.autosaveLocked(ctx)
	c.startTickerLocked(ctx)
	c.emit(Event{Type: EventStateChanged, State: c.state})
	return nil
}

// SelectOption records the choice for a question without advancing.
func (c *Controller) SelectOption(ctx context.Context, questionID, optionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return ErrInvalidState
	}
	q, ok := c.question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !hasOption(q, optionID) {
		return domain.ErrOptionNotFound
	}
	c.selected[questionID] = optionID
	c.autosaveLocked(ctx)
	return nil
}

// Advance moves to the next question, or submits on the last one. In
// practice mode the first call reveals the explanation and the second moves on.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == InProgress && c.quiz.Mode == domain.ModePractice:
		c.state = Reviewing
		q := c.quiz.Questions[c.index]
		c.emit(Event{Type: EventRevealed, State: c.state, QuestionID: q.ID, Message: q.Explanation})
		c.mu.Unlock()
		return nil
	case c.state == InProgress || c.state == Reviewing:
		return c.nextLocked(ctx)
	default:
		c.mu.Unlock()
		return ErrInvalidState
	}
}

// Skip moves on without requiring a selection.
func (c *Controller) Skip(ctx context.Context) error {
	c.mu.Lock()
	if c.state != InProgress && c.state != Reviewing {
		c.mu.Unlock()
		return ErrInvalidState
	}
	return c.nextLocked(ctx)
}

// nextLocked is entered with c.mu held and releases it.
func (c *Controller) nextLocked(ctx context.Context) error {
	c.state = InProgress
	if c.index >= len(c.quiz.Questions)-1 {
		c.mu.Unlock()
		return c.Finish(ctx, true)
	}
	c.index++
	c.autosaveLocked(ctx)
	c.emit(Event{Type: EventStateChanged, State: c.state})
	c.mu.Unlock()
	return nil
}

// Tick counts one second off the exam countdown. Reaching zero forces a
// submit. Tick never returns an error; submit failures surface as events.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.finished || c.quiz.Mode != domain.ModeExam || (c.state != InProgress && c.state != Reviewing) {
		c.mu.Unlock()
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	c.autosaveLocked(ctx)
	expired := c.remaining == 0
	c.mu.Unlock()

	if expired {
		_ = c.Finish(ctx, true)
	}
}

// Finish ends the session exactly once. Persisted progress is always
// cleared. With submit, answered questions go to the Scorer; on success the
// attempt is prepended to local history.
func (c *Controller) Finish(ctx context.Context, submit bool) error {
	c.mu.Lock()
	if c.finished || c.state == Idle {
		c.mu.Unlock()
		return nil
	}
	c.finished = true
	c.stopTickerLocked()
	c.clearProgressLocked(ctx)
	if !submit {
		c.state = Finished
		c.emit(Event{Type: EventFinished, State: c.state})
		c.mu.Unlock()
		return nil
	}
	return c.submitLocked(ctx)
}

// Retry resubmits the kept answers with the same token after a failed submit.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Finished || c.lastErr == nil {
		c.mu.Unlock()
		return ErrInvalidState
	}
	return c.submitLocked(ctx)
}

// submitLocked is entered with c.mu held and releases it while the Scorer runs.
func (c *Controller) submitLocked(ctx context.Context) error {
	c.state = Submitting
	c.lastErr = nil
	quiz := c.quiz
	answers := c.answersLocked()
	c.emit(Event{Type: EventStateChanged, State: c.state})
	c.mu.Unlock()

	res, err := c.deps.Scorer.Submit(ctx, quiz.ID, quiz.Token, answers, quiz.Lang)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Finished
	if err != nil {
		c.lastErr = err
		c.emit(Event{Type: EventSubmitFailed, State: c.state, Message: err.Error(), Err: err})
		return err
	}
	c.result = &res
	total := res.Total
	if total == 0 {
		total = len(quiz.Questions)
	}
	c.recordHistoryLocked(ctx, domain.Attempt{
		ID:             uuid.NewString(),
		QuizID:         quiz.ID,
		UserID:         c.deps.UserID,
		Score:          res.Correct,
		TotalQuestions: total,
		Timestamp:      c.deps.Clock.Now().UTC(),
	})
	c.emit(Event{Type: EventFinished, State: c.state, Result: &res})
	return nil
}

// Reset zeroes the session and restarts on the already-issued quiz.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle || c.state == Submitting {
		return ErrInvalidState
	}
	c.stopTickerLocked()
	c.zeroLocked()
	c.finished = false
	c.result = nil
	c.lastErr = nil
	c.state = InProgress
	c.autosaveLocked(ctx)
	c.startTickerLocked(ctx)
	c.emit(Event{Type: EventStateChanged, State: c.state})
	return nil
}

// Close stops the countdown. Persisted progress is kept for a later resume.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	State            State
	QuizID           string
	Mode             domain.Mode
	CurrentIndex     int
	SecondsRemaining int
	Selected         map[string]string
	Result           *domain.SubmitResult
	LastError        error
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := make(map[string]string, len(c.selected))
	for k, v := range c.selected {
		selected[k] = v
	}
	return Snapshot{
		State:            c.state,
		QuizID:           c.quiz.ID,
		Mode:             c.quiz.Mode,
		CurrentIndex:     c.index,
		SecondsRemaining: c.remaining,
		Selected:         selected,
		Result:           c.result,
		LastError:        c.lastErr,
	}
}

// Current returns the question at the current index.
func (c *Controller) Current() (domain.PublicQuestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle || c.index >= len(c.quiz.Questions) {
		return domain.PublicQuestion{}, false
	}
	return c.quiz.Questions[c.index], true
}

// History returns the local attempt history, newest first.
func (c *Controller) History(ctx context.Context) ([]domain.Attempt, error) {
	return c.deps.Store.LoadHistory(ctx)
}

func (c *Controller) zeroLocked() {
	c.selected = make(map[string]string)
	c.index = 0
	c.remaining = c.quiz.DurationSec
}

func (c *Controller) loadProgressLocked(ctx context.Context) (domain.QuizProgress, bool) {
	p, ok, err := c.deps.Store.LoadProgress(ctx, c.quiz.ID)
	if err != nil {
		c.warnLocked("load progress", err)
		return domain.QuizProgress{}, false
	}
	if !ok || p.CurrentIndex < 0 || p.CurrentIndex >= len(c.quiz.Questions) {
		return domain.QuizProgress{}, false
	}
	if c.quiz.Mode == domain.ModeExam && p.SecondsRemaining <= 0 {
		return domain.QuizProgress{}, false
	}
	if p.SelectedMap == nil {
		p.SelectedMap = make(map[string]string)
	}
	return p, true
}

func (c *Controller) autosaveLocked(ctx context.Context) {
	selected := make(map[string]string, len(c.selected))
	for k, v := range c.selected {
		selected[k] = v
	}
	err := c.deps.Store.SaveProgress(ctx, c.quiz.ID, domain.QuizProgress{
		SelectedMap:      selected,
		CurrentIndex:     c.index,
		SecondsRemaining: c.remaining,
	})
	if err != nil {
		c.warnLocked("autosave", err)
	}
}

func (c *Controller) clearProgressLocked(ctx context.Context) {
	if err := c.deps.Store.ClearProgress(ctx, c.quiz.ID); err != nil {
		c.warnLocked("clear progress", err)
	}
}

func (c *Controller) recordHistoryLocked(ctx context.Context, a domain.Attempt) {
	history, err := c.deps.Store.LoadHistory(ctx)
	if err != nil {
		c.warnLocked("load history", err)
		history = nil
	}
	history = append([]domain.Attempt{a}, history...)
	if len(history) > c.deps.HistoryLimit {
		history = history[:c.deps.HistoryLimit]
	}
	if err := c.deps.Store.SaveHistory(ctx, history); err != nil {
		c.warnLocked("save history", err)
	}
}

func (c *Controller) answersLocked() []domain.AnswerSubmission {
	answers := make([]domain.AnswerSubmission, 0, len(c.selected))
	for _, q := range c.quiz.Questions {
		if opt, ok := c.selected[q.ID]; ok && opt != "" {
			answers = append(answers, domain.AnswerSubmission{QuestionID: q.ID, OptionID: opt})
		}
	}
	return answers
}

func (c *Controller) startTickerLocked(ctx context.Context) {
	if c.quiz.Mode != domain.ModeExam || c.ticker != nil {
		return
	}
	t := c.deps.Clock.NewTicker(time.Second)
	stop := make(chan struct{})
	c.ticker = t
	c.stopTick = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-t.C():
				c.Tick(ctx)
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTick)
	c.ticker = nil
	c.stopTick = nil
}

func (c *Controller) question(id string) (domain.PublicQuestion, bool) {
	for _, q := range c.quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.PublicQuestion{}, false
}

func hasOption(q domain.PublicQuestion, optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

func (c *Controller) warnLocked(op string, err error) {
	c.deps.Logger.Printf("session %s: %s: %v", c.quiz.ID, op, err)
	c.emit(Event{Type: EventWarning, State: c.state, Message: op, Err: err})
}

func (c *Controller) emit(ev Event) {
	ch := c.deps.Events
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
