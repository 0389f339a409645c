package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"learn-quiz-service/internal/app"
	"learn-quiz-service/internal/domain"
	"learn-quiz-service/internal/infra/memory"
	"learn-quiz-service/internal/token"
)

func TestGetQuizShufflesAndHidesCorrectness(t *testing.T) {
	env := newTestEnv(t)

	issued, err := env.service.GetQuiz(context.Background(), "quiz-1", "u1", "en", domain.ModeExam)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if issued.Token == "" || issued.DurationSec != 90 || len(issued.Questions) != 2 {
		t.Fatalf("unexpected issuance %+v", issued)
	}
	claims, err := env.signer.Parse(issued.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	for _, q := range issued.Questions {
		if q.Explanation != "" {
			t.Fatalf("exam payload leaked answers for %s", q.ID)
		}
		order := claims.OptionOrder[q.ID]
		if len(order) != len(q.Options) {
			t.Fatalf("order length mismatch for %s", q.ID)
		}
		for i, opt := range q.Options {
			if order[i] != opt.ID {
				t.Fatalf("token order %v does not match payload for %s", order, q.ID)
			}
		}
	}
	want := env.now.Add(90*time.Second + 30*time.Second)
	if !claims.Deadline().Equal(want.Truncate(time.Second)) {
		t.Fatalf("expected deadline %v, got %v", want, claims.Deadline())
	}
}

func TestGetQuizSeedDeterminesShuffle(t *testing.T) {
	a := newTestEnv(t, app.WithSeedSource(func() int64 { return 7 }))
	b := newTestEnv(t, app.WithSeedSource(func() int64 { return 7 }))

	qa, _ := a.service.GetQuiz(context.Background(), "quiz-1", "u1", "en", domain.ModeExam)
	qb, _ := b.service.GetQuiz(context.Background(), "quiz-1", "u1", "en", domain.ModeExam)
	for i := range qa.Questions {
		for j := range qa.Questions[i].Options {
			if qa.Questions[i].Options[j].ID != qb.Questions[i].Options[j].ID {
				t.Fatalf("same seed should produce the same order")
			}
		}
	}
}

func TestGetQuizPracticeModeCarriesExplanations(t *testing.T) {
	env := newTestEnv(t)

	issued, err := env.service.GetQuiz(context.Background(), "quiz-1", "u1", "en", domain.ModePractice)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if issued.Questions[0].Explanation == "" {
		t.Fatalf("practice payload should reveal explanations, got %+v", issued.Questions[0])
	}
	raw, err := json.Marshal(issued.Questions)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "correct") {
		t.Fatalf("practice payload exposes correctness: %s", raw)
	}
	claims, _ := env.signer.Parse(issued.Token)
	if claims.Mode != domain.ModePractice || !claims.Deadline().Equal(env.now.Add(24*time.Hour).Truncate(time.Second)) {
		t.Fatalf("unexpected practice claims %+v", claims)
	}
}

func TestPracticePayloadDoesNotRevealExamAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	practice, err := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModePractice)
	if err != nil {
		t.Fatalf("practice: %v", err)
	}
	exam, err := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
	if err != nil {
		t.Fatalf("exam: %v", err)
	}

	// Everything a client learns from practice is the option set, which is
	// identical to the exam's; the only way to tell options apart is a submit.
	for i, pq := range practice.Questions {
		eq := exam.Questions[i]
		if pq.ID != eq.ID || len(pq.Options) != len(eq.Options) {
			t.Fatalf("question %s differs between modes", pq.ID)
		}
		ids := map[string]bool{}
		for _, opt := range eq.Options {
			ids[opt.ID] = true
		}
		for _, opt := range pq.Options {
			if !ids[opt.ID] {
				t.Fatalf("practice option %s missing from exam", opt.ID)
			}
		}
	}

	// Answering every exam question with a wrong option scores zero; nothing
	// in the practice payload lets a client pick better before submitting.
	answers := make([]domain.AnswerSubmission, 0, len(exam.Questions))
	for _, q := range sampleQuiz().Questions {
		for _, opt := range q.Options {
			if !opt.Correct {
				answers = append(answers, domain.AnswerSubmission{QuestionID: q.ID, OptionID: opt.ID})
				break
			}
		}
	}
	result, err := env.service.Submit(ctx, "quiz-1", "u1", exam.Token, answers, "en")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 0 {
		t.Fatalf("expected zero score, got %d", result.Correct)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.service.GetQuiz(context.Background(), "nope", "u1", "en", domain.ModeExam); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitScoresAndReportsEveryQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)

	env.advance(10 * time.Second)
	result, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, []domain.AnswerSubmission{
		{QuestionID: "q1", OptionID: "o2"},
	}, "en")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 1 || result.Total != 2 {
		t.Fatalf("expected 1/2, got %+v", result)
	}
	if len(result.CorrectMap) != 2 || len(result.Solutions) != 2 {
		t.Fatalf("expected maps for every question, got %+v", result)
	}
	if result.CorrectMap["q2"] != "b1" || result.Solutions["q1"] == "" {
		t.Fatalf("unexpected review maps %+v", result)
	}

	history, _ := env.service.History(ctx, "u1", 10)
	if len(history) != 1 || history[0].Score != 1 || history[0].TotalQuestions != 2 {
		t.Fatalf("unexpected server history %+v", history)
	}
	if got := env.ledger.Counter("u1", domain.CounterQuizAttempts, env.now); got != 1 {
		t.Fatalf("expected ledger attempt counter 1, got %d", got)
	}
	if got := env.ledger.Counter("u1", domain.CounterQuizCorrect, env.now); got != 1 {
		t.Fatalf("expected ledger correct counter 1, got %d", got)
	}
}

func TestSubmitBothCorrectFinishedEarly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)

	env.advance(10 * time.Second)
	result, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, []domain.AnswerSubmission{
		{QuestionID: "q1", OptionID: "o2"},
		{QuestionID: "q2", OptionID: "b1"},
	}, "en")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 2 {
		t.Fatalf("expected 2 correct, got %d", result.Correct)
	}
}

func TestSubmitSameTokenTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
	answers := []domain.AnswerSubmission{{QuestionID: "q1", OptionID: "o2"}}

	if _, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, answers, "en"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, answers, "en")
	if !errors.Is(err, domain.ErrTokenUsed) || domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden reuse, got %v", err)
	}
	history, _ := env.service.History(ctx, "u1", 10)
	if len(history) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(history))
	}
}

func TestConcurrentSubmitsHaveSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
	answers := []domain.AnswerSubmission{{QuestionID: "q1", OptionID: "o2"}}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, answers, "en")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, rejected := 0, 0
	for err := range errs {
		if err == nil {
			wins++
		} else if errors.Is(err, domain.ErrTokenUsed) {
			rejected++
		}
	}
	if wins != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got wins=%d rejected=%d", wins, rejected)
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("forged signature", func(t *testing.T) {
		env := newTestEnv(t)
		other := token.NewSigner([]byte("attacker"))
		forged, _ := other.Sign(token.Claims{QuizID: "quiz-1"})
		_, err := env.service.Submit(ctx, "quiz-1", "u1", forged, nil, "en")
		if domain.KindOf(err) != domain.KindUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.service.Submit(ctx, "quiz-1", "u1", "", nil, "en")
		if !errors.Is(err, domain.ErrTokenMissing) {
			t.Fatalf("expected missing token, got %v", err)
		}
	})

	t.Run("ownership before expiry", func(t *testing.T) {
		env := newTestEnv(t)
		issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
		env.advance(time.Hour)
		_, err := env.service.Submit(ctx, "quiz-1", "u2", issued.Token, nil, "en")
		if !errors.Is(err, domain.ErrTokenOwnership) {
			t.Fatalf("expected ownership error, got %v", err)
		}
	})

	t.Run("wrong quiz", func(t *testing.T) {
		env := newTestEnv(t)
		issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
		_, err := env.service.Submit(ctx, "quiz-2", "u1", issued.Token, nil, "en")
		if !errors.Is(err, domain.ErrTokenOwnership) {
			t.Fatalf("expected ownership error, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t)
		issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
		env.advance(90*time.Second + 31*time.Second)
		_, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, nil, "en")
		if !errors.Is(err, domain.ErrTokenExpired) || domain.KindOf(err) != domain.KindForbidden {
			t.Fatalf("expected time limit exceeded, got %v", err)
		}
	})

	t.Run("within grace", func(t *testing.T) {
		env := newTestEnv(t)
		issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
		env.advance(90*time.Second + 20*time.Second)
		if _, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, nil, "en"); err != nil {
			t.Fatalf("expected submit inside grace to pass, got %v", err)
		}
	})

	t.Run("quiz removed after issue", func(t *testing.T) {
		env := newTestEnv(t)
		issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
		env.loader.Remove("quiz-1")
		_, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, nil, "en")
		if domain.KindOf(err) != domain.KindNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestSubmitRejectsOptionsOutsideIssuance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)

	_, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, []domain.AnswerSubmission{
		{QuestionID: "q1", OptionID: "b1"},
	}, "en")
	if !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}

	_, err = env.service.Submit(ctx, "quiz-1", "u1", issued.Token, []domain.AnswerSubmission{
		{QuestionID: "q9", OptionID: "o1"},
	}, "en")
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	_, err = env.service.Submit(ctx, "quiz-1", "u1", issued.Token, []domain.AnswerSubmission{
		{QuestionID: "q1", OptionID: "o1"},
		{QuestionID: "q1", OptionID: "o2"},
	}, "en")
	if !errors.Is(err, domain.ErrInvalidSubmission) {
		t.Fatalf("expected duplicate answers rejected, got %v", err)
	}

	// rejected submissions do not consume the token
	if _, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, nil, "en"); err != nil {
		t.Fatalf("expected token still usable, got %v", err)
	}
}

func TestSubmitPublishesAttemptEvent(t *testing.T) {
	hub := app.NewActivityHub()
	env := newTestEnv(t, app.WithPublisher(hub))
	ctx := context.Background()

	events, cancel := hub.Subscribe("u1")
	defer cancel()

	issued, _ := env.service.GetQuiz(ctx, "quiz-1", "u1", "en", domain.ModeExam)
	if _, err := env.service.Submit(ctx, "quiz-1", "u1", issued.Token, nil, "en"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != domain.EventAttemptRecorded || ev.Attempt.QuizID != "quiz-1" || ev.Attempt.Score != 0 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected attempt event")
	}
}

type testEnv struct {
	service *app.QuizService
	signer  *token.Signer
	loader  *memory.StaticQuizLoader
	ledger  *memory.ActivityLedger
	now     time.Time
	mu      sync.Mutex
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func newTestEnv(t *testing.T, opts ...app.Option) *testEnv {
	t.Helper()
	env := &testEnv{
		signer: token.NewSigner([]byte("test-secret")),
		loader: memory.NewStaticQuizLoader(sampleQuiz()),
		now:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	env.ledger = memory.NewActivityLedgerWithClock(env.clock)
	// zero TTL disables caching so content removal is visible immediately
	quizzes := memory.NewQuizRepository(env.loader, 0)
	opts = append([]app.Option{app.WithClock(env.clock)}, opts...)
	env.service = app.NewQuizService(quizzes, memory.NewAttemptStore(0), env.ledger, env.signer, opts...)
	return env
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Lang:        "en",
		DurationSec: 90,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "Select the right option",
				Explanation: "Only the second option is right.",
				Options: []domain.Option{
					{ID: "o1", Text: "Wrong", Correct: false},
					{ID: "o2", Text: "Right", Correct: true},
					{ID: "o3", Text: "Also wrong", Correct: false},
				},
			},
			{
				ID:          "q2",
				Text:        "Pick the first",
				Explanation: "The first one.",
				Options: []domain.Option{
					{ID: "b1", Text: "First", Correct: true},
					{ID: "b2", Text: "Second", Correct: false},
				},
			},
		},
	}
}
