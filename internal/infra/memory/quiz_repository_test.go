package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"learn-quiz-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz("en"))}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1", "en"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1", "en"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}

	repo.Invalidate("quiz-1")
	if _, err := repo.GetQuiz(context.Background(), "quiz-1", "en"); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestQuizRepositoryExpiresEntries(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz("en"))}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "quiz-1", "en")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1", "en")

	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestStaticLoaderFallsBackToDefaultLanguage(t *testing.T) {
	de := sampleQuiz("de")
	de.Questions[0].Text = "Was ist 2 + 2?"
	loader := NewStaticQuizLoader(sampleQuiz("en"), de)

	got, err := loader.LoadQuiz(context.Background(), "quiz-1", "de")
	if err != nil || got.Lang != "de" {
		t.Fatalf("expected german quiz, got %+v err=%v", got, err)
	}
	got, err = loader.LoadQuiz(context.Background(), "quiz-1", "fr")
	if err != nil || got.Lang != "en" {
		t.Fatalf("expected fallback to en, got %+v err=%v", got, err)
	}
	if _, err := loader.LoadQuiz(context.Background(), "missing", "en"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID, lang string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizID, lang)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz(lang string) domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Lang:        lang,
		DurationSec: 90,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "What is 2 + 2?",
				Explanation: "Two plus two is four.",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
		},
	}
}
