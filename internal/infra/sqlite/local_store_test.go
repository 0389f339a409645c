package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"learn-quiz-service/internal/domain"
)

func TestLocalStoreProgressRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTemp(t)

	if _, ok, err := store.LoadProgress(ctx, "quiz-1"); err != nil || ok {
		t.Fatalf("expected no progress, ok=%v err=%v", ok, err)
	}
	p := domain.QuizProgress{SelectedMap: map[string]string{"q1": "opt2"}, CurrentIndex: 2, SecondsRemaining: 45}
	if err := store.SaveProgress(ctx, "quiz-1", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.CurrentIndex = 3
	if err := store.SaveProgress(ctx, "quiz-1", p); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, ok, err := store.LoadProgress(ctx, "quiz-1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.CurrentIndex != 3 || got.SecondsRemaining != 45 || got.SelectedMap["q1"] != "opt2" {
		t.Fatalf("unexpected progress %+v", got)
	}

	if err := store.ClearProgress(ctx, "quiz-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.LoadProgress(ctx, "quiz-1"); ok {
		t.Fatalf("expected progress cleared")
	}
}

func TestLocalStoreHistorySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	attempts := []domain.Attempt{
		{ID: "a2", QuizID: "quiz-1", Score: 2, TotalQuestions: 2, Timestamp: time.Date(2026, 5, 4, 10, 1, 0, 0, time.UTC)},
		{ID: "a1", QuizID: "quiz-1", Score: 1, TotalQuestions: 2, Timestamp: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
	}
	if err := store.SaveHistory(ctx, attempts); err != nil {
		t.Fatalf("save history: %v", err)
	}
	store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a2" || !got[0].Timestamp.Equal(attempts[0].Timestamp) {
		t.Fatalf("unexpected history %+v", got)
	}
}

func openTemp(t *testing.T) *LocalStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
