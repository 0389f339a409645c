package session

import (
	"context"
	"sync"

	"learn-quiz-service/internal/domain"
)

// Store is the client-local persistence behind autosave, resume and history.
// Implementations may fail; the controller treats every failure as a warning.
type Store interface {
	LoadProgress(ctx context.Context, quizID string) (domain.QuizProgress, bool, error)
	SaveProgress(ctx context.Context, quizID string, p domain.QuizProgress) error
	ClearProgress(ctx context.Context, quizID string) error
	LoadHistory(ctx context.Context) ([]domain.Attempt, error)
	SaveHistory(ctx context.Context, attempts []domain.Attempt) error
}

// MemoryStore keeps progress and history in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	progress map[string]domain.QuizProgress
	history  []domain.Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{progress: make(map[string]domain.QuizProgress)}
}

func (s *MemoryStore) LoadProgress(_ context.Context, quizID string) (domain.QuizProgress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[quizID]
	if !ok {
		return domain.QuizProgress{}, false, nil
	}
	return copyProgress(p), true, nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, quizID string, p domain.QuizProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[quizID] = copyProgress(p)
	return nil
}

func (s *MemoryStore) ClearProgress(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, quizID)
	return nil
}

func (s *MemoryStore) LoadHistory(context.Context) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Attempt(nil), s.history...), nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, attempts []domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]domain.Attempt(nil), attempts...)
	return nil
}

func copyProgress(p domain.QuizProgress) domain.QuizProgress {
	selected := make(map[string]string, len(p.SelectedMap))
	for k, v := range p.SelectedMap {
		selected[k] = v
	}
	p.SelectedMap = selected
	return p
}
