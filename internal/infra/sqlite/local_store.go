package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"learn-quiz-service/internal/domain"

	_ "modernc.org/sqlite" // driver: sqlite
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_progress (
  quiz_id    TEXT PRIMARY KEY,
  data       TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS attempt_history (
  id   INTEGER PRIMARY KEY CHECK (id = 1),
  data TEXT NOT NULL
);`

// LocalStore keeps the terminal client's autosave blobs and recent attempt
// history in a SQLite file: one JSON document per quiz id and one list.
type LocalStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(ctx context.Context, path string) (*LocalStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Close() error { return s.db.Close() }

func (s *LocalStore) LoadProgress(ctx context.Context, quizID string) (domain.QuizProgress, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM quiz_progress WHERE quiz_id = ?`, quizID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizProgress{}, false, nil
	}
	if err != nil {
		return domain.QuizProgress{}, false, err
	}
	var p domain.QuizProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.QuizProgress{}, false, fmt.Errorf("decode progress: %w", err)
	}
	return p, true, nil
}

func (s *LocalStore) SaveProgress(ctx context.Context, quizID string, p domain.QuizProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quiz_progress (quiz_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(quiz_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		quizID, string(data))
	return err
}

func (s *LocalStore) ClearProgress(ctx context.Context, quizID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_progress WHERE quiz_id = ?`, quizID)
	return err
}

func (s *LocalStore) LoadHistory(ctx context.Context) ([]domain.Attempt, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM attempt_history WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var attempts []domain.Attempt
	if err := json.Unmarshal([]byte(raw), &attempts); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return attempts, nil
}

func (s *LocalStore) SaveHistory(ctx context.Context, attempts []domain.Attempt) error {
	data, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempt_history (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	return err
}
