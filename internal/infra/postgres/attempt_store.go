package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"learn-quiz-service/internal/domain"
)

// AttemptStore persists attempts and consumes quiz tokens in one transaction.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Record(ctx context.Context, rec domain.AttemptRecord) error {
	a := rec.Attempt
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO used_quiz_tokens (token_id, attempt_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (token_id) DO NOTHING`, rec.TokenID, a.ID, rec.ExpiresAt)
		if err != nil {
			return fmt.Errorf("consume token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTokenUsed
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO quiz_attempts (id, quiz_id, user_id, score, total_questions, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, a.QuizID, a.UserID, a.Score, a.TotalQuestions, a.Timestamp)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	})
}

func (s *AttemptStore) History(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, user_id, score, total_questions, created_at
		FROM quiz_attempts
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.TotalQuestions, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
