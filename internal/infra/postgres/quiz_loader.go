package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"learn-quiz-service/internal/domain"
)

// QuizLoader loads published quiz JSONB from Postgres, falling back to the
// quiz's default language when the requested one has no translation.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID, lang string) (domain.Quiz, error) {
	var (
		raw         []byte
		foundLang   string
		durationSec int
	)
	err := l.pool.QueryRow(ctx, `
		SELECT data, lang, duration_sec FROM quizzes
		WHERE id=$1 AND published AND (lang=$2 OR is_default)
		ORDER BY (lang=$2) DESC
		LIMIT 1`, quizID, lang).Scan(&raw, &foundLang, &durationSec)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	quiz.Lang = foundLang
	quiz.DurationSec = durationSec
	return quiz, nil
}
