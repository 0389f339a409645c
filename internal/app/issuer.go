package app

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"learn-quiz-service/internal/domain"
	"learn-quiz-service/internal/token"
)

// GetQuiz returns a freshly shuffled quiz and the signed token recording the
// shuffle. Issuance is stateless: the token is the only state.
func (s *QuizService) GetQuiz(ctx context.Context, quizID, userID, lang string, mode domain.Mode) (domain.IssuedQuiz, error) {
	if userID == "" {
		return domain.IssuedQuiz{}, domain.ErrUnauthenticated
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID, lang)
	if err != nil {
		return domain.IssuedQuiz{}, err
	}

	seed := s.seed()
	questions, order := shuffleOptions(quiz, rand.New(rand.NewSource(seed)), mode)

	duration := quiz.DurationSec
	if duration <= 0 {
		duration = defaultDurationSec
	}
	now := s.now()
	expiry := now.Add(time.Duration(duration)*time.Second + s.grace)
	if mode == domain.ModePractice {
		expiry = now.Add(s.practiceWindow)
	}

	questionIDs := make([]string, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questionIDs = append(questionIDs, q.ID)
	}

	signed, err := s.signer.Sign(token.Claims{
		QuizID:      quiz.ID,
		Lang:        quiz.Lang,
		Mode:        mode,
		DurationSec: duration,
		Seed:        seed,
		Questions:   questionIDs,
		OptionOrder: order,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})
	if err != nil {
		return domain.IssuedQuiz{}, fmt.Errorf("sign quiz token: %w", err)
	}

	return domain.IssuedQuiz{
		ID:          quiz.ID,
		Lang:        quiz.Lang,
		Mode:        mode,
		DurationSec: duration,
		Questions:   questions,
		Token:       signed,
	}, nil
}

// shuffleOptions permutes every question's options and returns the public view
// alongside the recorded order per question.
func shuffleOptions(quiz domain.Quiz, rnd *rand.Rand, mode domain.Mode) ([]domain.PublicQuestion, map[string][]string) {
	questions := make([]domain.PublicQuestion, 0, len(quiz.Questions))
	order := make(map[string][]string, len(quiz.Questions))

	for _, q := range quiz.Questions {
		opts := make([]domain.PublicOption, len(q.Options))
		for i, opt := range q.Options {
			opts[i] = domain.PublicOption{ID: opt.ID, Text: opt.Text}
		}
		rnd.Shuffle(len(opts), func(i, j int) {
			opts[i], opts[j] = opts[j], opts[i]
		})

		ids := make([]string, len(opts))
		for i, opt := range opts {
			ids[i] = opt.ID
		}
		order[q.ID] = ids

		pq := domain.PublicQuestion{ID: q.ID, Text: q.Text, Options: opts}
		if mode == domain.ModePractice {
			pq.Explanation = q.Explanation
		}
		questions = append(questions, pq)
	}
	return questions, order
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.BigEndian.Uint64(buf[:]))
}
