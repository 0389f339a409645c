package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"learn-quiz-service/internal/domain"
	"learn-quiz-service/internal/token"
)

// Submit validates a token-bound answer set, scores it and records exactly one
// attempt per token. Checks run in order: signature, ownership, expiry, content.
func (s *QuizService) Submit(ctx context.Context, quizID, userID, rawToken string, answers []domain.AnswerSubmission, lang string) (domain.SubmitResult, error) {
	claims, err := s.signer.Parse(rawToken)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if userID == "" || claims.UserID() != userID {
		return domain.SubmitResult{}, domain.ErrTokenOwnership
	}
	if claims.QuizID != quizID {
		return domain.SubmitResult{}, fmt.Errorf("%w: token issued for quiz %s", domain.ErrTokenOwnership, claims.QuizID)
	}
	now := s.now()
	if claims.Expired(now) {
		return domain.SubmitResult{}, domain.ErrTokenExpired
	}

	if lang == "" {
		lang = claims.Lang
	}
	quiz, err := s.quizzes.GetQuiz(ctx, claims.QuizID, lang)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	correct, err := scoreAnswers(quiz, claims, answers)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	result := buildResult(quiz, correct)

	attempt := domain.Attempt{
		ID:             uuid.NewString(),
		QuizID:         quiz.ID,
		UserID:         userID,
		Score:          correct,
		TotalQuestions: len(quiz.Questions),
		Timestamp:      now,
	}
	if err := s.attempts.Record(ctx, domain.AttemptRecord{
		Attempt:   attempt,
		TokenID:   claims.ID,
		ExpiresAt: claims.Deadline(),
	}); err != nil {
		return domain.SubmitResult{}, err
	}

	s.afterRecord(ctx, attempt)
	return result, nil
}

// afterRecord runs the best-effort side effects of a recorded attempt.
func (s *QuizService) afterRecord(ctx context.Context, attempt domain.Attempt) {
	if s.ledger != nil {
		if err := s.ledger.IncrementDailyCounter(ctx, attempt.UserID, domain.CounterQuizAttempts, 1); err != nil {
			log.Printf("activity ledger %s for %s: %v", domain.CounterQuizAttempts, attempt.UserID, err)
		}
		if attempt.Score > 0 {
			if err := s.ledger.IncrementDailyCounter(ctx, attempt.UserID, domain.CounterQuizCorrect, attempt.Score); err != nil {
				log.Printf("activity ledger %s for %s: %v", domain.CounterQuizCorrect, attempt.UserID, err)
			}
		}
	}
	if s.publisher != nil {
		event := domain.AttemptEvent{Type: domain.EventAttemptRecorded, Attempt: attempt}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Printf("publish attempt %s: %v", attempt.ID, err)
		}
	}
}

// scoreAnswers counts correct answers using the option set recorded in the
// token; content is only consulted for which option is correct.
func scoreAnswers(quiz domain.Quiz, claims *token.Claims, answers []domain.AnswerSubmission) (int, error) {
	seen := make(map[string]struct{}, len(answers))
	correct := 0
	for _, ans := range answers {
		if ans.QuestionID == "" || ans.OptionID == "" {
			return 0, fmt.Errorf("%w: empty question or option id", domain.ErrInvalidSubmission)
		}
		if _, dup := seen[ans.QuestionID]; dup {
			return 0, fmt.Errorf("%w: duplicate answer for %s", domain.ErrInvalidSubmission, ans.QuestionID)
		}
		seen[ans.QuestionID] = struct{}{}

		if _, issued := claims.OptionOrder[ans.QuestionID]; !issued {
			return 0, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, ans.QuestionID)
		}
		if !claims.IssuedOption(ans.QuestionID, ans.OptionID) {
			return 0, fmt.Errorf("%w: %s for question %s", domain.ErrOptionNotFound, ans.OptionID, ans.QuestionID)
		}

		question, ok := quiz.Question(ans.QuestionID)
		if !ok {
			return 0, fmt.Errorf("%w: question %s no longer exists", domain.ErrQuizNotFound, ans.QuestionID)
		}
		want := question.CorrectOptionID()
		if want != "" && claims.IssuedOption(ans.QuestionID, want) && ans.OptionID == want {
			correct++
		}
	}
	return correct, nil
}

// buildResult reports the correct option and explanation for every question.
func buildResult(quiz domain.Quiz, correct int) domain.SubmitResult {
	result := domain.SubmitResult{
		Correct:    correct,
		Total:      len(quiz.Questions),
		CorrectMap: make(map[string]string, len(quiz.Questions)),
		Solutions:  make(map[string]string, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		result.CorrectMap[q.ID] = q.CorrectOptionID()
		result.Solutions[q.ID] = q.Explanation
	}
	return result
}
