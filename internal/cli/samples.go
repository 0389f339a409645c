package cli

import "learn-quiz-service/internal/domain"

// sampleQuizzes seeds the in-memory loader when no Postgres is configured.
// The first translation listed is the default language.
func sampleQuizzes() []domain.Quiz {
	en := domain.Quiz{
		ID:          "quiz-1",
		Lang:        "en",
		DurationSec: 90,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "What is 2 + 2?",
				Explanation: "Two plus two is four.",
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5"},
				},
			},
			{
				ID:          "q2",
				Text:        "Which planet is known as the red planet?",
				Explanation: "Iron oxide on its surface gives Mars its colour.",
				Options: []domain.Option{
					{ID: "p1", Text: "Mars", Correct: true},
					{ID: "p2", Text: "Venus"},
					{ID: "p3", Text: "Jupiter"},
				},
			},
		},
	}
	de := domain.Quiz{
		ID:          "quiz-1",
		Lang:        "de",
		DurationSec: 90,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "Was ist 2 + 2?",
				Explanation: "Zwei plus zwei ist vier.",
				Options:     []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4", Correct: true}, {ID: "o3", Text: "5"}},
			},
			{
				ID:          "q2",
				Text:        "Welcher Planet wird der rote Planet genannt?",
				Explanation: "Eisenoxid an der Oberfläche färbt den Mars rot.",
				Options:     []domain.Option{{ID: "p1", Text: "Mars", Correct: true}, {ID: "p2", Text: "Venus"}, {ID: "p3", Text: "Jupiter"}},
			},
		},
	}
	return []domain.Quiz{en, de}
}
