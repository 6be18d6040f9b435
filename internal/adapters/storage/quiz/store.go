package quiz

import (
	"context"

	domain "aceplatform/internal/domain/quiz"
)

// Store persists quizzes, their questions, and participant submissions.
type Store interface {
	FindByEvent(ctx context.Context, eventID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, value domain.Quiz) error
	ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	SaveQuestion(ctx context.Context, value domain.Question) error
	ListSubmissions(ctx context.Context, quizID, participantID string) ([]domain.Submission, error)
	SaveSubmission(ctx context.Context, value domain.Submission) error
}
