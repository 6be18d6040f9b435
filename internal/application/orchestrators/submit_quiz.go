package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"aceplatform/internal/domain/quiz"
)

// SubmitQuizInput carries a participant's answers for one attempt.
// Answers map question ids to the selected option(s).
type SubmitQuizInput struct {
	EventID       string
	ParticipantID string
	Answers       map[string][]string
}

// SubmitQuizDeps holds dependencies for SubmitQuiz.
type SubmitQuizDeps struct {
	QuizStore  QuizStore
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSubmitQuiz grades one quiz attempt and records the submission.
// The attempt limit counts prior submissions; scoring is order-
// independent within each question. Every attempt is stored, passed or
// not, since issuance looks at the best attempt.
// PRE: the event has an active quiz
// POST: Submission saved with score and pass flag, or
// ErrMaxAttemptsReached / ErrQuizInactive
func ExecuteSubmitQuiz(ctx context.Context, input SubmitQuizInput, deps SubmitQuizDeps) (quiz.Submission, error) {
	q, err := deps.QuizStore.FindByEvent(ctx, input.EventID)
	if err != nil {
		return quiz.Submission{}, err
	}
	if !q.Active {
		return quiz.Submission{}, quiz.ErrQuizInactive
	}

	prior, err := deps.QuizStore.ListSubmissions(ctx, q.ID, input.ParticipantID)
	if err != nil {
		return quiz.Submission{}, err
	}
	if !quiz.AttemptAllowed(len(prior), q) {
		return quiz.Submission{}, quiz.ErrMaxAttemptsReached
	}

	questions, err := deps.QuizStore.ListQuestions(ctx, q.ID)
	if err != nil {
		return quiz.Submission{}, err
	}
	correct, percent, err := quiz.Score(questions, input.Answers)
	if err != nil {
		return quiz.Submission{}, err
	}

	sub := quiz.Submission{
		ID:             deps.GenerateID(),
		QuizID:         q.ID,
		EventID:        input.EventID,
		ParticipantID:  input.ParticipantID,
		AttemptNumber:  len(prior) + 1,
		Score:          correct,
		TotalQuestions: len(questions),
		ScorePercent:   percent,
		Passed:         percent >= q.PassingScorePercent,
		SubmittedAt:    deps.Now(),
	}
	if err := deps.QuizStore.SaveSubmission(ctx, sub); err != nil {
		return quiz.Submission{}, err
	}

	slog.Info("quiz_event", "event", "quiz_submitted", "quiz_id", q.ID, "participant_id", input.ParticipantID, "attempt", sub.AttemptNumber, "percent", percent, "passed", sub.Passed)
	return sub, nil
}
