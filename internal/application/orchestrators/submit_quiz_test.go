package orchestrators

import (
	"context"
	"errors"
	"testing"

	"aceplatform/internal/domain/quiz"
)

func quizFixture() *fakeQuizStore {
	return &fakeQuizStore{
		hasQuiz: true,
		quiz: quiz.Quiz{
			ID:                  "q-1",
			EventID:             "ev-1",
			PassingScorePercent: 80,
			MaxAttempts:         2,
			Active:              true,
		},
		questions: []quiz.Question{
			{ID: "qq-1", QuizID: "q-1", CorrectAnswers: []string{"a"}},
			{ID: "qq-2", QuizID: "q-1", CorrectAnswers: []string{"b", "c"}},
			{ID: "qq-3", QuizID: "q-1", CorrectAnswers: []string{"d"}},
		},
	}
}

func TestSubmitQuiz(t *testing.T) {
	deps := func(store *fakeQuizStore) SubmitQuizDeps {
		return SubmitQuizDeps{QuizStore: store, GenerateID: seqID(), Now: fixedNow(testBase)}
	}

	t.Run("scores order-independent and records the attempt", func(t *testing.T) {
		store := quizFixture()
		sub, err := ExecuteSubmitQuiz(context.Background(), SubmitQuizInput{
			EventID:       "ev-1",
			ParticipantID: "reg-1",
			Answers: map[string][]string{
				"qq-1": {"a"},
				"qq-2": {"c", "b"}, // reversed order still counts
				"qq-3": {"x"},
			},
		}, deps(store))
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if sub.Score != 2 || sub.ScorePercent != 67 {
			t.Errorf("score = %d (%d%%), want 2 (67%%)", sub.Score, sub.ScorePercent)
		}
		if sub.Passed {
			t.Error("67% should not pass an 80% quiz")
		}
		if sub.AttemptNumber != 1 {
			t.Errorf("attempt = %d, want 1", sub.AttemptNumber)
		}
	})

	t.Run("enforces the attempt limit", func(t *testing.T) {
		store := quizFixture()
		d := deps(store)
		answers := map[string][]string{"qq-1": {"a"}}
		for i := 0; i < 2; i++ {
			if _, err := ExecuteSubmitQuiz(context.Background(), SubmitQuizInput{EventID: "ev-1", ParticipantID: "reg-1", Answers: answers}, d); err != nil {
				t.Fatalf("attempt %d failed: %v", i+1, err)
			}
		}
		_, err := ExecuteSubmitQuiz(context.Background(), SubmitQuizInput{EventID: "ev-1", ParticipantID: "reg-1", Answers: answers}, d)
		if !errors.Is(err, quiz.ErrMaxAttemptsReached) {
			t.Fatalf("err = %v, want ErrMaxAttemptsReached", err)
		}
	})

	t.Run("rejects inactive quizzes", func(t *testing.T) {
		store := quizFixture()
		store.quiz.Active = false
		_, err := ExecuteSubmitQuiz(context.Background(), SubmitQuizInput{EventID: "ev-1", ParticipantID: "reg-1"}, deps(store))
		if !errors.Is(err, quiz.ErrQuizInactive) {
			t.Fatalf("err = %v, want ErrQuizInactive", err)
		}
	})
}
