package quiz_test

import (
	"testing"

	"aceplatform/internal/domain/quiz"
)

func threeQuestions() []quiz.Question {
	return []quiz.Question{
		{ID: "q1", CorrectAnswers: []string{"a"}},
		{ID: "q2", CorrectAnswers: []string{"b", "c"}},
		{ID: "q3", CorrectAnswers: []string{"d"}},
	}
}

// TestScore tests grading, including order-independent multi-answer matching.
func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[string][]string
		wantCorrect int
		wantPercent int
	}{
		{
			name:        "all correct",
			answers:     map[string][]string{"q1": {"a"}, "q2": {"c", "b"}, "q3": {"d"}},
			wantCorrect: 3,
			wantPercent: 100,
		},
		{
			name:        "two of three",
			answers:     map[string][]string{"q1": {"a"}, "q2": {"b"}, "q3": {"d"}},
			wantCorrect: 2,
			wantPercent: 67,
		},
		{
			name:        "extra answer fails the question",
			answers:     map[string][]string{"q1": {"a", "b"}, "q2": {}, "q3": {}},
			wantCorrect: 0,
			wantPercent: 0,
		},
		{
			name:        "missing answers",
			answers:     map[string][]string{},
			wantCorrect: 0,
			wantPercent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, percent, err := quiz.Score(threeQuestions(), tt.answers)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if correct != tt.wantCorrect {
				t.Errorf("correct = %d, want %d", correct, tt.wantCorrect)
			}
			if percent != tt.wantPercent {
				t.Errorf("percent = %d, want %d", percent, tt.wantPercent)
			}
		})
	}
}

// TestScore_NoQuestions tests the empty-quiz error.
func TestScore_NoQuestions(t *testing.T) {
	if _, _, err := quiz.Score(nil, nil); err != quiz.ErrNoQuestions {
		t.Errorf("Score(nil) error = %v, want ErrNoQuestions", err)
	}
}

// TestPassed tests the best-attempt pass check.
func TestPassed(t *testing.T) {
	q := quiz.Quiz{ID: "qz1", EventID: "e1", PassingScorePercent: 80}

	subs := []quiz.Submission{
		{ScorePercent: 60},
		{ScorePercent: 85},
		{ScorePercent: 40},
	}
	if !quiz.Passed(subs, q) {
		t.Error("Passed() = false with an 85 percent attempt against an 80 percent bar")
	}
	if quiz.Passed(subs[:1], q) {
		t.Error("Passed() = true with only a 60 percent attempt")
	}
	if quiz.Passed(nil, q) {
		t.Error("Passed() = true with no submissions")
	}
}

// TestAttemptAllowed tests the attempt limit, including unlimited.
func TestAttemptAllowed(t *testing.T) {
	limited := quiz.Quiz{MaxAttempts: 2}
	if !quiz.AttemptAllowed(1, limited) {
		t.Error("second attempt should be allowed with a limit of 2")
	}
	if quiz.AttemptAllowed(2, limited) {
		t.Error("third attempt should be rejected with a limit of 2")
	}
	unlimited := quiz.Quiz{MaxAttempts: 0}
	if !quiz.AttemptAllowed(99, unlimited) {
		t.Error("unlimited quiz should always allow attempts")
	}
}
