// Package quiz defines event assessments, submissions, and scoring.
package quiz

import (
	"errors"
	"math"
	"time"
)

// DefaultPassingScorePercent is used when an event quiz does not set its own.
const DefaultPassingScorePercent = 80

// Domain errors
var (
	ErrNoQuestions        = errors.New("quiz has no questions")
	ErrMaxAttemptsReached = errors.New("maximum quiz attempts reached")
	ErrQuizInactive       = errors.New("quiz is not active")
)

// Quiz holds the assessment configuration for an event.
type Quiz struct {
	ID                     string
	EventID                string
	Title                  string
	PassingScorePercent    int
	MaxAttempts            int // 0 means unlimited
	TimeLimitMinutes       int // 0 means no limit
	ShuffleQuestions       bool
	RequiredForCertificate bool
	Active                 bool
}

// Validate checks if the Quiz has valid data.
// PRE: Quiz struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (q *Quiz) Validate() error {
	if q.EventID == "" {
		return errors.New("quiz must reference an event")
	}
	if q.PassingScorePercent < 0 || q.PassingScorePercent > 100 {
		return errors.New("passing score must be between 0 and 100")
	}
	if q.MaxAttempts < 0 {
		return errors.New("max attempts cannot be negative")
	}
	return nil
}

// Question is a single quiz question with its accepted answers.
type Question struct {
	ID             string
	QuizID         string
	Text           string
	Options        []string
	CorrectAnswers []string
	Points         int
	OrderIndex     int
}

// Submission records one scored quiz attempt by a participant.
type Submission struct {
	ID             string
	QuizID         string
	EventID        string
	ParticipantID  string
	AttemptNumber  int
	Score          int // correct answer count
	TotalQuestions int
	ScorePercent   int
	Passed         bool
	SubmittedAt    time.Time
}

// Score grades a set of answers against the quiz questions. Answer
// matching is order-independent within a question; the percentage is
// rounded to the nearest integer.
// PRE: questions is non-empty
// POST: Returns correct count and rounded percentage
func Score(questions []Question, answers map[string][]string) (correct int, percent int, err error) {
	if len(questions) == 0 {
		return 0, 0, ErrNoQuestions
	}
	for _, q := range questions {
		if matches(answers[q.ID], q.CorrectAnswers) {
			correct++
		}
	}
	percent = int(math.Round(float64(correct) / float64(len(questions)) * 100))
	return correct, percent, nil
}

// matches reports whether the submitted answers equal the correct set,
// ignoring order.
func matches(submitted, correct []string) bool {
	if len(submitted) != len(correct) || len(correct) == 0 {
		return false
	}
	for _, s := range submitted {
		found := false
		for _, c := range correct {
			if s == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Passed reports whether any submission meets the quiz's passing score.
// This is the "required quiz passed" condition used by certificate
// issuance: it looks at the best attempt, not the latest.
// POST: Returns true if any submission's percentage reaches the passing score
func Passed(submissions []Submission, q Quiz) bool {
	for _, s := range submissions {
		if s.ScorePercent >= q.PassingScorePercent {
			return true
		}
	}
	return false
}

// AttemptAllowed reports whether the participant may start another
// attempt given the quiz's attempt limit.
func AttemptAllowed(priorAttempts int, q Quiz) bool {
	return q.MaxAttempts == 0 || priorAttempts < q.MaxAttempts
}
