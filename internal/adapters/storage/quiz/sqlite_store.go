package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/quiz"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new quiz store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const quizColumns = "id, event_id, title, passing_score_percent, max_attempts, time_limit_minutes, shuffle_questions, required_for_certificate, active"

// FindByEvent retrieves the quiz attached to an event. Each event has
// at most one quiz.
// PRE: eventID is non-empty
// POST: Returns the quiz or an error if none is configured
func (s *SQLiteStore) FindByEvent(ctx context.Context, eventID string) (domain.Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+quizColumns+" FROM quiz WHERE event_id = ?", eventID)
	entity, err := scanQuiz(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Quiz{}, fmt.Errorf("quiz not found for event: %w", err)
	}
	return entity, err
}

// SaveQuiz persists a Quiz to the database. Upserts on event_id since
// an event carries at most one quiz.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) SaveQuiz(ctx context.Context, entity domain.Quiz) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO quiz (` + quizColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
		title=excluded.title,
		passing_score_percent=excluded.passing_score_percent,
		max_attempts=excluded.max_attempts,
		time_limit_minutes=excluded.time_limit_minutes,
		shuffle_questions=excluded.shuffle_questions,
		required_for_certificate=excluded.required_for_certificate,
		active=excluded.active`

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.EventID,
		entity.Title,
		entity.PassingScorePercent,
		entity.MaxAttempts,
		entity.TimeLimitMinutes,
		boolToInt(entity.ShuffleQuestions),
		boolToInt(entity.RequiredForCertificate),
		boolToInt(entity.Active),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

const questionColumns = "id, quiz_id, text, options, correct_answers, points, order_index"

// ListQuestions retrieves a quiz's questions in presentation order.
// POST: Returns questions ordered by order_index
func (s *SQLiteStore) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM quiz_question WHERE quiz_id = ? ORDER BY order_index", quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Question
	for rows.Next() {
		entity, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// SaveQuestion persists a Question to the database.
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) SaveQuestion(ctx context.Context, entity domain.Question) error {
	optionsJSON, err := json.Marshal(entity.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	correctJSON, err := json.Marshal(entity.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("failed to encode correct answers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO quiz_question (` + questionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		text=excluded.text,
		options=excluded.options,
		correct_answers=excluded.correct_answers,
		points=excluded.points,
		order_index=excluded.order_index`

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.QuizID,
		entity.Text,
		string(optionsJSON),
		string(correctJSON),
		entity.Points,
		entity.OrderIndex,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

const submissionColumns = "id, quiz_id, event_id, participant_id, attempt_number, score, total_questions, score_percent, passed, submitted_at"

// ListSubmissions retrieves a participant's attempts for a quiz,
// oldest first.
// POST: Returns submissions ordered by attempt number
func (s *SQLiteStore) ListSubmissions(ctx context.Context, quizID, participantID string) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM quiz_submission WHERE quiz_id = ? AND participant_id = ? ORDER BY attempt_number",
		quizID, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Submission
	for rows.Next() {
		entity, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// SaveSubmission persists a scored attempt.
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) SaveSubmission(ctx context.Context, entity domain.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO quiz_submission (` + submissionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		score=excluded.score,
		total_questions=excluded.total_questions,
		score_percent=excluded.score_percent,
		passed=excluded.passed,
		submitted_at=excluded.submitted_at`

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.QuizID,
		entity.EventID,
		entity.ParticipantID,
		entity.AttemptNumber,
		entity.Score,
		entity.TotalQuestions,
		entity.ScorePercent,
		boolToInt(entity.Passed),
		entity.SubmittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func scanQuiz(scan func(dest ...any) error) (domain.Quiz, error) {
	var entity domain.Quiz
	var shuffle, required, active int

	err := scan(
		&entity.ID,
		&entity.EventID,
		&entity.Title,
		&entity.PassingScorePercent,
		&entity.MaxAttempts,
		&entity.TimeLimitMinutes,
		&shuffle,
		&required,
		&active,
	)
	if err != nil {
		return domain.Quiz{}, err
	}
	entity.ShuffleQuestions = shuffle != 0
	entity.RequiredForCertificate = required != 0
	entity.Active = active != 0
	return entity, nil
}

func scanQuestion(scan func(dest ...any) error) (domain.Question, error) {
	var entity domain.Question
	var optionsJSON, correctJSON string

	err := scan(
		&entity.ID,
		&entity.QuizID,
		&entity.Text,
		&optionsJSON,
		&correctJSON,
		&entity.Points,
		&entity.OrderIndex,
	)
	if err != nil {
		return domain.Question{}, err
	}
	if err := json.Unmarshal([]byte(optionsJSON), &entity.Options); err != nil {
		return domain.Question{}, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(correctJSON), &entity.CorrectAnswers); err != nil {
		return domain.Question{}, fmt.Errorf("failed to decode correct answers: %w", err)
	}
	return entity, nil
}

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var entity domain.Submission
	var passed int
	var submittedStr string

	err := scan(
		&entity.ID,
		&entity.QuizID,
		&entity.EventID,
		&entity.ParticipantID,
		&entity.AttemptNumber,
		&entity.Score,
		&entity.TotalQuestions,
		&entity.ScorePercent,
		&passed,
		&submittedStr,
	)
	if err != nil {
		return domain.Submission{}, err
	}
	entity.Passed = passed != 0
	if entity.SubmittedAt, err = parseStoredTime(submittedStr); err != nil {
		return domain.Submission{}, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	return entity, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseStoredTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", value)
}
