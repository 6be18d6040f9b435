package complaint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/complaint"
)

// FeedbackSQLiteStore implements FeedbackStore using SQLite.
type FeedbackSQLiteStore struct {
	db storage.SQLDB
}

// NewFeedbackSQLiteStore creates a new feedback store.
func NewFeedbackSQLiteStore(db storage.SQLDB) *FeedbackSQLiteStore {
	return &FeedbackSQLiteStore{db: db}
}

const feedbackColumns = "id, event_id, participant_id, rating, instructor_rating, content_rating, comments, would_recommend, submitted_at, review_due_date, reviewed_at, review_notes"

// GetByID retrieves a FeedbackResponse by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *FeedbackSQLiteStore) GetByID(ctx context.Context, id string) (domain.FeedbackResponse, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+feedbackColumns+" FROM feedback_response WHERE id = ?", id)
	entity, err := scanFeedback(row.Scan)
	if err == sql.ErrNoRows {
		return domain.FeedbackResponse{}, fmt.Errorf("feedback not found: %w", err)
	}
	return entity, err
}

// Save persists a FeedbackResponse to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *FeedbackSQLiteStore) Save(ctx context.Context, entity domain.FeedbackResponse) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO feedback_response (` + feedbackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		reviewed_at=excluded.reviewed_at,
		review_notes=excluded.review_notes`

	var reviewedAt, reviewNotes, comments interface{}
	if !entity.CoordinatorReviewedAt.IsZero() {
		reviewedAt = entity.CoordinatorReviewedAt.Format(time.RFC3339Nano)
	}
	if entity.ReviewNotes != "" {
		reviewNotes = entity.ReviewNotes
	}
	if entity.Comments != "" {
		comments = entity.Comments
	}

	recommend := 0
	if entity.WouldRecommend {
		recommend = 1
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.EventID,
		entity.ParticipantID,
		entity.Rating,
		entity.InstructorRating,
		entity.ContentRating,
		comments,
		recommend,
		entity.SubmittedAt.Format(time.RFC3339Nano),
		entity.CoordinatorReviewDueDate.Format(time.RFC3339Nano),
		reviewedAt,
		reviewNotes,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListUnreviewed retrieves feedback awaiting coordinator review, oldest
// due date first.
// POST: Returns unreviewed entities
func (s *FeedbackSQLiteStore) ListUnreviewed(ctx context.Context) ([]domain.FeedbackResponse, error) {
	return s.listFeedback(ctx,
		"SELECT "+feedbackColumns+" FROM feedback_response WHERE reviewed_at IS NULL ORDER BY review_due_date")
}

// ListByEvent retrieves all feedback for an event.
// POST: Returns matching entities
func (s *FeedbackSQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.FeedbackResponse, error) {
	return s.listFeedback(ctx,
		"SELECT "+feedbackColumns+" FROM feedback_response WHERE event_id = ? ORDER BY submitted_at", eventID)
}

func (s *FeedbackSQLiteStore) listFeedback(ctx context.Context, query string, args ...any) ([]domain.FeedbackResponse, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.FeedbackResponse
	for rows.Next() {
		entity, err := scanFeedback(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanFeedback(scan func(dest ...any) error) (domain.FeedbackResponse, error) {
	var entity domain.FeedbackResponse
	var submittedStr, dueStr string
	var comments, reviewedStr, reviewNotes sql.NullString
	var instructorRating, contentRating sql.NullInt64
	var recommend int

	err := scan(
		&entity.ID,
		&entity.EventID,
		&entity.ParticipantID,
		&entity.Rating,
		&instructorRating,
		&contentRating,
		&comments,
		&recommend,
		&submittedStr,
		&dueStr,
		&reviewedStr,
		&reviewNotes,
	)
	if err != nil {
		return domain.FeedbackResponse{}, err
	}

	entity.InstructorRating = int(instructorRating.Int64)
	entity.ContentRating = int(contentRating.Int64)
	entity.Comments = comments.String
	entity.ReviewNotes = reviewNotes.String
	entity.WouldRecommend = recommend != 0
	if entity.SubmittedAt, err = parseStoredTime(submittedStr); err != nil {
		return domain.FeedbackResponse{}, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	if entity.CoordinatorReviewDueDate, err = parseStoredTime(dueStr); err != nil {
		return domain.FeedbackResponse{}, fmt.Errorf("failed to parse review_due_date: %w", err)
	}
	if reviewedStr.Valid {
		if entity.CoordinatorReviewedAt, err = parseStoredTime(reviewedStr.String); err != nil {
			return domain.FeedbackResponse{}, fmt.Errorf("failed to parse reviewed_at: %w", err)
		}
	}
	return entity, nil
}
