package complaint

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/complaint"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new complaint store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const complaintColumns = "id, event_id, submitter_name, submitter_email, body, status, submitted_at, response_due_date, resolved_at, resolution_notes, nav_escalation_notified"

// GetByID retrieves a Complaint by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Complaint, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+complaintColumns+" FROM complaint WHERE id = ?", id)
	entity, err := scanComplaint(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Complaint{}, fmt.Errorf("complaint not found: %w", err)
	}
	return entity, err
}

// Save persists a Complaint to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Complaint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO complaint (` + complaintColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		status=excluded.status,
		resolved_at=excluded.resolved_at,
		resolution_notes=excluded.resolution_notes,
		nav_escalation_notified=excluded.nav_escalation_notified`

	var eventID, submitterName, resolvedAt, notes interface{}
	if entity.EventID != "" {
		eventID = entity.EventID
	}
	if entity.SubmitterName != "" {
		submitterName = entity.SubmitterName
	}
	if !entity.ResolvedAt.IsZero() {
		resolvedAt = entity.ResolvedAt.Format(time.RFC3339Nano)
	}
	if entity.ResolutionNotes != "" {
		notes = entity.ResolutionNotes
	}

	navNotified := 0
	if entity.NAVEscalationNotified {
		navNotified = 1
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		eventID,
		submitterName,
		entity.SubmitterEmail,
		entity.Body,
		string(entity.Status),
		entity.SubmittedAt.Format(time.RFC3339Nano),
		entity.ResponseDueDate.Format(time.RFC3339Nano),
		resolvedAt,
		notes,
		navNotified,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListOpen retrieves complaints that are not yet closed, oldest due
// date first.
// POST: Returns open entities
func (s *SQLiteStore) ListOpen(ctx context.Context) ([]domain.Complaint, error) {
	return s.list(ctx,
		"SELECT "+complaintColumns+" FROM complaint WHERE status IN ('submitted', 'under_review') ORDER BY response_due_date")
}

// List retrieves complaints matching the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Complaint, error) {
	query := "SELECT " + complaintColumns + " FROM complaint"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return s.list(ctx, query, args...)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Complaint
	for rows.Next() {
		entity, err := scanComplaint(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanComplaint(scan func(dest ...any) error) (domain.Complaint, error) {
	var entity domain.Complaint
	var status, submittedStr, dueStr string
	var eventID, submitterName, resolvedStr, notes sql.NullString
	var navNotified int

	err := scan(
		&entity.ID,
		&eventID,
		&submitterName,
		&entity.SubmitterEmail,
		&entity.Body,
		&status,
		&submittedStr,
		&dueStr,
		&resolvedStr,
		&notes,
		&navNotified,
	)
	if err != nil {
		return domain.Complaint{}, err
	}

	entity.EventID = eventID.String
	entity.SubmitterName = submitterName.String
	entity.ResolutionNotes = notes.String
	entity.Status = domain.Status(status)
	entity.NAVEscalationNotified = navNotified != 0
	if entity.SubmittedAt, err = parseStoredTime(submittedStr); err != nil {
		return domain.Complaint{}, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	if entity.ResponseDueDate, err = parseStoredTime(dueStr); err != nil {
		return domain.Complaint{}, fmt.Errorf("failed to parse response_due_date: %w", err)
	}
	if resolvedStr.Valid {
		if entity.ResolvedAt, err = parseStoredTime(resolvedStr.String); err != nil {
			return domain.Complaint{}, fmt.Errorf("failed to parse resolved_at: %w", err)
		}
	}
	return entity, nil
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
