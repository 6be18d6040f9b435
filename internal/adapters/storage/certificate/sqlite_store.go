package certificate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/event"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new certificate store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const certificateColumns = "id, number, event_id, registration_id, participant_id, participant_name, participant_email, participant_bacb_id, event_title, event_date, instructor_name, credit_units, category, status, issued_at, revoked_at, revocation_reason, created_at"

// GetByID retrieves a Certificate by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Certificate, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+certificateColumns+" FROM certificate WHERE id = ?", id)
	entity, err := scanCertificate(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("certificate not found: %w", err)
	}
	return entity, err
}

// Save persists a Certificate to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Certificate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(certificateColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO certificate (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		certificateColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		nullIfEmpty(entity.Number),
		entity.EventID,
		entity.RegistrationID,
		entity.ParticipantID,
		entity.ParticipantName,
		entity.ParticipantEmail,
		nullIfEmpty(entity.ParticipantBACBID),
		entity.EventTitle,
		entity.EventDate.Format(time.RFC3339Nano),
		nullIfEmpty(entity.InstructorName),
		entity.CreditUnits,
		string(entity.Category),
		string(entity.Status),
		nullIfZeroTime(entity.IssuedAt),
		nullIfZeroTime(entity.RevokedAt),
		nullIfEmpty(entity.RevocationReason),
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// MarkIssued flips a pending certificate to issued in one conditional
// update. A concurrent issuance that already won leaves zero rows
// affected, which this reports as false rather than overwriting.
// POST: Returns true if this call performed the transition
func (s *SQLiteStore) MarkIssued(ctx context.Context, id, number string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE certificate SET status = 'issued', number = ?, issued_at = ? WHERE id = ? AND status = 'pending'",
		number, at.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// FindByRegistration looks up the certificate for one registration.
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) FindByRegistration(ctx context.Context, registrationID string) (domain.Certificate, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+certificateColumns+" FROM certificate WHERE registration_id = ?", registrationID)
	entity, err := scanCertificate(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("certificate not found: %w", err)
	}
	return entity, err
}

// ListByEvent retrieves all certificates for an event.
// POST: Returns matching entities
func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Certificate, error) {
	return s.list(ctx, "SELECT "+certificateColumns+" FROM certificate WHERE event_id = ? ORDER BY created_at", eventID)
}

// ListPending retrieves all pending certificates, oldest event first,
// for the compliance dashboard.
// POST: Returns pending entities
func (s *SQLiteStore) ListPending(ctx context.Context) ([]domain.Certificate, error) {
	return s.list(ctx, "SELECT "+certificateColumns+" FROM certificate WHERE status = 'pending' ORDER BY event_date")
}

// List retrieves certificates matching the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Certificate, error) {
	query := "SELECT " + certificateColumns + " FROM certificate"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	return s.list(ctx, query, args...)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Certificate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Certificate
	for rows.Next() {
		entity, err := scanCertificate(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanCertificate(scan func(dest ...any) error) (domain.Certificate, error) {
	var entity domain.Certificate
	var category, status, eventDateStr, createdStr string
	var number, bacbID, instructor, issuedStr, revokedStr, reason sql.NullString

	err := scan(
		&entity.ID,
		&number,
		&entity.EventID,
		&entity.RegistrationID,
		&entity.ParticipantID,
		&entity.ParticipantName,
		&entity.ParticipantEmail,
		&bacbID,
		&entity.EventTitle,
		&eventDateStr,
		&instructor,
		&entity.CreditUnits,
		&category,
		&status,
		&issuedStr,
		&revokedStr,
		&reason,
		&createdStr,
	)
	if err != nil {
		return domain.Certificate{}, err
	}

	entity.Number = number.String
	entity.ParticipantBACBID = bacbID.String
	entity.InstructorName = instructor.String
	entity.RevocationReason = reason.String
	entity.Category = event.Category(category)
	entity.Status = domain.Status(status)
	if entity.EventDate, err = parseStoredTime(eventDateStr); err != nil {
		return domain.Certificate{}, fmt.Errorf("failed to parse event_date: %w", err)
	}
	if issuedStr.Valid {
		if entity.IssuedAt, err = parseStoredTime(issuedStr.String); err != nil {
			return domain.Certificate{}, fmt.Errorf("failed to parse issued_at: %w", err)
		}
	}
	if revokedStr.Valid {
		if entity.RevokedAt, err = parseStoredTime(revokedStr.String); err != nil {
			return domain.Certificate{}, fmt.Errorf("failed to parse revoked_at: %w", err)
		}
	}
	if entity.CreatedAt, err = parseStoredTime(createdStr); err != nil {
		return domain.Certificate{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return entity, nil
}

func nullIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
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
