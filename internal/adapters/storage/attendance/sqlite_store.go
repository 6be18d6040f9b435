package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/attendance"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const recordColumns = "id, event_id, participant_id, check_in_time, check_out_time, verified, verified_by, verified_at"

// GetByID retrieves a Record by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM attendance_record WHERE id = ?", id)
	entity, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Record{}, fmt.Errorf("attendance record not found: %w", err)
	}
	return entity, err
}

// Save persists a Record to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO attendance_record (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		check_in_time=excluded.check_in_time,
		check_out_time=excluded.check_out_time,
		verified=excluded.verified,
		verified_by=excluded.verified_by,
		verified_at=excluded.verified_at`

	var checkOut, verifiedBy, verifiedAt interface{}
	if !entity.CheckOutTime.IsZero() {
		checkOut = entity.CheckOutTime.Format(time.RFC3339Nano)
	}
	if entity.VerifiedBy != "" {
		verifiedBy = entity.VerifiedBy
	}
	if !entity.VerifiedAt.IsZero() {
		verifiedAt = entity.VerifiedAt.Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.EventID,
		entity.ParticipantID,
		entity.CheckInTime.Format(time.RFC3339Nano),
		checkOut,
		boolToInt(entity.Verified),
		verifiedBy,
		verifiedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ListByParticipant retrieves a participant's records for one event.
// POST: Returns matching entities ordered by check-in time
func (s *SQLiteStore) ListByParticipant(ctx context.Context, eventID, participantID string) ([]domain.Record, error) {
	return s.list(ctx,
		"SELECT "+recordColumns+" FROM attendance_record WHERE event_id = ? AND participant_id = ? ORDER BY check_in_time",
		eventID, participantID,
	)
}

// ListByEvent retrieves all records for an event.
// POST: Returns matching entities ordered by check-in time
func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Record, error) {
	return s.list(ctx,
		"SELECT "+recordColumns+" FROM attendance_record WHERE event_id = ? ORDER BY check_in_time",
		eventID,
	)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Record
	for rows.Next() {
		entity, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (domain.Record, error) {
	var entity domain.Record
	var checkInStr string
	var checkOutStr, verifiedBy, verifiedAtStr sql.NullString
	var verified int

	err := scan(
		&entity.ID,
		&entity.EventID,
		&entity.ParticipantID,
		&checkInStr,
		&checkOutStr,
		&verified,
		&verifiedBy,
		&verifiedAtStr,
	)
	if err != nil {
		return domain.Record{}, err
	}

	entity.Verified = verified != 0
	if verifiedBy.Valid {
		entity.VerifiedBy = verifiedBy.String
	}
	if entity.CheckInTime, err = parseStoredTime(checkInStr); err != nil {
		return domain.Record{}, fmt.Errorf("failed to parse check_in_time: %w", err)
	}
	if checkOutStr.Valid {
		if entity.CheckOutTime, err = parseStoredTime(checkOutStr.String); err != nil {
			return domain.Record{}, fmt.Errorf("failed to parse check_out_time: %w", err)
		}
	}
	if verifiedAtStr.Valid {
		if entity.VerifiedAt, err = parseStoredTime(verifiedAtStr.String); err != nil {
			return domain.Record{}, fmt.Errorf("failed to parse verified_at: %w", err)
		}
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
