package registration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/registration"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const registrationColumns = "id, event_id, participant_name, participant_email, credential, bacb_id, confirmation_code, status, created_at"

// GetByID retrieves a Registration by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM registration WHERE id = ?", id)
	entity, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	return entity, err
}

// Save persists a Registration to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Registration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO registration (` + registrationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		participant_name=excluded.participant_name,
		participant_email=excluded.participant_email,
		credential=excluded.credential,
		bacb_id=excluded.bacb_id,
		status=excluded.status`

	var bacbID interface{}
	if entity.BACBID != "" {
		bacbID = entity.BACBID
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.EventID,
		entity.ParticipantName,
		entity.ParticipantEmail,
		string(entity.Credential),
		bacbID,
		entity.ConfirmationCode,
		entity.Status,
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// FindByEventAndEmail looks up a registration by its natural key.
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) FindByEventAndEmail(ctx context.Context, eventID, email string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE event_id = ? AND participant_email = ?",
		eventID, email,
	)
	entity, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	return entity, err
}

// FindByConfirmationCode looks up a registration for kiosk check-in.
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) FindByConfirmationCode(ctx context.Context, eventID, code string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE event_id = ? AND confirmation_code = ?",
		eventID, code,
	)
	entity, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	return entity, err
}

// ListByEvent retrieves all registrations for an event.
// POST: Returns matching entities ordered by creation time
func (s *SQLiteStore) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+registrationColumns+" FROM registration WHERE event_id = ? ORDER BY created_at",
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Registration
	for rows.Next() {
		entity, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanRegistration(scan func(dest ...any) error) (domain.Registration, error) {
	var entity domain.Registration
	var credential, createdStr string
	var bacbID sql.NullString

	err := scan(
		&entity.ID,
		&entity.EventID,
		&entity.ParticipantName,
		&entity.ParticipantEmail,
		&credential,
		&bacbID,
		&entity.ConfirmationCode,
		&entity.Status,
		&createdStr,
	)
	if err != nil {
		return domain.Registration{}, err
	}

	entity.Credential = domain.Credential(credential)
	if bacbID.Valid {
		entity.BACBID = bacbID.String
	}
	if entity.CreatedAt, err = parseStoredTime(createdStr); err != nil {
		return domain.Registration{}, fmt.Errorf("failed to parse created_at: %w", err)
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
