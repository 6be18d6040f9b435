package coordinator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/coordinator"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new coordinator certification store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const certificationColumns = "id, coordinator_id, coordinator_name, coordinator_email, certification_number, certification_date, certification_expires, verified, verified_at, can_publish_events, can_issue_certificates, updated_at"

// GetByCoordinatorID retrieves a Certification by coordinator ID.
// PRE: coordinatorID is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByCoordinatorID(ctx context.Context, coordinatorID string) (domain.Certification, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+certificationColumns+" FROM coordinator_certification WHERE coordinator_id = ?", coordinatorID)
	entity, err := scanCertification(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Certification{}, fmt.Errorf("coordinator certification not found: %w", err)
	}
	return entity, err
}

// Save persists a Certification to the database. Upserts on
// coordinator_id: each coordinator has exactly one certification row.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Certification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO coordinator_certification (` + certificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(coordinator_id) DO UPDATE SET
		coordinator_name=excluded.coordinator_name,
		coordinator_email=excluded.coordinator_email,
		certification_number=excluded.certification_number,
		certification_date=excluded.certification_date,
		certification_expires=excluded.certification_expires,
		verified=excluded.verified,
		verified_at=excluded.verified_at,
		can_publish_events=excluded.can_publish_events,
		can_issue_certificates=excluded.can_issue_certificates,
		updated_at=excluded.updated_at`

	var verifiedAt, updatedAt interface{}
	if !entity.VerifiedAt.IsZero() {
		verifiedAt = entity.VerifiedAt.Format(time.RFC3339Nano)
	}
	if !entity.UpdatedAt.IsZero() {
		updatedAt = entity.UpdatedAt.Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.CoordinatorID,
		entity.CoordinatorName,
		entity.CoordinatorEmail,
		entity.CertificationNumber,
		entity.CertificationDate.Format(time.RFC3339Nano),
		entity.CertificationExpires.Format(time.RFC3339Nano),
		boolToInt(entity.Verified),
		verifiedAt,
		boolToInt(entity.CanPublishEvents),
		boolToInt(entity.CanIssueCertificates),
		updatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// List retrieves all coordinator certifications, soonest expiry first.
// POST: Returns all entities
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Certification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+certificationColumns+" FROM coordinator_certification ORDER BY certification_expires")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Certification
	for rows.Next() {
		entity, err := scanCertification(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanCertification(scan func(dest ...any) error) (domain.Certification, error) {
	var entity domain.Certification
	var certDateStr, expiresStr string
	var verifiedAtStr, updatedAtStr sql.NullString
	var verified, canPublish, canIssue int

	err := scan(
		&entity.ID,
		&entity.CoordinatorID,
		&entity.CoordinatorName,
		&entity.CoordinatorEmail,
		&entity.CertificationNumber,
		&certDateStr,
		&expiresStr,
		&verified,
		&verifiedAtStr,
		&canPublish,
		&canIssue,
		&updatedAtStr,
	)
	if err != nil {
		return domain.Certification{}, err
	}

	entity.Verified = verified != 0
	entity.CanPublishEvents = canPublish != 0
	entity.CanIssueCertificates = canIssue != 0
	if entity.CertificationDate, err = parseStoredTime(certDateStr); err != nil {
		return domain.Certification{}, fmt.Errorf("failed to parse certification_date: %w", err)
	}
	if entity.CertificationExpires, err = parseStoredTime(expiresStr); err != nil {
		return domain.Certification{}, fmt.Errorf("failed to parse certification_expires: %w", err)
	}
	if verifiedAtStr.Valid {
		if entity.VerifiedAt, err = parseStoredTime(verifiedAtStr.String); err != nil {
			return domain.Certification{}, fmt.Errorf("failed to parse verified_at: %w", err)
		}
	}
	if updatedAtStr.Valid {
		if entity.UpdatedAt, err = parseStoredTime(updatedAtStr.String); err != nil {
			return domain.Certification{}, fmt.Errorf("failed to parse updated_at: %w", err)
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
