package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/audit"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const eventColumns = "id, timestamp, category, action, severity, actor_id, actor_email, resource_id, resource_type, description, metadata"

// Save appends an audit event. The trail is append-only so there is
// no upsert clause.
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID,
		entity.Timestamp.Format(time.RFC3339Nano),
		string(entity.Category),
		string(entity.Action),
		string(entity.Severity),
		nullIfEmpty(entity.ActorID),
		nullIfEmpty(entity.ActorEmail),
		nullIfEmpty(entity.ResourceID),
		nullIfEmpty(entity.ResourceType),
		nullIfEmpty(entity.Description),
		nullIfEmpty(entity.Metadata),
	)
	return err
}

// List retrieves audit events matching the filter, newest first.
// POST: Returns matching events
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM audit_log WHERE 1=1"
	var args []interface{}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, filter.Action)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Event
	for rows.Next() {
		entity, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var entity domain.Event
	var timestampStr, category, action, severity string
	var actorID, actorEmail, resourceID, resourceType, description, metadata sql.NullString

	err := scan(
		&entity.ID,
		&timestampStr,
		&category,
		&action,
		&severity,
		&actorID,
		&actorEmail,
		&resourceID,
		&resourceType,
		&description,
		&metadata,
	)
	if err != nil {
		return domain.Event{}, err
	}

	entity.Category = domain.Category(category)
	entity.Action = domain.Action(action)
	entity.Severity = domain.Severity(severity)
	entity.ActorID = actorID.String
	entity.ActorEmail = actorEmail.String
	entity.ResourceID = resourceID.String
	entity.ResourceType = resourceType.String
	entity.Description = description.String
	entity.Metadata = metadata.String
	if entity.Timestamp, err = parseStoredTime(timestampStr); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return entity, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
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
