package event

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/event"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const eventColumns = "id, title, description, type, category, modality, start_date, end_date, credit_units, max_participants, current_participants, status, provider_id, coordinator_id, created_at"

// GetByID retrieves an Event by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM event WHERE id = ?", id)
	entity, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Event{}, fmt.Errorf("event not found: %w", err)
	}
	return entity, err
}

// Save persists an Event to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := strings.Split(eventColumns, ", ")
	placeholders := make([]string, len(fields))
	updates := make([]string, 0, len(fields)-1)
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" && f != "current_participants" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	// current_participants is deliberately excluded from the update set:
	// the counter is owned by ClaimSlot/ReleaseSlot and a stale in-memory
	// copy must never clobber it.
	query := fmt.Sprintf(
		"INSERT INTO event (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		eventColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	var providerID interface{}
	if entity.ProviderID != "" {
		providerID = entity.ProviderID
	}

	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		entity.Title,
		entity.Description,
		string(entity.Type),
		string(entity.Category),
		string(entity.Modality),
		entity.StartDate.Format(time.RFC3339Nano),
		entity.EndDate.Format(time.RFC3339Nano),
		entity.CreditUnits,
		entity.MaxParticipants,
		entity.CurrentParticipants,
		string(entity.Status),
		providerID,
		entity.CoordinatorID,
		entity.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ClaimSlot atomically takes one capacity slot. The capacity check and
// the increment are a single conditional update so concurrent claims
// for the last slot cannot both succeed.
// POST: Returns true if a slot was claimed, false if the event was full
func (s *SQLiteStore) ClaimSlot(ctx context.Context, eventID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE event SET current_participants = current_participants + 1 WHERE id = ? AND current_participants < max_participants",
		eventID,
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

// ReleaseSlot returns one capacity slot, flooring at zero.
// POST: current_participants decremented unless already zero
func (s *SQLiteStore) ReleaseSlot(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE event SET current_participants = current_participants - 1 WHERE id = ? AND current_participants > 0",
		eventID,
	)
	return err
}

// List retrieves events matching the filter, newest start date first.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM event"
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
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

// scanEvent maps one row onto a domain Event.
func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var entity domain.Event
	var typ, category, modality, status string
	var startStr, endStr, createdStr string
	var providerID sql.NullString

	err := scan(
		&entity.ID,
		&entity.Title,
		&entity.Description,
		&typ,
		&category,
		&modality,
		&startStr,
		&endStr,
		&entity.CreditUnits,
		&entity.MaxParticipants,
		&entity.CurrentParticipants,
		&status,
		&providerID,
		&entity.CoordinatorID,
		&createdStr,
	)
	if err != nil {
		return domain.Event{}, err
	}

	entity.Type = domain.Type(typ)
	entity.Category = domain.Category(category)
	entity.Modality = domain.Modality(modality)
	entity.Status = domain.Status(status)
	if providerID.Valid {
		entity.ProviderID = providerID.String
	}
	if entity.StartDate, err = parseStoredTime(startStr); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if entity.EndDate, err = parseStoredTime(endStr); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if entity.CreatedAt, err = parseStoredTime(createdStr); err != nil {
		return domain.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
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
