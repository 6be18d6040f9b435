package attendance

import (
	"context"

	domain "aceplatform/internal/domain/attendance"
)

// Store persists attendance Record state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Record, error)
	Save(ctx context.Context, value domain.Record) error
	ListByParticipant(ctx context.Context, eventID, participantID string) ([]domain.Record, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Record, error)
}
