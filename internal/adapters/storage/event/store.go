package event

import (
	"context"

	domain "aceplatform/internal/domain/event"
)

// Store persists Event state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
	ClaimSlot(ctx context.Context, eventID string) (bool, error)
	ReleaseSlot(ctx context.Context, eventID string) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status string // empty means all
	Type   string // empty means all
	Limit  int
	Offset int
}
