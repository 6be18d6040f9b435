package audit

import (
	"context"

	domain "aceplatform/internal/domain/audit"
)

// Store persists the append-only audit trail.
type Store interface {
	Save(ctx context.Context, value domain.Event) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
}

// ListFilter narrows audit listings for admin review.
type ListFilter struct {
	Category string
	Action   string
	Severity string
	ActorID  string
	Limit    int
	Offset   int
}
