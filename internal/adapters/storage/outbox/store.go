package outbox

import (
	"context"

	domain "aceplatform/internal/domain/outbox"
)

// Store persists outbox entries for reliable notice delivery.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, value domain.Entry) error
	ListRetryable(ctx context.Context, limit int) ([]domain.Entry, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Entry, error)
}

// ListFilter narrows outbox listings for admin review.
type ListFilter struct {
	Status     string
	NoticeType string
	Limit      int
	Offset     int
}
