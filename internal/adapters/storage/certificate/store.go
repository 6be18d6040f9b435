package certificate

import (
	"context"
	"time"

	domain "aceplatform/internal/domain/certificate"
)

// Store persists Certificate state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Certificate, error)
	Save(ctx context.Context, value domain.Certificate) error
	MarkIssued(ctx context.Context, id, number string, at time.Time) (bool, error)
	FindByRegistration(ctx context.Context, registrationID string) (domain.Certificate, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Certificate, error)
	ListPending(ctx context.Context) ([]domain.Certificate, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Certificate, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status string // empty means all
	Limit  int
	Offset int
}
