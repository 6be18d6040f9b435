package coordinator

import (
	"context"

	domain "aceplatform/internal/domain/coordinator"
)

// Store persists coordinator Certification state.
type Store interface {
	GetByCoordinatorID(ctx context.Context, coordinatorID string) (domain.Certification, error)
	Save(ctx context.Context, value domain.Certification) error
	List(ctx context.Context) ([]domain.Certification, error)
}
