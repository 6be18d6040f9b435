package registration

import (
	"context"

	domain "aceplatform/internal/domain/registration"
)

// Store persists Registration state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Registration, error)
	Save(ctx context.Context, value domain.Registration) error
	FindByEventAndEmail(ctx context.Context, eventID, email string) (domain.Registration, error)
	FindByConfirmationCode(ctx context.Context, eventID, code string) (domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
}
