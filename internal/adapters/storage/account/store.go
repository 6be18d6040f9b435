package account

import (
	"context"

	domain "aceplatform/internal/domain/account"
)

// Store persists admin-console login accounts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
}
