package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"aceplatform/internal/domain/account"
)

// SeedAdminDeps holds dependencies for admin seeding.
type SeedAdminDeps struct {
	AccountStore AccountStore
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSeedAdmin creates the initial admin account if no account with
// the given email exists. Safe to run on every startup.
// POST: An admin account exists for the email
func ExecuteSeedAdmin(ctx context.Context, deps SeedAdminDeps, email, password string) error {
	_, err := deps.AccountStore.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     email,
		Role:      account.RoleAdmin,
		CreatedAt: deps.Now(),
	}
	if err := acct.SetPassword(password); err != nil {
		return err
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}
