package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"aceplatform/internal/domain/account"
	"aceplatform/internal/domain/audit"
)

// Login errors. Authentication failures collapse into one message so a
// caller cannot probe which emails have accounts.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
)

// AccountStore defines the account persistence interface for login.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStore
	AuditStore   AuditStore
	Now          func() time.Time
}

// LoginResult carries the authenticated account identity.
type LoginResult struct {
	AccountID     string
	Email         string
	Role          string
	CoordinatorID string
}

// ExecuteLogin authenticates an admin-console account. Five consecutive
// failures lock the account for fifteen minutes; the counter resets on
// success.
// PRE: input carries the submitted credentials
// POST: Returns the account identity or an authentication error
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Warn("auth_event", "event", "login_failed", "email", email, "reason", "unknown account")
		return LoginResult{}, ErrInvalidCredentials
	}

	now := deps.Now()
	if acct.IsLocked(now) {
		slog.Warn("auth_event", "event", "login_locked", "account_id", acct.ID)
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		if saveErr := deps.AccountStore.Save(ctx, acct); saveErr != nil {
			slog.Error("auth_event", "event", "lockout_save_failed", "account_id", acct.ID, "error", saveErr.Error())
		}
		if acct.IsLocked(now) && deps.AuditStore != nil {
			evt := audit.NewEvent(acct.ID, acct.Email, audit.CategoryAccount, audit.ActionLogin).
				WithSeverity(audit.SeverityWarning).
				WithResource("account", acct.ID).
				WithDescription("account locked after repeated failed logins")
			if auditErr := deps.AuditStore.Save(ctx, evt); auditErr != nil {
				slog.Error("auth_event", "event", "audit_save_failed", "account_id", acct.ID, "error", auditErr.Error())
			}
		}
		slog.Warn("auth_event", "event", "login_failed", "account_id", acct.ID, "failed_logins", acct.FailedLogins)
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "lockout_reset_failed", "account_id", acct.ID, "error", err.Error())
		}
	}

	slog.Info("auth_event", "event", "login_succeeded", "account_id", acct.ID, "role", acct.Role)
	return LoginResult{
		AccountID:     acct.ID,
		Email:         acct.Email,
		Role:          acct.Role,
		CoordinatorID: acct.CoordinatorID,
	}, nil
}
