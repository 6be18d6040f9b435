package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"aceplatform/internal/domain/account"
	"aceplatform/internal/domain/audit"
)

type fakeAccountStore struct {
	accounts map[string]account.Account
}

func newFakeAccountStore(accounts ...account.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, errNotFound
	}
	return a, nil
}

func (s *fakeAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, errNotFound
}

func (s *fakeAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func testAccount(t *testing.T, password string) account.Account {
	t.Helper()
	a := account.Account{
		ID:        "acct-1",
		Email:     "admin@example.com",
		Role:      account.RoleAdmin,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := a.SetPassword(password); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	return a
}

func TestLoginSucceedsAndNormalizesEmail(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeAccountStore(testAccount(t, "a-long-password"))

	result, err := ExecuteLogin(context.Background(), LoginInput{
		Email:    "  Admin@Example.COM ",
		Password: "a-long-password",
	}, LoginDeps{AccountStore: store, Now: fixedNow(base)})
	if err != nil {
		t.Fatalf("ExecuteLogin failed: %v", err)
	}
	if result.AccountID != "acct-1" || result.Role != account.RoleAdmin {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestLoginRejectsUnknownAndWrongPassword(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeAccountStore(testAccount(t, "a-long-password"))
	deps := LoginDeps{AccountStore: store, Now: fixedNow(base)}

	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "nobody@example.com", Password: "a-long-password"}, deps); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown account: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@example.com", Password: "wrong"}, deps); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if store.accounts["acct-1"].FailedLogins != 1 {
		t.Errorf("FailedLogins = %d, want 1", store.accounts["acct-1"].FailedLogins)
	}
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeAccountStore(testAccount(t, "a-long-password"))
	audits := &fakeAuditStore{}
	deps := LoginDeps{AccountStore: store, AuditStore: audits, Now: fixedNow(base)}

	for i := 0; i < 5; i++ {
		if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@example.com", Password: "wrong"}, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The right password is now refused too.
	if _, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@example.com", Password: "a-long-password"}, deps); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked login: got %v, want ErrAccountLocked", err)
	}

	if len(audits.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(audits.events))
	}
	if audits.events[0].Severity != audit.SeverityWarning {
		t.Errorf("audit severity = %q, want warning", audits.events[0].Severity)
	}

	// The lock expires after fifteen minutes.
	deps.Now = fixedNow(base.Add(16 * time.Minute))
	result, err := ExecuteLogin(context.Background(), LoginInput{Email: "admin@example.com", Password: "a-long-password"}, deps)
	if err != nil {
		t.Fatalf("login after lock expiry failed: %v", err)
	}
	if result.AccountID != "acct-1" {
		t.Errorf("AccountID = %q, want acct-1", result.AccountID)
	}
	if store.accounts["acct-1"].FailedLogins != 0 {
		t.Errorf("FailedLogins = %d, want 0 after reset", store.accounts["acct-1"].FailedLogins)
	}
}
