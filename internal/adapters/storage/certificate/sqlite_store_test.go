package certificate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/event"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	// Certificates reference an event row.
	_, err = db.Exec(`INSERT INTO event (id, title, description, type, category, modality, start_date, end_date, credit_units, max_participants, current_participants, status, coordinator_id, created_at)
		VALUES ('e1', 'Ethics Refresher', '', 'ce', 'ethics', 'synchronous', '2025-06-01T09:00:00Z', '2025-06-01T11:00:00Z', 2.0, 10, 0, 'completed', 'coord-1', '2025-05-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("failed to insert event: %v", err)
	}
	return NewSQLiteStore(db)
}

func pendingCertificate(id, registrationID string) domain.Certificate {
	return domain.Certificate{
		ID:               id,
		EventID:          "e1",
		RegistrationID:   registrationID,
		ParticipantID:    registrationID,
		ParticipantName:  "Ana Lane",
		ParticipantEmail: "ana@example.com",
		EventTitle:       "Ethics Refresher",
		EventDate:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		CreditUnits:      2.0,
		Category:         event.CategoryEthics,
		Status:           domain.StatusPending,
		CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndFindByRegistration(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cert := pendingCertificate("c1", "r1")
	if err := store.Save(ctx, cert); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.FindByRegistration(ctx, "r1")
	if err != nil {
		t.Fatalf("FindByRegistration failed: %v", err)
	}
	if got.ID != "c1" || got.Status != domain.StatusPending {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.Number != "" || !got.IssuedAt.IsZero() {
		t.Errorf("pending certificate should have no number or issue time: %+v", got)
	}

	if _, err := store.FindByRegistration(ctx, "r-missing"); err == nil {
		t.Error("expected error for missing registration")
	}
}

func TestMarkIssuedIsConditional(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, pendingCertificate("c1", "r1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	issuedAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	won, err := store.MarkIssued(ctx, "c1", "CE-2025-000001", issuedAt)
	if err != nil {
		t.Fatalf("MarkIssued failed: %v", err)
	}
	if !won {
		t.Fatal("expected first issuance to win")
	}

	// A second issuance attempt must not overwrite the first.
	won, err = store.MarkIssued(ctx, "c1", "CE-2025-000002", issuedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("second MarkIssued failed: %v", err)
	}
	if won {
		t.Error("expected second issuance to be refused")
	}

	got, err := store.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.StatusIssued {
		t.Errorf("expected issued status, got %q", got.Status)
	}
	if got.Number != "CE-2025-000001" {
		t.Errorf("expected first number to stick, got %q", got.Number)
	}
	if !got.IssuedAt.Equal(issuedAt) {
		t.Errorf("expected issued at %v, got %v", issuedAt, got.IssuedAt)
	}
}

func TestListPendingOrdersByEventDate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := pendingCertificate("c1", "r1")
	older.EventDate = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	newer := pendingCertificate("c2", "r2")
	issued := pendingCertificate("c3", "r3")
	issued.Status = domain.StatusIssued
	issued.Number = "CE-2025-000009"
	issued.IssuedAt = time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	for _, cert := range []domain.Certificate{newer, older, issued} {
		if err := store.Save(ctx, cert); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pending certificates, got %d", len(got))
	}
	if got[0].ID != "c1" || got[1].ID != "c2" {
		t.Errorf("expected oldest event first, got %s then %s", got[0].ID, got[1].ID)
	}
}
