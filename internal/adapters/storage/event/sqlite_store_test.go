package event

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"aceplatform/internal/adapters/storage"
	domain "aceplatform/internal/domain/event"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Every connection to ":memory:" gets its own database, so the
	// pool must stay on a single connection.
	db.SetMaxOpenConns(1)
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return NewSQLiteStore(db)
}

func testEvent(id string) domain.Event {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return domain.Event{
		ID:              id,
		Title:           "Ethics Refresher",
		Type:            domain.TypeCE,
		Category:        domain.CategoryEthics,
		Modality:        domain.ModalitySynchronous,
		StartDate:       start,
		EndDate:         start.Add(2 * time.Hour),
		CreditUnits:     2.0,
		MaxParticipants: 2,
		Status:          domain.StatusApproved,
		CoordinatorID:   "coord-1",
		CreatedAt:       start.AddDate(0, -1, 0),
	}
}

func TestSaveAndGetByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev := testEvent("e1")
	if err := store.Save(ctx, ev); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != ev.Title || got.Type != ev.Type || got.Category != ev.Category {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if !got.StartDate.Equal(ev.StartDate) {
		t.Errorf("expected start %v, got %v", ev.StartDate, got.StartDate)
	}

	if _, err := store.GetByID(ctx, "missing"); err == nil {
		t.Error("expected error for missing event")
	}
}

func TestClaimSlotStopsAtCapacity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testEvent("e1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		claimed, err := store.ClaimSlot(ctx, "e1")
		if err != nil {
			t.Fatalf("ClaimSlot %d failed: %v", i, err)
		}
		if !claimed {
			t.Fatalf("claim %d: expected slot to be available", i)
		}
	}

	claimed, err := store.ClaimSlot(ctx, "e1")
	if err != nil {
		t.Fatalf("ClaimSlot at capacity failed: %v", err)
	}
	if claimed {
		t.Error("expected claim to be refused at capacity")
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentParticipants != 2 {
		t.Errorf("expected 2 participants, got %d", got.CurrentParticipants)
	}
}

func TestClaimSlotUnderConcurrentRegistrations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev := testEvent("e1")
	ev.MaxParticipants = 5
	if err := store.Save(ctx, ev); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	const attempts = 12
	var wg sync.WaitGroup
	var claims int64
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.ClaimSlot(ctx, "e1")
			if err != nil {
				errs <- err
				return
			}
			if claimed {
				atomic.AddInt64(&claims, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ClaimSlot failed: %v", err)
	}

	if claims != 5 {
		t.Errorf("expected exactly 5 winning claims, got %d", claims)
	}
	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentParticipants != 5 {
		t.Errorf("expected counter at capacity 5, got %d", got.CurrentParticipants)
	}
}

func TestReleaseSlotFloorsAtZero(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testEvent("e1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.ReleaseSlot(ctx, "e1"); err != nil {
		t.Fatalf("ReleaseSlot failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentParticipants != 0 {
		t.Errorf("expected counter to stay at 0, got %d", got.CurrentParticipants)
	}
}

func TestSaveDoesNotClobberParticipantCounter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ev := testEvent("e1")
	if err := store.Save(ctx, ev); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.ClaimSlot(ctx, "e1"); err != nil {
		t.Fatalf("ClaimSlot failed: %v", err)
	}

	// Re-save a stale in-memory copy that still says zero participants.
	ev.Title = "Ethics Refresher (updated)"
	if err := store.Save(ctx, ev); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Ethics Refresher (updated)" {
		t.Errorf("expected title to update, got %q", got.Title)
	}
	if got.CurrentParticipants != 1 {
		t.Errorf("expected counter to survive re-save, got %d", got.CurrentParticipants)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	approved := testEvent("e1")
	draft := testEvent("e2")
	draft.Status = domain.StatusDraft
	draft.StartDate = draft.StartDate.AddDate(0, 1, 0)
	draft.EndDate = draft.EndDate.AddDate(0, 1, 0)

	for _, ev := range []domain.Event{approved, draft} {
		if err := store.Save(ctx, ev); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := store.List(ctx, ListFilter{Status: string(domain.StatusApproved)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("expected only e1, got %+v", got)
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "e2" {
		t.Errorf("expected newest start date first, got %+v", all)
	}
}
