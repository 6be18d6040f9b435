package event_test

import (
	"testing"
	"time"

	"aceplatform/internal/domain/event"
)

func validEvent() event.Event {
	return event.Event{
		ID:              "evt-1",
		Title:           "Ethics in School-Based Practice",
		Type:            event.TypeCE,
		Category:        event.CategoryEthics,
		Modality:        event.ModalitySynchronous,
		StartDate:       time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC),
		CreditUnits:     2,
		MaxParticipants: 50,
		Status:          event.StatusDraft,
		CoordinatorID:   "coord-1",
	}
}

// TestEvent_Validate tests validation of Event fields.
func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*event.Event)
		wantErr bool
	}{
		{"valid event", func(e *event.Event) {}, false},
		{"empty title", func(e *event.Event) { e.Title = "  " }, true},
		{"bad type", func(e *event.Event) { e.Type = "workshop" }, true},
		{"bad category", func(e *event.Event) { e.Category = "fun" }, true},
		{"bad modality", func(e *event.Event) { e.Modality = "hybrid" }, true},
		{"end before start", func(e *event.Event) { e.EndDate = e.StartDate.Add(-time.Hour) }, true},
		{"zero credit units", func(e *event.Event) { e.CreditUnits = 0 }, true},
		{"zero capacity", func(e *event.Event) { e.MaxParticipants = 0 }, true},
		{"participants over capacity", func(e *event.Event) { e.CurrentParticipants = 51 }, true},
		{"no coordinator", func(e *event.Event) { e.CoordinatorID = "" }, true},
		{"archived is a valid status", func(e *event.Event) { e.Status = event.StatusArchived }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestEvent_TransitionTo tests the monotonic status machine.
func TestEvent_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    event.Status
		to      event.Status
		wantErr bool
	}{
		{"draft to pending approval", event.StatusDraft, event.StatusPendingApproval, false},
		{"pending approval to approved", event.StatusPendingApproval, event.StatusApproved, false},
		{"approved to in progress", event.StatusApproved, event.StatusInProgress, false},
		{"in progress to completed", event.StatusInProgress, event.StatusCompleted, false},
		{"skip a step", event.StatusDraft, event.StatusApproved, true},
		{"backwards", event.StatusCompleted, event.StatusInProgress, true},
		{"draft can archive", event.StatusDraft, event.StatusArchived, false},
		{"completed can archive", event.StatusCompleted, event.StatusArchived, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			e.Status = tt.from
			err := e.TransitionTo(tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("TransitionTo(%q) from %q error = %v, wantErr %v", tt.to, tt.from, err, tt.wantErr)
			}
			if err == nil && e.Status != tt.to {
				t.Errorf("status after transition = %q, want %q", e.Status, tt.to)
			}
			if err != nil && e.Status != tt.from {
				t.Errorf("failed transition mutated status to %q", e.Status)
			}
		})
	}
}

// TestEvent_ScheduledMinutes tests scheduled duration derivation.
func TestEvent_ScheduledMinutes(t *testing.T) {
	e := validEvent()
	if got := e.ScheduledMinutes(); got != 120 {
		t.Errorf("ScheduledMinutes() = %d, want 120", got)
	}
}

// TestEvent_IsFull tests the capacity check.
func TestEvent_IsFull(t *testing.T) {
	e := validEvent()
	e.MaxParticipants = 1
	if e.IsFull() {
		t.Error("IsFull() = true with an open slot")
	}
	e.CurrentParticipants = 1
	if !e.IsFull() {
		t.Error("IsFull() = false at capacity")
	}
}
