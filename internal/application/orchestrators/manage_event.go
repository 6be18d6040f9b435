package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"aceplatform/internal/domain/coordinator"
	"aceplatform/internal/domain/eligibility"
	"aceplatform/internal/domain/event"
)

// ErrCoordinatorUnknown is returned when an event names a coordinator
// with no certification record.
var ErrCoordinatorUnknown = errors.New("no certification record for coordinator")

// EventWriteStore extends the lookup store with mutation methods used by
// the event lifecycle orchestrators.
type EventWriteStore interface {
	EventLookupStore
	Save(ctx context.Context, ev event.Event) error
}

// CoordinatorStore defines the coordinator-certification persistence
// interface.
type CoordinatorStore interface {
	GetByCoordinatorID(ctx context.Context, coordinatorID string) (coordinator.Certification, error)
	Save(ctx context.Context, c coordinator.Certification) error
	List(ctx context.Context) ([]coordinator.Certification, error)
}

// CreateEventInput carries input for event creation.
type CreateEventInput struct {
	Title           string
	Description     string
	Type            event.Type
	Category        event.Category
	Modality        event.Modality
	StartDate       time.Time
	EndDate         time.Time
	CreditUnits     float64
	MaxParticipants int
	ProviderID      string
	CoordinatorID   string
}

// CreateEventDeps holds dependencies for CreateEvent.
type CreateEventDeps struct {
	EventStore EventWriteStore
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateEvent creates a new event in draft status. Drafts carry
// no gate: any coordinator may draft, only a current one may publish.
// POST: Event saved as draft, or a validation error
func ExecuteCreateEvent(ctx context.Context, input CreateEventInput, deps CreateEventDeps) (event.Event, error) {
	ev := event.Event{
		ID:              deps.GenerateID(),
		Title:           input.Title,
		Description:     input.Description,
		Type:            input.Type,
		Category:        input.Category,
		Modality:        input.Modality,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		CreditUnits:     input.CreditUnits,
		MaxParticipants: input.MaxParticipants,
		Status:          event.StatusDraft,
		ProviderID:      input.ProviderID,
		CoordinatorID:   input.CoordinatorID,
		CreatedAt:       deps.Now(),
	}
	if err := ev.Validate(); err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, ev); err != nil {
		return event.Event{}, err
	}
	slog.Info("event_lifecycle", "event", "event_created", "event_id", ev.ID, "type", ev.Type, "coordinator_id", ev.CoordinatorID)
	return ev, nil
}

// AdvanceEventInput carries input for a lifecycle advance.
type AdvanceEventInput struct {
	EventID string
	Next    event.Status
}

// AdvanceEventDeps holds dependencies for AdvanceEvent.
type AdvanceEventDeps struct {
	EventStore       EventWriteStore
	CoordinatorStore CoordinatorStore
	Now              func() time.Time
}

// ExecuteAdvanceEvent moves an event to the next lifecycle status. The
// coordinator gate re-evaluates on the approved transition (publishing):
// a certification that was current at draft time may have expired since.
// PRE: next is one step forward, or archived
// POST: Status advanced and saved, or ErrInvalidTransition / a denial
func ExecuteAdvanceEvent(ctx context.Context, input AdvanceEventInput, deps AdvanceEventDeps) (event.Event, error) {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return event.Event{}, err
	}

	if input.Next == event.StatusApproved {
		cert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, ev.CoordinatorID)
		if err != nil {
			return event.Event{}, ErrCoordinatorUnknown
		}
		decision := eligibility.Decide(eligibility.ActionPublishEvent, eligibility.Context{
			AsOf:        deps.Now(),
			Event:       ev,
			Coordinator: &cert,
		})
		if err := decision.Err(eligibility.ActionPublishEvent); err != nil {
			slog.Info("event_lifecycle", "event", "publish_denied", "event_id", ev.ID, "coordinator_id", ev.CoordinatorID, "reason", decision.Reason)
			return event.Event{}, err
		}
	}

	if err := ev.TransitionTo(input.Next); err != nil {
		return event.Event{}, err
	}
	if err := deps.EventStore.Save(ctx, ev); err != nil {
		return event.Event{}, err
	}

	slog.Info("event_lifecycle", "event", "event_advanced", "event_id", ev.ID, "status", ev.Status)
	return ev, nil
}
