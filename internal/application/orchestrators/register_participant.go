package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"aceplatform/internal/domain/eligibility"
	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/outbox"
	"aceplatform/internal/domain/registration"
)

// ErrAlreadyRegistered is returned when an email registers twice for the
// same event.
var ErrAlreadyRegistered = errors.New("email already registered for this event")

// EventLookupStore defines the event store interface for registration.
type EventLookupStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	// ClaimSlot atomically increments current_participants if and only
	// if the event still has capacity. Returns false when the event is
	// full. The check and increment are one conditional update, never a
	// read followed by a separate write.
	ClaimSlot(ctx context.Context, eventID string) (bool, error)
	// ReleaseSlot undoes a claim when registration fails after the
	// slot was taken.
	ReleaseSlot(ctx context.Context, eventID string) error
}

// RegistrationStore defines the registration persistence interface.
type RegistrationStore interface {
	Save(ctx context.Context, r registration.Registration) error
	FindByEventAndEmail(ctx context.Context, eventID, email string) (registration.Registration, error)
}

// OutboxEnqueueStore defines the outbox interface used by orchestrators
// that queue notifications.
type OutboxEnqueueStore interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// RegisterParticipantInput carries input for participant registration.
type RegisterParticipantInput struct {
	EventID          string
	ParticipantName  string
	ParticipantEmail string
	Credential       registration.Credential
	BACBID           string
	Reopened         bool // admin reopened registration after the start date
}

// RegisterParticipantDeps holds dependencies for RegisterParticipant.
type RegisterParticipantDeps struct {
	EventStore        EventLookupStore
	RegistrationStore RegistrationStore
	OutboxStore       OutboxEnqueueStore
	GenerateID        func() string
	Now               func() time.Time
}

// RegisterParticipantResult carries the created registration.
type RegisterParticipantResult struct {
	Registration registration.Registration
}

// confirmationPayload is the outbox payload for a registration
// confirmation notice.
type confirmationPayload struct {
	RegistrationID   string `json:"registration_id"`
	EventID          string `json:"event_id"`
	EventTitle       string `json:"event_title"`
	ParticipantName  string `json:"participant_name"`
	ConfirmationCode string `json:"confirmation_code"`
}

// ExecuteRegisterParticipant registers a participant for an event.
// The eligibility gate rules on credential match, capacity, and start
// date; the capacity claim itself is a single conditional update so two
// racing registrations can never both take the last slot.
// PRE: input identifies an existing event
// POST: Registration saved with a confirmation code and a queued
// confirmation notice, or a typed denial
func ExecuteRegisterParticipant(ctx context.Context, input RegisterParticipantInput, deps RegisterParticipantDeps) (RegisterParticipantResult, error) {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return RegisterParticipantResult{}, err
	}

	now := deps.Now()
	decision := eligibility.Decide(eligibility.ActionRegister, eligibility.Context{
		AsOf:       now,
		Event:      ev,
		Credential: input.Credential,
		Reopened:   input.Reopened,
	})
	if err := decision.Err(eligibility.ActionRegister); err != nil {
		slog.Info("registration_event", "event", "registration_denied", "event_id", ev.ID, "email", input.ParticipantEmail, "reason", decision.Reason)
		return RegisterParticipantResult{}, err
	}

	if _, err := deps.RegistrationStore.FindByEventAndEmail(ctx, input.EventID, input.ParticipantEmail); err == nil {
		return RegisterParticipantResult{}, ErrAlreadyRegistered
	}

	// Claim the slot before writing the registration. The conditional
	// update is the capacity invariant's single point of enforcement.
	claimed, err := deps.EventStore.ClaimSlot(ctx, input.EventID)
	if err != nil {
		return RegisterParticipantResult{}, err
	}
	if !claimed {
		return RegisterParticipantResult{}, &eligibility.DeniedError{
			Action: eligibility.ActionRegister,
			Reason: eligibility.ReasonEventFull,
		}
	}

	reg := registration.Registration{
		ID:               deps.GenerateID(),
		EventID:          input.EventID,
		ParticipantName:  input.ParticipantName,
		ParticipantEmail: input.ParticipantEmail,
		Credential:       input.Credential,
		BACBID:           input.BACBID,
		ConfirmationCode: registration.NewConfirmationCode(),
		Status:           registration.StatusConfirmed,
		CreatedAt:        now,
	}
	if err := reg.Validate(); err != nil {
		if relErr := deps.EventStore.ReleaseSlot(ctx, input.EventID); relErr != nil {
			slog.Error("registration_event", "event", "slot_release_failed", "event_id", input.EventID, "error", relErr.Error())
		}
		return RegisterParticipantResult{}, err
	}
	if err := deps.RegistrationStore.Save(ctx, reg); err != nil {
		if relErr := deps.EventStore.ReleaseSlot(ctx, input.EventID); relErr != nil {
			slog.Error("registration_event", "event", "slot_release_failed", "event_id", input.EventID, "error", relErr.Error())
		}
		return RegisterParticipantResult{}, err
	}

	if deps.OutboxStore != nil {
		payload, _ := json.Marshal(confirmationPayload{
			RegistrationID:   reg.ID,
			EventID:          ev.ID,
			EventTitle:       ev.Title,
			ParticipantName:  reg.ParticipantName,
			ConfirmationCode: reg.ConfirmationCode,
		})
		entry := outbox.Entry{
			ID:          deps.GenerateID(),
			NoticeType:  outbox.NoticeRegistrationConfirmation,
			Payload:     string(payload),
			Recipient:   reg.ParticipantEmail,
			Status:      outbox.StatusPending,
			MaxAttempts: outbox.DefaultMaxAttempts,
			CreatedAt:   now,
		}
		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			slog.Error("registration_event", "event", "confirmation_enqueue_failed", "registration_id", reg.ID, "error", err.Error())
		}
	}

	slog.Info("registration_event", "event", "participant_registered", "event_id", ev.ID, "registration_id", reg.ID, "credential", reg.Credential)
	return RegisterParticipantResult{Registration: reg}, nil
}
