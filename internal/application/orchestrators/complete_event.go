package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/registration"
)

// CertificateStore defines the certificate persistence interface.
type CertificateStore interface {
	GetByID(ctx context.Context, id string) (certificate.Certificate, error)
	Save(ctx context.Context, c certificate.Certificate) error
	// MarkIssued flips a pending certificate to issued in one conditional
	// update. Returns false when the certificate was not pending, which
	// means a concurrent issuance won.
	MarkIssued(ctx context.Context, id, number string, at time.Time) (bool, error)
	FindByRegistration(ctx context.Context, registrationID string) (certificate.Certificate, error)
	ListByEvent(ctx context.Context, eventID string) ([]certificate.Certificate, error)
}

// RegistrationListStore lists registrations for an event.
type RegistrationListStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
}

// CompleteEventInput carries input for event completion.
type CompleteEventInput struct {
	EventID string
}

// CompleteEventDeps holds dependencies for CompleteEvent.
type CompleteEventDeps struct {
	EventStore        EventWriteStore
	RegistrationStore RegistrationListStore
	CertificateStore  CertificateStore
	GenerateID        func() string
	Now               func() time.Time
}

// CompleteEventResult reports what completion created.
type CompleteEventResult struct {
	Event               event.Event
	PendingCertificates int
}

// ExecuteCompleteEvent transitions an in-progress event to completed and
// creates one pending certificate per confirmed registration. Creation
// is idempotent per registration: a registration that already has a
// certificate is skipped, so completing an event twice (or retrying
// after a partial failure) never duplicates records.
// PRE: event is in progress
// POST: Event completed; each confirmed registration has exactly one
// pending certificate
func ExecuteCompleteEvent(ctx context.Context, input CompleteEventInput, deps CompleteEventDeps) (CompleteEventResult, error) {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return CompleteEventResult{}, err
	}

	if ev.IsCompleted() {
		slog.Warn("event_lifecycle", "event", "already_completed", "event_id", ev.ID)
		return CompleteEventResult{Event: ev}, nil
	}
	if err := ev.TransitionTo(event.StatusCompleted); err != nil {
		return CompleteEventResult{}, err
	}
	if err := deps.EventStore.Save(ctx, ev); err != nil {
		return CompleteEventResult{}, err
	}

	regs, err := deps.RegistrationStore.ListByEvent(ctx, input.EventID)
	if err != nil {
		return CompleteEventResult{Event: ev}, err
	}

	now := deps.Now()
	created := 0
	for _, reg := range regs {
		if reg.Status != registration.StatusConfirmed {
			continue
		}
		if _, err := deps.CertificateStore.FindByRegistration(ctx, reg.ID); err == nil {
			continue
		}
		cert := certificate.Certificate{
			ID:                deps.GenerateID(),
			EventID:           ev.ID,
			RegistrationID:    reg.ID,
			ParticipantID:     reg.ID,
			ParticipantName:   reg.ParticipantName,
			ParticipantEmail:  reg.ParticipantEmail,
			ParticipantBACBID: reg.BACBID,
			EventTitle:        ev.Title,
			EventDate:         ev.StartDate,
			CreditUnits:       ev.CreditUnits,
			Category:          ev.Category,
			Status:            certificate.StatusPending,
			CreatedAt:         now,
		}
		if err := deps.CertificateStore.Save(ctx, cert); err != nil {
			return CompleteEventResult{Event: ev, PendingCertificates: created}, err
		}
		created++
	}

	slog.Info("event_lifecycle", "event", "event_completed", "event_id", ev.ID, "pending_certificates", created)
	return CompleteEventResult{Event: ev, PendingCertificates: created}, nil
}
