package projections

import (
	"context"
	"fmt"
	"sort"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/registration"
)

// EventReadStore fetches one event.
type EventReadStore interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

// RegistrationReadStore lists registrations for an event.
type RegistrationReadStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]registration.Registration, error)
}

// AttendanceReadStore lists attendance records for an event.
type AttendanceReadStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]attendance.Record, error)
}

// EventRosterDeps holds the stores the roster reads from.
type EventRosterDeps struct {
	EventStore        EventReadStore
	RegistrationStore RegistrationReadStore
	AttendanceStore   AttendanceReadStore
}

// RosterRow is one participant's line on the event roster.
type RosterRow struct {
	RegistrationID   string
	ParticipantName  string
	ParticipantEmail string
	Credential       registration.Credential
	ConfirmationCode string
	Summary          attendance.Summary
	Verified         bool
}

// EventRoster is the event's participant list with recomputed
// attendance summaries.
type EventRoster struct {
	Event event.Event
	Rows  []RosterRow
}

// GetEventRoster builds the roster for an event. Attendance summaries
// are recomputed from the raw check-in/check-out records; a registrant
// with no records shows as absent.
// POST: One row per registration, ordered by participant name
func GetEventRoster(ctx context.Context, eventID string, deps EventRosterDeps) (EventRoster, error) {
	ev, err := deps.EventStore.GetByID(ctx, eventID)
	if err != nil {
		return EventRoster{}, fmt.Errorf("load event: %w", err)
	}
	regs, err := deps.RegistrationStore.ListByEvent(ctx, eventID)
	if err != nil {
		return EventRoster{}, fmt.Errorf("list registrations: %w", err)
	}
	records, err := deps.AttendanceStore.ListByEvent(ctx, eventID)
	if err != nil {
		return EventRoster{}, fmt.Errorf("list attendance: %w", err)
	}

	byParticipant := make(map[string][]attendance.Record)
	for _, r := range records {
		byParticipant[r.ParticipantID] = append(byParticipant[r.ParticipantID], r)
	}

	roster := EventRoster{Event: ev}
	for _, reg := range regs {
		recs := byParticipant[reg.ID]
		verified := false
		for _, r := range recs {
			if r.Verified {
				verified = true
				break
			}
		}
		roster.Rows = append(roster.Rows, RosterRow{
			RegistrationID:   reg.ID,
			ParticipantName:  reg.ParticipantName,
			ParticipantEmail: reg.ParticipantEmail,
			Credential:       reg.Credential,
			ConfirmationCode: reg.ConfirmationCode,
			Summary:          attendance.Aggregate(recs, ev.ScheduledMinutes()),
			Verified:         verified,
		})
	}

	sort.Slice(roster.Rows, func(i, j int) bool {
		return roster.Rows[i].ParticipantName < roster.Rows[j].ParticipantName
	})
	return roster, nil
}
