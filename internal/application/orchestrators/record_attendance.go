package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/event"
)

// AttendanceStore defines the attendance persistence interface.
type AttendanceStore interface {
	Save(ctx context.Context, r attendance.Record) error
	ListByParticipant(ctx context.Context, eventID, participantID string) ([]attendance.Record, error)
	ListByEvent(ctx context.Context, eventID string) ([]attendance.Record, error)
}

// RecordCheckInInput carries input for a participant check-in.
type RecordCheckInInput struct {
	EventID       string
	ParticipantID string
}

// RecordCheckInDeps holds dependencies for RecordCheckIn.
type RecordCheckInDeps struct {
	EventStore      EventLookupStore
	AttendanceStore AttendanceStore
	GenerateID      func() string
	Now             func() time.Time
}

// ExecuteRecordCheckIn opens a new attendance record for a participant.
// A participant may check in and out multiple times over a multi-session
// event; only one record may be open at a time.
// PRE: input identifies an event and participant
// POST: New open record saved, or ErrAlreadyCheckedIn
func ExecuteRecordCheckIn(ctx context.Context, input RecordCheckInInput, deps RecordCheckInDeps) (attendance.Record, error) {
	if _, err := deps.EventStore.GetByID(ctx, input.EventID); err != nil {
		return attendance.Record{}, err
	}

	records, err := deps.AttendanceStore.ListByParticipant(ctx, input.EventID, input.ParticipantID)
	if err != nil {
		return attendance.Record{}, err
	}
	for _, r := range records {
		if r.IsOpen() {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
	}

	rec := attendance.Record{
		ID:            deps.GenerateID(),
		EventID:       input.EventID,
		ParticipantID: input.ParticipantID,
		CheckInTime:   deps.Now(),
	}
	if err := rec.Validate(); err != nil {
		return attendance.Record{}, err
	}
	if err := deps.AttendanceStore.Save(ctx, rec); err != nil {
		return attendance.Record{}, err
	}

	slog.Info("attendance_event", "event", "participant_checked_in", "event_id", input.EventID, "participant_id", input.ParticipantID, "record_id", rec.ID)
	return rec, nil
}

// RecordCheckOutInput carries input for a participant check-out.
type RecordCheckOutInput struct {
	EventID       string
	ParticipantID string
}

// RecordCheckOutDeps holds dependencies for RecordCheckOut.
type RecordCheckOutDeps struct {
	EventStore      EventLookupStore
	AttendanceStore AttendanceStore
	Now             func() time.Time
}

// RecordCheckOutResult carries the closed record and the recomputed
// attendance summary.
type RecordCheckOutResult struct {
	Record  attendance.Record
	Summary attendance.Summary
}

// ExecuteRecordCheckOut closes the participant's open attendance record
// and returns the summary recomputed from all of their raw records.
// PRE: participant has an open check-in for the event
// POST: Record closed; summary derived fresh, never read from storage
func ExecuteRecordCheckOut(ctx context.Context, input RecordCheckOutInput, deps RecordCheckOutDeps) (RecordCheckOutResult, error) {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return RecordCheckOutResult{}, err
	}

	records, err := deps.AttendanceStore.ListByParticipant(ctx, input.EventID, input.ParticipantID)
	if err != nil {
		return RecordCheckOutResult{}, err
	}

	openIdx := -1
	for i, r := range records {
		if r.IsOpen() {
			openIdx = i
			break
		}
	}
	if openIdx < 0 {
		return RecordCheckOutResult{}, attendance.ErrNotCheckedIn
	}

	records[openIdx].CheckOutTime = deps.Now()
	if err := records[openIdx].Validate(); err != nil {
		return RecordCheckOutResult{}, err
	}
	if err := deps.AttendanceStore.Save(ctx, records[openIdx]); err != nil {
		return RecordCheckOutResult{}, err
	}

	summary := attendance.Aggregate(records, ev.ScheduledMinutes())
	slog.Info("attendance_event", "event", "participant_checked_out", "event_id", input.EventID, "participant_id", input.ParticipantID, "duration_minutes", summary.DurationMinutes, "percentage", summary.Percentage)
	return RecordCheckOutResult{Record: records[openIdx], Summary: summary}, nil
}

// EventAttendanceSummaries recomputes the attendance summary for every
// participant with records at the event, keyed by participant id.
func EventAttendanceSummaries(records []attendance.Record, ev event.Event) map[string]attendance.Summary {
	byParticipant := make(map[string][]attendance.Record)
	for _, r := range records {
		byParticipant[r.ParticipantID] = append(byParticipant[r.ParticipantID], r)
	}
	summaries := make(map[string]attendance.Summary, len(byParticipant))
	for pid, recs := range byParticipant {
		summaries[pid] = attendance.Aggregate(recs, ev.ScheduledMinutes())
	}
	return summaries
}
