package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/audit"
)

// AuditStore defines the audit-log persistence interface.
type AuditStore interface {
	Save(ctx context.Context, e audit.Event) error
}

// ToggleAttendanceVerificationInput carries input for a single-participant
// verification toggle.
type ToggleAttendanceVerificationInput struct {
	EventID       string
	ParticipantID string
	Verified      bool
	ActorID       string
	ActorEmail    string
}

// ToggleAttendanceVerificationDeps holds dependencies for the toggle.
type ToggleAttendanceVerificationDeps struct {
	EventStore      EventLookupStore
	AttendanceStore AttendanceStore
	AuditStore      AuditStore
	Now             func() time.Time
}

// ExecuteToggleAttendanceVerification sets or clears verification on all
// of a participant's attendance records for an event. Unlike bulk
// verification it applies at any percentage; verifying below the
// threshold is recorded as an audited override.
// PRE: participant has at least one attendance record for the event
// POST: All records carry the new verification state; an audit event is
// written naming the actor
func ExecuteToggleAttendanceVerification(ctx context.Context, input ToggleAttendanceVerificationInput, deps ToggleAttendanceVerificationDeps) error {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return err
	}

	records, err := deps.AttendanceStore.ListByParticipant(ctx, input.EventID, input.ParticipantID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return attendance.ErrNotCheckedIn
	}

	now := deps.Now()
	for i := range records {
		records[i].Verified = input.Verified
		if input.Verified {
			records[i].VerifiedBy = input.ActorID
			records[i].VerifiedAt = now
		} else {
			records[i].VerifiedBy = ""
			records[i].VerifiedAt = time.Time{}
		}
		if err := deps.AttendanceStore.Save(ctx, records[i]); err != nil {
			return err
		}
	}

	summary := attendance.Aggregate(records, ev.ScheduledMinutes())
	action := audit.ActionVerify
	severity := audit.SeverityInfo
	if input.Verified && !summary.MeetsVerifyThreshold() {
		action = audit.ActionOverride
		severity = audit.SeverityWarning
	}
	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryAttendance, action).
		WithSeverity(severity).
		WithResource("attendance", input.ParticipantID).
		WithDescription(fmt.Sprintf("attendance verification set to %t at %d%% for event %s", input.Verified, summary.Percentage, input.EventID))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("attendance_event", "event", "audit_write_failed", "event_id", input.EventID, "error", err.Error())
	}

	slog.Info("attendance_event", "event", "verification_toggled", "event_id", input.EventID, "participant_id", input.ParticipantID, "verified", input.Verified, "percentage", summary.Percentage)
	return nil
}

// BulkVerifyAttendanceInput carries input for event-wide verification.
type BulkVerifyAttendanceInput struct {
	EventID    string
	ActorID    string
	ActorEmail string
}

// BulkVerifyAttendanceDeps holds dependencies for bulk verification.
type BulkVerifyAttendanceDeps struct {
	EventStore      EventLookupStore
	AttendanceStore AttendanceStore
	AuditStore      AuditStore
	Now             func() time.Time
}

// BulkVerifyAttendanceResult reports the split between verified and
// skipped participants.
type BulkVerifyAttendanceResult struct {
	VerifiedCount int
	SkippedCount  int
	Skipped       []string // participant ids below the threshold
}

// ExecuteBulkVerifyAttendance verifies every participant at or above the
// attendance threshold. Participants below it are skipped, never
// silently verified; they require the individual override.
// PRE: event exists
// POST: Qualifying participants verified; skipped ids returned
func ExecuteBulkVerifyAttendance(ctx context.Context, input BulkVerifyAttendanceInput, deps BulkVerifyAttendanceDeps) (BulkVerifyAttendanceResult, error) {
	ev, err := deps.EventStore.GetByID(ctx, input.EventID)
	if err != nil {
		return BulkVerifyAttendanceResult{}, err
	}

	records, err := deps.AttendanceStore.ListByEvent(ctx, input.EventID)
	if err != nil {
		return BulkVerifyAttendanceResult{}, err
	}

	byParticipant := make(map[string][]attendance.Record)
	for _, r := range records {
		byParticipant[r.ParticipantID] = append(byParticipant[r.ParticipantID], r)
	}

	now := deps.Now()
	var result BulkVerifyAttendanceResult
	for pid, recs := range byParticipant {
		summary := attendance.Aggregate(recs, ev.ScheduledMinutes())
		if !summary.MeetsVerifyThreshold() {
			result.SkippedCount++
			result.Skipped = append(result.Skipped, pid)
			continue
		}
		for i := range recs {
			recs[i].Verified = true
			recs[i].VerifiedBy = input.ActorID
			recs[i].VerifiedAt = now
			if err := deps.AttendanceStore.Save(ctx, recs[i]); err != nil {
				return result, err
			}
		}
		result.VerifiedCount++
	}

	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryAttendance, audit.ActionVerify).
		WithResource("event", input.EventID).
		WithDescription(fmt.Sprintf("bulk verification: %d verified, %d below threshold", result.VerifiedCount, result.SkippedCount))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("attendance_event", "event", "audit_write_failed", "event_id", input.EventID, "error", err.Error())
	}

	slog.Info("attendance_event", "event", "bulk_verification_completed", "event_id", input.EventID, "verified", result.VerifiedCount, "skipped", result.SkippedCount)
	return result, nil
}
