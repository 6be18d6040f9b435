// Package attendance holds raw check-in/check-out records and the pure
// aggregation that derives a participant's attendance percentage and
// status. Derived values are never persisted; they are recomputed from
// the raw timestamps on every read so stored flags cannot drift.
package attendance

import (
	"errors"
	"math"
	"time"
)

// VerifyThresholdPercent is the minimum attendance percentage required
// for bulk verification. A coordinator may still verify an individual
// record below this threshold as an explicit, audited override.
const VerifyThresholdPercent = 80

// Status is the derived attendance state of a participant for one event.
type Status string

const (
	StatusAbsent    Status = "absent"
	StatusPartial   Status = "partial"
	StatusCheckedIn Status = "checked_in"
	StatusPresent   Status = "present"
)

// Domain errors
var (
	ErrAlreadyCheckedIn  = errors.New("participant already has an open check-in")
	ErrNotCheckedIn      = errors.New("participant has no open check-in")
	ErrBelowThreshold    = errors.New("attendance percentage is below the verification threshold")
	ErrCheckOutBeforeIn  = errors.New("check-out time cannot be before check-in time")
	ErrMissingCheckIn    = errors.New("check-in time must be set")
	ErrMissingPartyOrRef = errors.New("attendance must reference a participant and an event")
)

// Record holds one raw check-in/check-out pair for a participant at an event.
type Record struct {
	ID            string
	EventID       string
	ParticipantID string
	CheckInTime   time.Time
	CheckOutTime  time.Time
	Verified      bool
	VerifiedBy    string // coordinator who verified, empty until verification
	VerifiedAt    time.Time
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: ParticipantID and EventID must not be empty, CheckInTime must be set
func (r *Record) Validate() error {
	if r.ParticipantID == "" || r.EventID == "" {
		return ErrMissingPartyOrRef
	}
	if r.CheckInTime.IsZero() {
		return ErrMissingCheckIn
	}
	if !r.CheckOutTime.IsZero() && r.CheckOutTime.Before(r.CheckInTime) {
		return ErrCheckOutBeforeIn
	}
	return nil
}

// IsOpen returns true if the participant has checked in but not out.
// PRE: Record is initialized
// POST: Returns boolean indicating open check-in status
func (r *Record) IsOpen() bool {
	return !r.CheckInTime.IsZero() && r.CheckOutTime.IsZero()
}

// Duration returns the closed duration of this record. An open record
// contributes zero until it is closed.
// POST: Returns the check-out minus check-in duration, or 0 while open
func (r *Record) Duration() time.Duration {
	if r.IsOpen() {
		return 0
	}
	return r.CheckOutTime.Sub(r.CheckInTime)
}

// Summary is the derived attendance view for one participant at one event.
type Summary struct {
	DurationMinutes int
	Percentage      int
	Status          Status
}

// Aggregate recomputes a participant's attendance summary from their raw
// records and the event's scheduled duration. Safe to race: it is a pure
// function of its inputs.
// PRE: records all belong to the same participant and event
// POST: Percentage is in [0, 100]; Status is derived, never stored
func Aggregate(records []Record, scheduledMinutes int) Summary {
	if len(records) == 0 {
		return Summary{Status: StatusAbsent}
	}

	var total time.Duration
	open := false
	for _, r := range records {
		if r.IsOpen() {
			open = true
			continue
		}
		total += r.Duration()
	}

	minutes := int(total.Minutes())
	pct := 0
	if scheduledMinutes > 0 {
		pct = int(math.Round(float64(minutes) / float64(scheduledMinutes) * 100))
		if pct > 100 {
			pct = 100
		}
	}

	status := StatusPartial
	switch {
	case open:
		status = StatusCheckedIn
	case pct >= VerifyThresholdPercent:
		status = StatusPresent
	}

	return Summary{DurationMinutes: minutes, Percentage: pct, Status: status}
}

// MeetsVerifyThreshold reports whether the summary qualifies for bulk
// verification.
func (s Summary) MeetsVerifyThreshold() bool {
	return s.Percentage >= VerifyThresholdPercent
}
