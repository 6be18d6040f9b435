// Package event defines the CE/PD event model and its status lifecycle.
package event

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength = 200
)

// Type distinguishes continuing-education events from professional-development events.
type Type string

const (
	TypeCE Type = "ce" // for BCBA / BCaBA credential holders
	TypePD Type = "pd" // for RBT credential holders
)

// Category is the BACB content category of an event.
type Category string

const (
	CategoryLearning    Category = "learning"
	CategoryEthics      Category = "ethics"
	CategorySupervision Category = "supervision"
	CategoryTeaching    Category = "teaching"
)

// Modality describes how an event is delivered.
type Modality string

const (
	ModalityInPerson     Modality = "in_person"
	ModalitySynchronous  Modality = "synchronous"
	ModalityAsynchronous Modality = "asynchronous"
)

// Status is the lifecycle state of an event. Transitions are monotonic:
// each status may only advance to the next one, except archival which is
// allowed from any state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusArchived        Status = "archived"
)

// Domain errors
var (
	ErrInvalidTransition = errors.New("event status transition not permitted")
	ErrAlreadyCompleted  = errors.New("event is already completed")
	ErrNotCompleted      = errors.New("event has not completed")
	ErrAtCapacity        = errors.New("event is at capacity")
)

// statusRank orders the monotonic lifecycle. Archived sits outside the
// ordering and is reachable from anywhere.
var statusRank = map[Status]int{
	StatusDraft:           0,
	StatusPendingApproval: 1,
	StatusApproved:        2,
	StatusInProgress:      3,
	StatusCompleted:       4,
}

// Event holds state for a single CE or PD event.
type Event struct {
	ID                  string
	Title               string
	Description         string // markdown, rendered by the public API
	Type                Type
	Category            Category
	Modality            Modality
	StartDate           time.Time
	EndDate             time.Time
	CreditUnits         float64 // CEUs awarded on completion
	MaxParticipants     int
	CurrentParticipants int
	Status              Status
	ProviderID          string
	CoordinatorID       string
	CreatedAt           time.Time
}

// Validate checks if the Event has valid data.
// PRE: Event struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: StartDate precedes EndDate, CurrentParticipants never exceeds MaxParticipants
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title cannot be empty")
	}
	if len(e.Title) > MaxTitleLength {
		return errors.New("event title cannot exceed 200 characters")
	}
	if e.Type != TypeCE && e.Type != TypePD {
		return errors.New("event type must be 'ce' or 'pd'")
	}
	switch e.Category {
	case CategoryLearning, CategoryEthics, CategorySupervision, CategoryTeaching:
	default:
		return errors.New("category must be 'learning', 'ethics', 'supervision', or 'teaching'")
	}
	switch e.Modality {
	case ModalityInPerson, ModalitySynchronous, ModalityAsynchronous:
	default:
		return errors.New("modality must be 'in_person', 'synchronous', or 'asynchronous'")
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return errors.New("event start and end dates must be set")
	}
	if !e.EndDate.After(e.StartDate) {
		return errors.New("event end date must be after start date")
	}
	if e.CreditUnits <= 0 {
		return errors.New("credit units must be positive")
	}
	if e.MaxParticipants <= 0 {
		return errors.New("max participants must be positive")
	}
	if e.CurrentParticipants < 0 || e.CurrentParticipants > e.MaxParticipants {
		return errors.New("current participants must be between 0 and max participants")
	}
	if e.CoordinatorID == "" {
		return errors.New("event must have a coordinator")
	}
	if _, ok := statusRank[e.Status]; !ok && e.Status != StatusArchived {
		return errors.New("unknown event status")
	}
	return nil
}

// TransitionTo advances the event to the next lifecycle status.
// PRE: next is a valid status
// POST: Status is updated, or ErrInvalidTransition if the move is not monotonic
// INVARIANT: Statuses only move forward; archival is allowed from any state
func (e *Event) TransitionTo(next Status) error {
	if next == StatusArchived {
		e.Status = next
		return nil
	}
	from, okFrom := statusRank[e.Status]
	to, okTo := statusRank[next]
	if !okFrom || !okTo || to != from+1 {
		return ErrInvalidTransition
	}
	e.Status = next
	return nil
}

// ScheduledMinutes returns the scheduled duration of the event in minutes.
// PRE: StartDate and EndDate are set
// POST: Returns a non-negative minute count
func (e *Event) ScheduledMinutes() int {
	if e.EndDate.Before(e.StartDate) {
		return 0
	}
	return int(e.EndDate.Sub(e.StartDate).Minutes())
}

// HasStarted reports whether the event's start time has passed at asOf.
func (e *Event) HasStarted(asOf time.Time) bool {
	return asOf.After(e.StartDate)
}

// IsFull reports whether the event has no remaining capacity.
// INVARIANT: CurrentParticipants/MaxParticipants are not mutated
func (e *Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// IsCompleted reports whether the event has reached the completed state.
func (e *Event) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// IsArchived reports whether the event has been archived.
func (e *Event) IsArchived() bool {
	return e.Status == StatusArchived
}
