// Package complaint tracks participant complaints and event feedback
// against the BACB 45-day response windows. Complaint records are
// preserved forever: terminal states close them but never delete them.
package complaint

import (
	"errors"
	"strings"
	"time"

	"aceplatform/internal/domain/temporal"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusUnderReview     Status = "under_review"
	StatusResolved        Status = "resolved"
	StatusEscalatedToBACB Status = "escalated_to_bacb"
)

// Domain errors
var (
	ErrInvalidTransition = errors.New("complaint status transition not permitted")
	ErrNotesRequired     = errors.New("resolution notes are required to close a complaint")
	ErrAlreadyClosed     = errors.New("complaint is already closed")
)

// Complaint holds one submitted complaint and its resolution trail.
type Complaint struct {
	ID                    string
	EventID               string // optional: complaints may be general
	SubmitterName         string
	SubmitterEmail        string
	Body                  string
	Status                Status
	SubmittedAt           time.Time
	ResponseDueDate       time.Time // SubmittedAt + 45 days, fixed at submission
	ResolvedAt            time.Time
	ResolutionNotes       string
	NAVEscalationNotified bool // notification record, independent of status
}

// Validate checks if the Complaint has valid data.
// PRE: Complaint struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *Complaint) Validate() error {
	if strings.TrimSpace(c.SubmitterEmail) == "" || !strings.Contains(c.SubmitterEmail, "@") {
		return errors.New("submitter email must be valid")
	}
	if strings.TrimSpace(c.Body) == "" {
		return errors.New("complaint body cannot be empty")
	}
	if c.SubmittedAt.IsZero() {
		return errors.New("submitted time must be set")
	}
	switch c.Status {
	case StatusSubmitted, StatusUnderReview, StatusResolved, StatusEscalatedToBACB:
	default:
		return errors.New("unknown complaint status")
	}
	return nil
}

// IsClosed reports whether the complaint is in a terminal state.
func (c *Complaint) IsClosed() bool {
	return c.Status == StatusResolved || c.Status == StatusEscalatedToBACB
}

// IsOverdue reports whether the open complaint has passed its response
// deadline. Derived at read time, never stored.
// POST: Returns true only for open complaints past ResponseDueDate
func (c *Complaint) IsOverdue(asOf time.Time) bool {
	if c.IsClosed() {
		return false
	}
	return temporal.IsOverdue(asOf, c.ResponseDueDate)
}

// TransitionTo drives the complaint state machine:
// submitted → under_review → {resolved, escalated_to_bacb}.
// Closing transitions require non-empty notes. The due date is fixed at
// submission and never recalculated by a transition.
// PRE: next is a valid status
// POST: Status updated with notes/timestamps, or a sentinel error
func (c *Complaint) TransitionTo(next Status, at time.Time, notes string) error {
	if c.IsClosed() {
		return ErrAlreadyClosed
	}
	switch next {
	case StatusUnderReview:
		if c.Status != StatusSubmitted {
			return ErrInvalidTransition
		}
		c.Status = StatusUnderReview
	case StatusResolved, StatusEscalatedToBACB:
		if c.Status != StatusUnderReview && c.Status != StatusSubmitted {
			return ErrInvalidTransition
		}
		if strings.TrimSpace(notes) == "" {
			return ErrNotesRequired
		}
		c.Status = next
		c.ResolvedAt = at
		c.ResolutionNotes = notes
	default:
		return ErrInvalidTransition
	}
	return nil
}

// FeedbackResponse is a participant's post-event feedback. It has no
// status machine, only a reviewed/not-reviewed flag with the same
// 45-day coordinator review window as complaints.
type FeedbackResponse struct {
	ID                       string
	EventID                  string
	ParticipantID            string
	Rating                   int // 1..5
	InstructorRating         int
	ContentRating            int
	Comments                 string
	WouldRecommend           bool
	SubmittedAt              time.Time
	CoordinatorReviewDueDate time.Time // SubmittedAt + 45 days
	CoordinatorReviewedAt    time.Time
	ReviewNotes              string
}

// Validate checks if the FeedbackResponse has valid data.
// POST: Returns error if validation fails, nil otherwise
func (f *FeedbackResponse) Validate() error {
	if f.EventID == "" || f.ParticipantID == "" {
		return errors.New("feedback must reference an event and a participant")
	}
	if f.Rating < 1 || f.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	if f.SubmittedAt.IsZero() {
		return errors.New("submitted time must be set")
	}
	return nil
}

// IsReviewed reports whether a coordinator has reviewed the feedback.
func (f *FeedbackResponse) IsReviewed() bool {
	return !f.CoordinatorReviewedAt.IsZero()
}

// IsOverdue reports whether unreviewed feedback has passed its review
// deadline. Same derived rule as Complaint, keyed off review.
func (f *FeedbackResponse) IsOverdue(asOf time.Time) bool {
	if f.IsReviewed() {
		return false
	}
	return temporal.IsOverdue(asOf, f.CoordinatorReviewDueDate)
}

// MarkReviewed records the coordinator review.
// PRE: feedback has not already been reviewed
// POST: CoordinatorReviewedAt and notes are set
func (f *FeedbackResponse) MarkReviewed(at time.Time, notes string) {
	f.CoordinatorReviewedAt = at
	f.ReviewNotes = notes
}

// NewDueDate computes the fixed 45-day response window from submission.
func NewDueDate(submittedAt time.Time) time.Time {
	return temporal.Deadline(submittedAt, temporal.ResponseWindowDays)
}
