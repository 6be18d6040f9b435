package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"aceplatform/internal/domain/complaint"
)

// FeedbackStore defines the event-feedback persistence interface.
type FeedbackStore interface {
	GetByID(ctx context.Context, id string) (complaint.FeedbackResponse, error)
	Save(ctx context.Context, f complaint.FeedbackResponse) error
	ListUnreviewed(ctx context.Context) ([]complaint.FeedbackResponse, error)
	ListByEvent(ctx context.Context, eventID string) ([]complaint.FeedbackResponse, error)
}

// SubmitFeedbackInput carries input for post-event feedback.
type SubmitFeedbackInput struct {
	EventID          string
	ParticipantID    string
	Rating           int
	InstructorRating int
	ContentRating    int
	Comments         string
	WouldRecommend   bool
}

// SubmitFeedbackDeps holds dependencies for SubmitFeedback.
type SubmitFeedbackDeps struct {
	EventStore    EventLookupStore
	FeedbackStore FeedbackStore
	GenerateID    func() string
	Now           func() time.Time
}

// ExecuteSubmitFeedback records post-event feedback with its 45-day
// coordinator review window fixed at submission.
// PRE: event exists; rating is 1..5
// POST: Feedback saved with its review due date set
func ExecuteSubmitFeedback(ctx context.Context, input SubmitFeedbackInput, deps SubmitFeedbackDeps) (complaint.FeedbackResponse, error) {
	if _, err := deps.EventStore.GetByID(ctx, input.EventID); err != nil {
		return complaint.FeedbackResponse{}, err
	}

	now := deps.Now()
	f := complaint.FeedbackResponse{
		ID:                       deps.GenerateID(),
		EventID:                  input.EventID,
		ParticipantID:            input.ParticipantID,
		Rating:                   input.Rating,
		InstructorRating:         input.InstructorRating,
		ContentRating:            input.ContentRating,
		Comments:                 input.Comments,
		WouldRecommend:           input.WouldRecommend,
		SubmittedAt:              now,
		CoordinatorReviewDueDate: complaint.NewDueDate(now),
	}
	if err := f.Validate(); err != nil {
		return complaint.FeedbackResponse{}, err
	}
	if err := deps.FeedbackStore.Save(ctx, f); err != nil {
		return complaint.FeedbackResponse{}, err
	}

	slog.Info("feedback_event", "event", "feedback_submitted", "event_id", input.EventID, "feedback_id", f.ID, "rating", f.Rating)
	return f, nil
}

// ReviewFeedbackInput carries input for a coordinator feedback review.
type ReviewFeedbackInput struct {
	FeedbackID string
	Notes      string
	ActorID    string
}

// ReviewFeedbackDeps holds dependencies for ReviewFeedback.
type ReviewFeedbackDeps struct {
	FeedbackStore FeedbackStore
	Now           func() time.Time
}

// ExecuteReviewFeedback marks feedback as coordinator-reviewed, clearing
// it from the overdue count. Reviewing already-reviewed feedback just
// refreshes the notes.
// POST: CoordinatorReviewedAt is set
func ExecuteReviewFeedback(ctx context.Context, input ReviewFeedbackInput, deps ReviewFeedbackDeps) (complaint.FeedbackResponse, error) {
	f, err := deps.FeedbackStore.GetByID(ctx, input.FeedbackID)
	if err != nil {
		return complaint.FeedbackResponse{}, err
	}

	f.MarkReviewed(deps.Now(), input.Notes)
	if err := deps.FeedbackStore.Save(ctx, f); err != nil {
		return complaint.FeedbackResponse{}, err
	}

	slog.Info("feedback_event", "event", "feedback_reviewed", "feedback_id", f.ID, "actor_id", input.ActorID)
	return f, nil
}
