package complaint

import (
	"context"

	domain "aceplatform/internal/domain/complaint"
)

// Store persists Complaint state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Complaint, error)
	Save(ctx context.Context, value domain.Complaint) error
	ListOpen(ctx context.Context) ([]domain.Complaint, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Complaint, error)
}

// FeedbackStore persists FeedbackResponse state.
type FeedbackStore interface {
	GetByID(ctx context.Context, id string) (domain.FeedbackResponse, error)
	Save(ctx context.Context, value domain.FeedbackResponse) error
	ListUnreviewed(ctx context.Context) ([]domain.FeedbackResponse, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.FeedbackResponse, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status string // empty means all
	Limit  int
	Offset int
}
