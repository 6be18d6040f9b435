package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"aceplatform/internal/domain/audit"
	"aceplatform/internal/domain/complaint"
	"aceplatform/internal/domain/outbox"
)

// ComplaintStore defines the complaint persistence interface.
type ComplaintStore interface {
	GetByID(ctx context.Context, id string) (complaint.Complaint, error)
	Save(ctx context.Context, c complaint.Complaint) error
	ListOpen(ctx context.Context) ([]complaint.Complaint, error)
}

// SubmitComplaintInput carries input for complaint submission.
type SubmitComplaintInput struct {
	EventID        string // optional
	SubmitterName  string
	SubmitterEmail string
	Body           string
}

// SubmitComplaintDeps holds dependencies for SubmitComplaint.
type SubmitComplaintDeps struct {
	ComplaintStore ComplaintStore
	OutboxStore    OutboxEnqueueStore
	GenerateID     func() string
	Now            func() time.Time
}

// navRightsPayload is the outbox payload for the notification-of-
// appeal-rights notice sent on submission.
type navRightsPayload struct {
	ComplaintID     string `json:"complaint_id"`
	SubmitterName   string `json:"submitter_name"`
	ResponseDueDate string `json:"response_due_date"`
}

// ExecuteSubmitComplaint records a new complaint. The 45-day response
// deadline is fixed at submission time. Submitters are sent a notice of
// their right to escalate directly to the BACB.
// PRE: submitter email and body are present
// POST: Complaint saved as submitted with its due date set
func ExecuteSubmitComplaint(ctx context.Context, input SubmitComplaintInput, deps SubmitComplaintDeps) (complaint.Complaint, error) {
	now := deps.Now()
	c := complaint.Complaint{
		ID:              deps.GenerateID(),
		EventID:         input.EventID,
		SubmitterName:   input.SubmitterName,
		SubmitterEmail:  input.SubmitterEmail,
		Body:            input.Body,
		Status:          complaint.StatusSubmitted,
		SubmittedAt:     now,
		ResponseDueDate: complaint.NewDueDate(now),
	}
	if err := c.Validate(); err != nil {
		return complaint.Complaint{}, err
	}
	if err := deps.ComplaintStore.Save(ctx, c); err != nil {
		return complaint.Complaint{}, err
	}

	if deps.OutboxStore != nil {
		payload, _ := json.Marshal(navRightsPayload{
			ComplaintID:     c.ID,
			SubmitterName:   c.SubmitterName,
			ResponseDueDate: c.ResponseDueDate.Format("2006-01-02"),
		})
		entry := outbox.Entry{
			ID:          deps.GenerateID(),
			NoticeType:  outbox.NoticeNAVRights,
			Payload:     string(payload),
			Recipient:   c.SubmitterEmail,
			Status:      outbox.StatusPending,
			MaxAttempts: outbox.DefaultMaxAttempts,
			CreatedAt:   now,
		}
		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			slog.Error("complaint_event", "event", "notice_enqueue_failed", "complaint_id", c.ID, "error", err.Error())
		}
	}

	slog.Info("complaint_event", "event", "complaint_submitted", "complaint_id", c.ID, "due", c.ResponseDueDate.Format("2006-01-02"))
	return c, nil
}

// UpdateComplaintInput carries input for a complaint status change.
// NAVNotified records that the submitter was notified of their appeal
// rights; nil leaves the stored flag untouched.
type UpdateComplaintInput struct {
	ComplaintID string
	Next        complaint.Status
	Notes       string
	NAVNotified *bool
	ActorID     string
	ActorEmail  string
}

// UpdateComplaintDeps holds dependencies for UpdateComplaint.
type UpdateComplaintDeps struct {
	ComplaintStore ComplaintStore
	AuditStore     AuditStore
	Now            func() time.Time
}

// ExecuteUpdateComplaint moves a complaint through its state machine.
// Closing states require notes. Escalation to the BACB marks the NAV
// notification flag and writes a warning-severity audit event; the
// written response the BACB expects alongside escalation is advisory,
// so it is logged rather than enforced.
// PRE: complaint exists and is not closed
// POST: Status updated and audited, or a sentinel error
func ExecuteUpdateComplaint(ctx context.Context, input UpdateComplaintInput, deps UpdateComplaintDeps) (complaint.Complaint, error) {
	c, err := deps.ComplaintStore.GetByID(ctx, input.ComplaintID)
	if err != nil {
		return complaint.Complaint{}, err
	}

	now := deps.Now()
	if err := c.TransitionTo(input.Next, now, input.Notes); err != nil {
		return complaint.Complaint{}, err
	}

	if input.NAVNotified != nil {
		c.NAVEscalationNotified = *input.NAVNotified
	}

	severity := audit.SeverityInfo
	action := audit.ActionUpdate
	switch {
	case input.Next == complaint.StatusEscalatedToBACB:
		c.NAVEscalationNotified = true
		severity = audit.SeverityWarning
		action = audit.ActionEscalate
		slog.Warn("complaint_event", "event", "bacb_escalation", "complaint_id", c.ID, "advisory", "a written response should accompany the escalation")
	case input.Next == complaint.StatusResolved && !c.NAVEscalationNotified:
		// Closing without sending the appeal-rights notice is allowed
		// but leaves an audit warning for the compliance record.
		severity = audit.SeverityWarning
		slog.Warn("complaint_event", "event", "resolved_without_nav_notice", "complaint_id", c.ID)
	}

	if err := deps.ComplaintStore.Save(ctx, c); err != nil {
		return complaint.Complaint{}, err
	}

	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryComplaint, action).
		WithSeverity(severity).
		WithResource("complaint", c.ID).
		WithDescription(fmt.Sprintf("complaint moved to %s", c.Status))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("complaint_event", "event", "audit_write_failed", "complaint_id", c.ID, "error", err.Error())
	}

	slog.Info("complaint_event", "event", "complaint_updated", "complaint_id", c.ID, "status", c.Status)
	return c, nil
}
