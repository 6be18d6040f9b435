package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"aceplatform/internal/application/projections"
	"aceplatform/internal/domain/outbox"
)

// ComplianceDigestDeps holds dependencies for the daily digest job.
type ComplianceDigestDeps struct {
	Dashboard   projections.ComplianceDashboardDeps
	OutboxStore OutboxEnqueueStore
	Recipient   string
	GenerateID  func() string
	Now         func() time.Time
}

// ExecuteEnqueueComplianceDigest assembles the compliance dashboard and
// queues it as a digest notice for the provider admin. The dashboard is
// recomputed at enqueue time so the digest always reflects current
// overdue state.
// POST: One digest entry queued, or an error
func ExecuteEnqueueComplianceDigest(ctx context.Context, deps ComplianceDigestDeps) (outbox.Entry, error) {
	now := deps.Now()
	dash, err := projections.GetComplianceDashboard(ctx, now, deps.Dashboard)
	if err != nil {
		return outbox.Entry{}, err
	}

	payload, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		return outbox.Entry{}, err
	}

	entry := outbox.Entry{
		ID:          deps.GenerateID(),
		NoticeType:  outbox.NoticeComplianceDigest,
		Payload:     string(payload),
		Recipient:   deps.Recipient,
		Status:      outbox.StatusPending,
		MaxAttempts: outbox.DefaultMaxAttempts,
		CreatedAt:   now,
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return outbox.Entry{}, err
	}

	slog.Info("outbox_event", "event", "digest_enqueued", "entry_id", entry.ID, "score", dash.Score, "audit_items", len(dash.AuditItems))
	return entry, nil
}
