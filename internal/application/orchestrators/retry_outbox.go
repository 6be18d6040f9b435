package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aceplatform/internal/domain/outbox"
)

// NoticeDeliverer delivers one notice payload and returns the provider
// message id. Implementations exist per notice type.
type NoticeDeliverer interface {
	Deliver(ctx context.Context, entry outbox.Entry) (externalID string, err error)
}

// OutboxProcessStore defines the outbox interface used by the processor.
type OutboxProcessStore interface {
	GetByID(ctx context.Context, id string) (outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
	ListRetryable(ctx context.Context, limit int) ([]outbox.Entry, error)
}

// OutboxProcessor drains the notification outbox with exponential
// backoff. Delivery is at-least-once: a crash between provider send and
// the done write re-delivers on the next sweep.
type OutboxProcessor struct {
	store      OutboxProcessStore
	deliverers map[string]NoticeDeliverer // keyed by notice type
	now        func() time.Time

	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a processor with default retry pacing.
func NewOutboxProcessor(store OutboxProcessStore, deliverers map[string]NoticeDeliverer, now func() time.Time) *OutboxProcessor {
	return &OutboxProcessor{
		store:      store,
		deliverers: deliverers,
		now:        now,
		baseDelay:  30 * time.Second,
		maxDelay:   1 * time.Hour,
		batchSize:  10,
	}
}

// ProcessPending attempts delivery for one batch of retryable entries.
// POST: Returns the number of entries that reached done
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListRetryable(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list retryable outbox entries: %w", err)
	}

	delivered := 0
	for _, entry := range entries {
		if !p.due(entry) {
			continue
		}
		if err := p.processEntry(ctx, entry); err != nil {
			slog.Warn("outbox_event", "event", "delivery_attempt_failed", "entry_id", entry.ID, "notice_type", entry.NoticeType, "error", err.Error())
			continue
		}
		delivered++
	}
	return delivered, nil
}

// due applies the backoff window to an entry's last attempt.
func (p *OutboxProcessor) due(entry outbox.Entry) bool {
	if entry.LastAttemptedAt.IsZero() {
		return true
	}
	return p.now().After(entry.LastAttemptedAt.Add(entry.NextRetryDelay(p.baseDelay, p.maxDelay)))
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry outbox.Entry) error {
	deliverer, ok := p.deliverers[entry.NoticeType]
	if !ok {
		return fmt.Errorf("no deliverer for notice type %q", entry.NoticeType)
	}

	entry.MarkAttempt(p.now())
	externalID, err := deliverer.Deliver(ctx, entry)
	if err != nil {
		entry.MarkFailed(err)
		if saveErr := p.store.Save(ctx, entry); saveErr != nil {
			return saveErr
		}
		return err
	}

	entry.MarkDelivered(externalID)
	if err := p.store.Save(ctx, entry); err != nil {
		return err
	}
	slog.Info("outbox_event", "event", "notice_delivered", "entry_id", entry.ID, "notice_type", entry.NoticeType, "external_id", externalID)
	return nil
}

// ProcessSingle forces an immediate delivery attempt for one entry,
// bypassing the backoff window. Used by the admin retry endpoint.
// PRE: entry exists and can still retry
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if !entry.CanRetry() {
		return outbox.ErrMaxRetries
	}
	return p.processEntry(ctx, entry)
}

// AbandonEntry marks an entry abandoned so the sweeper stops retrying it.
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.IsTerminal() && entry.Status != outbox.StatusFailed {
		return errors.New("entry is already terminal")
	}
	entry.MarkAbandoned()
	if err := p.store.Save(ctx, entry); err != nil {
		return err
	}
	slog.Info("outbox_event", "event", "entry_abandoned", "entry_id", entry.ID)
	return nil
}

// StartBackgroundWorker runs ProcessPending on a ticker until the
// context is cancelled.
func (p *OutboxProcessor) StartBackgroundWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.ProcessPending(ctx); err != nil {
					slog.Error("outbox_event", "event", "sweep_failed", "error", err.Error())
				}
			}
		}
	}()
}
