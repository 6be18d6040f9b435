package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"aceplatform/internal/domain/outbox"
)

// stubDeliverer fails a fixed number of times before succeeding.
type stubDeliverer struct {
	failuresLeft int
	delivered    []string
}

func (d *stubDeliverer) Deliver(_ context.Context, entry outbox.Entry) (string, error) {
	if d.failuresLeft > 0 {
		d.failuresLeft--
		return "", errors.New("provider unavailable")
	}
	d.delivered = append(d.delivered, entry.ID)
	return "msg-" + entry.ID, nil
}

func pendingEntry(id string, at time.Time) outbox.Entry {
	return outbox.Entry{
		ID:          id,
		NoticeType:  outbox.NoticeRegistrationConfirmation,
		Payload:     `{"registration_id":"reg-1","event_title":"Ethics","participant_name":"Ana","confirmation_code":"ABCD2345"}`,
		Recipient:   "ana@example.com",
		Status:      outbox.StatusPending,
		MaxAttempts: 3,
		CreatedAt:   at,
	}
}

func TestOutboxProcessorDeliversPending(t *testing.T) {
	store := &fakeOutboxStore{entries: []outbox.Entry{pendingEntry("e-1", testBase)}}
	deliverer := &stubDeliverer{}
	p := NewOutboxProcessor(store, map[string]NoticeDeliverer{
		outbox.NoticeRegistrationConfirmation: deliverer,
	}, fixedNow(testBase))

	delivered, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	got := store.entries[0]
	if got.Status != outbox.StatusDone || got.ExternalID != "msg-e-1" {
		t.Errorf("entry after delivery: %+v", got)
	}
}

func TestOutboxProcessorBacksOffBetweenAttempts(t *testing.T) {
	store := &fakeOutboxStore{entries: []outbox.Entry{pendingEntry("e-1", testBase)}}
	deliverer := &stubDeliverer{failuresLeft: 1}

	clock := testBase
	p := NewOutboxProcessor(store, map[string]NoticeDeliverer{
		outbox.NoticeRegistrationConfirmation: deliverer,
	}, func() time.Time { return clock })

	// first sweep fails
	if delivered, _ := p.ProcessPending(context.Background()); delivered != 0 {
		t.Fatal("first sweep should fail delivery")
	}
	if store.entries[0].Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", store.entries[0].Attempts)
	}

	// immediately after, the entry is inside its backoff window
	if delivered, _ := p.ProcessPending(context.Background()); delivered != 0 {
		t.Fatal("entry retried inside backoff window")
	}
	if store.entries[0].Attempts != 1 {
		t.Fatalf("attempts advanced inside backoff window: %d", store.entries[0].Attempts)
	}

	// past the backoff window it retries and succeeds
	clock = testBase.Add(2 * time.Minute)
	if delivered, _ := p.ProcessPending(context.Background()); delivered != 1 {
		t.Fatal("entry not retried after backoff window")
	}
	if store.entries[0].Status != outbox.StatusDone {
		t.Errorf("status = %s, want done", store.entries[0].Status)
	}
}

func TestOutboxProcessorStopsAtMaxAttempts(t *testing.T) {
	entry := pendingEntry("e-1", testBase)
	entry.MaxAttempts = 2
	store := &fakeOutboxStore{entries: []outbox.Entry{entry}}
	deliverer := &stubDeliverer{failuresLeft: 10}

	clock := testBase
	p := NewOutboxProcessor(store, map[string]NoticeDeliverer{
		outbox.NoticeRegistrationConfirmation: deliverer,
	}, func() time.Time { return clock })

	for i := 0; i < 5; i++ {
		p.ProcessPending(context.Background())
		clock = clock.Add(3 * time.Hour)
	}
	got := store.entries[0]
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want capped at 2", got.Attempts)
	}
	if got.Status != outbox.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}

	// exhausted entries reject a forced retry
	if err := p.ProcessSingle(context.Background(), "e-1"); !errors.Is(err, outbox.ErrMaxRetries) {
		t.Fatalf("err = %v, want ErrMaxRetries", err)
	}
}

func TestOutboxProcessorAbandon(t *testing.T) {
	entry := pendingEntry("e-1", testBase)
	store := &fakeOutboxStore{entries: []outbox.Entry{entry}}
	p := NewOutboxProcessor(store, nil, fixedNow(testBase))

	if err := p.AbandonEntry(context.Background(), "e-1"); err != nil {
		t.Fatalf("abandon failed: %v", err)
	}
	if store.entries[0].Status != outbox.StatusAbandoned {
		t.Errorf("status = %s, want abandoned", store.entries[0].Status)
	}
}

func TestEmailDelivererRendersKnownNotices(t *testing.T) {
	for _, noticeType := range []string{
		outbox.NoticeRegistrationConfirmation,
		outbox.NoticeCertificateIssued,
		outbox.NoticeNAVRights,
		outbox.NoticeComplianceDigest,
	} {
		entry := outbox.Entry{NoticeType: noticeType, Payload: `{}`}
		if noticeType == outbox.NoticeComplianceDigest {
			entry.Payload = "2 overdue certificates"
		}
		subject, html, err := renderNotice(entry)
		if err != nil {
			t.Errorf("%s: render failed: %v", noticeType, err)
			continue
		}
		if subject == "" || html == "" {
			t.Errorf("%s: empty subject or body", noticeType)
		}
	}

	if _, _, err := renderNotice(outbox.Entry{NoticeType: "mystery"}); err == nil {
		t.Error("expected error for unknown notice type")
	}
}
