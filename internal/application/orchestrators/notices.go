package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"

	"aceplatform/internal/adapters/email"
	"aceplatform/internal/domain/outbox"
)

// EmailDeliverer renders outbox notices into emails and sends them
// through the configured provider. It implements NoticeDeliverer for
// every notice type the engine queues.
type EmailDeliverer struct {
	sender email.Sender
	from   string
}

// NewEmailDeliverer creates a deliverer for the given sender and from
// address.
func NewEmailDeliverer(sender email.Sender, from string) *EmailDeliverer {
	return &EmailDeliverer{sender: sender, from: from}
}

// Deliver renders the entry's payload for its notice type and sends it.
// POST: Returns the provider message id on success
func (d *EmailDeliverer) Deliver(ctx context.Context, entry outbox.Entry) (string, error) {
	subject, html, err := renderNotice(entry)
	if err != nil {
		return "", err
	}
	result, err := d.sender.Send(ctx, email.SendRequest{
		To:      []string{entry.Recipient},
		From:    d.from,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", err
	}
	return result.MessageID, nil
}

// Deliverers returns the full notice-type routing map backed by this
// deliverer.
func (d *EmailDeliverer) Deliverers() map[string]NoticeDeliverer {
	return map[string]NoticeDeliverer{
		outbox.NoticeRegistrationConfirmation: d,
		outbox.NoticeCertificateIssued:        d,
		outbox.NoticeNAVRights:                d,
		outbox.NoticeComplianceDigest:         d,
	}
}

func renderNotice(entry outbox.Entry) (subject, html string, err error) {
	switch entry.NoticeType {
	case outbox.NoticeRegistrationConfirmation:
		var p confirmationPayload
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return "", "", fmt.Errorf("decode confirmation payload: %w", err)
		}
		subject = fmt.Sprintf("Registration confirmed: %s", p.EventTitle)
		html = fmt.Sprintf(
			"<p>Hi %s,</p><p>Your registration for <strong>%s</strong> is confirmed.</p><p>Your confirmation code is <strong>%s</strong>. Bring it to check-in.</p>",
			p.ParticipantName, p.EventTitle, p.ConfirmationCode)

	case outbox.NoticeCertificateIssued:
		var p issuedPayload
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return "", "", fmt.Errorf("decode issued payload: %w", err)
		}
		subject = fmt.Sprintf("Your CE certificate for %s", p.EventTitle)
		html = fmt.Sprintf(
			"<p>Hi %s,</p><p>Your certificate <strong>%s</strong> for <strong>%s</strong> has been issued for %.1f CEUs.</p>",
			p.ParticipantName, p.CertificateNumber, p.EventTitle, p.CreditUnits)

	case outbox.NoticeNAVRights:
		var p navRightsPayload
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return "", "", fmt.Errorf("decode nav rights payload: %w", err)
		}
		subject = "We received your complaint"
		html = fmt.Sprintf(
			"<p>Hi %s,</p><p>We received your complaint and will respond by <strong>%s</strong>.</p><p>You have the right to notify the BACB directly at any time via their Notice of Alleged Violation process.</p>",
			p.SubmitterName, p.ResponseDueDate)

	case outbox.NoticeComplianceDigest:
		subject = "Daily compliance digest"
		html = fmt.Sprintf("<pre>%s</pre>", entry.Payload)

	default:
		return "", "", fmt.Errorf("unknown notice type %q", entry.NoticeType)
	}
	return subject, html, nil
}
