package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/audit"
	"aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/eligibility"
	"aceplatform/internal/domain/outbox"
	"aceplatform/internal/domain/quiz"
)

// ErrIssuanceConflict is returned when a concurrent issuance claimed the
// certificate first.
var ErrIssuanceConflict = errors.New("certificate was issued concurrently")

// QuizStore defines the quiz persistence interface used at issuance.
type QuizStore interface {
	FindByEvent(ctx context.Context, eventID string) (quiz.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]quiz.Question, error)
	ListSubmissions(ctx context.Context, quizID, participantID string) ([]quiz.Submission, error)
	SaveSubmission(ctx context.Context, s quiz.Submission) error
}

// IssueCertificateInput carries input for certificate issuance. The
// gating coordinator is always the event's owner, never the caller.
type IssueCertificateInput struct {
	CertificateID string
	ActorID       string
	ActorEmail    string
}

// IssueCertificateDeps holds dependencies for IssueCertificate.
type IssueCertificateDeps struct {
	EventStore       EventLookupStore
	CertificateStore CertificateStore
	CoordinatorStore CoordinatorStore
	AttendanceStore  AttendanceStore
	QuizStore        QuizStore // nil when quizzes are not configured
	OutboxStore      OutboxEnqueueStore
	AuditStore       AuditStore
	Now              func() time.Time
	GenerateID       func() string
}

// issuedPayload is the outbox payload for a certificate-issued notice.
type issuedPayload struct {
	CertificateID     string  `json:"certificate_id"`
	CertificateNumber string  `json:"certificate_number"`
	EventTitle        string  `json:"event_title"`
	ParticipantName   string  `json:"participant_name"`
	CreditUnits       float64 `json:"credit_units"`
}

// ExecuteIssueCertificate issues a single pending certificate. The
// eligibility gate evaluates fresh at call time: coordinator expiry,
// attendance verification, and any required quiz are all re-checked,
// never trusted from an earlier decision. The pending-to-issued flip is
// a conditional store update, so two racing issuances cannot both win.
// PRE: certificate exists
// POST: Certificate issued with a number and a queued notice, or a
// typed denial / ErrIssuanceConflict
func ExecuteIssueCertificate(ctx context.Context, input IssueCertificateInput, deps IssueCertificateDeps) (certificate.Certificate, error) {
	cert, err := deps.CertificateStore.GetByID(ctx, input.CertificateID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if cert.Status != certificate.StatusPending {
		return certificate.Certificate{}, certificate.ErrNotPending
	}

	ev, err := deps.EventStore.GetByID(ctx, cert.EventID)
	if err != nil {
		return certificate.Certificate{}, err
	}

	// The expiry block is tied to the event's owning coordinator, not
	// to whoever triggers the issuance.
	coordCert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, ev.CoordinatorID)
	if err != nil {
		return certificate.Certificate{}, ErrCoordinatorUnknown
	}

	records, err := deps.AttendanceStore.ListByParticipant(ctx, cert.EventID, cert.ParticipantID)
	if err != nil {
		return certificate.Certificate{}, err
	}
	verified := verifiedForAttendance(records)

	gateCtx := eligibility.Context{
		AsOf:               deps.Now(),
		Event:              ev,
		Coordinator:        &coordCert,
		AttendanceVerified: verified,
	}
	if deps.QuizStore != nil {
		if q, err := deps.QuizStore.FindByEvent(ctx, cert.EventID); err == nil && q.Active {
			subs, err := deps.QuizStore.ListSubmissions(ctx, q.ID, cert.ParticipantID)
			if err != nil {
				return certificate.Certificate{}, err
			}
			gateCtx.Quiz = &q
			gateCtx.QuizSubmissions = subs
		}
	}

	decision := eligibility.Decide(eligibility.ActionIssueCertificate, gateCtx)
	if err := decision.Err(eligibility.ActionIssueCertificate); err != nil {
		slog.Info("certificate_event", "event", "issuance_denied", "certificate_id", cert.ID, "reason", decision.Reason)
		return certificate.Certificate{}, err
	}

	now := deps.Now()
	number := certificate.NewNumber(now.Year())
	claimed, err := deps.CertificateStore.MarkIssued(ctx, cert.ID, number, now)
	if err != nil {
		return certificate.Certificate{}, err
	}
	if !claimed {
		return certificate.Certificate{}, ErrIssuanceConflict
	}
	cert.Number = number
	if err := cert.MarkIssued(now); err != nil {
		return certificate.Certificate{}, err
	}

	if deps.OutboxStore != nil {
		payload, _ := json.Marshal(issuedPayload{
			CertificateID:     cert.ID,
			CertificateNumber: cert.Number,
			EventTitle:        cert.EventTitle,
			ParticipantName:   cert.ParticipantName,
			CreditUnits:       cert.CreditUnits,
		})
		entry := outbox.Entry{
			ID:          deps.GenerateID(),
			NoticeType:  outbox.NoticeCertificateIssued,
			Payload:     string(payload),
			Recipient:   cert.ParticipantEmail,
			Status:      outbox.StatusPending,
			MaxAttempts: outbox.DefaultMaxAttempts,
			CreatedAt:   now,
		}
		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			slog.Error("certificate_event", "event", "notice_enqueue_failed", "certificate_id", cert.ID, "error", err.Error())
		}
	}

	slog.Info("certificate_event", "event", "certificate_issued", "certificate_id", cert.ID, "number", cert.Number, "event_id", cert.EventID)
	return cert, nil
}

// BulkIssueCertificatesInput carries input for bulk issuance.
type BulkIssueCertificatesInput struct {
	CertificateIDs []string
	ActorID        string
	ActorEmail     string
}

// BulkIssueFailure records one certificate that could not be issued.
type BulkIssueFailure struct {
	CertificateID string
	Err           error
}

// BulkIssueCertificatesResult reports per-certificate outcomes.
type BulkIssueCertificatesResult struct {
	Issued   []certificate.Certificate
	Failures []BulkIssueFailure
}

// ExecuteBulkIssueCertificates issues a batch of certificates with
// per-certificate isolation: one denial or conflict never blocks the
// rest of the batch.
// POST: Every id appears in either Issued or Failures
func ExecuteBulkIssueCertificates(ctx context.Context, input BulkIssueCertificatesInput, deps IssueCertificateDeps) BulkIssueCertificatesResult {
	var result BulkIssueCertificatesResult
	for _, id := range input.CertificateIDs {
		cert, err := ExecuteIssueCertificate(ctx, IssueCertificateInput{
			CertificateID: id,
			ActorID:       input.ActorID,
			ActorEmail:    input.ActorEmail,
		}, deps)
		if err != nil {
			result.Failures = append(result.Failures, BulkIssueFailure{CertificateID: id, Err: err})
			continue
		}
		result.Issued = append(result.Issued, cert)
	}
	slog.Info("certificate_event", "event", "bulk_issuance_completed", "issued", len(result.Issued), "failed", len(result.Failures))
	return result
}

// RevokeCertificateInput carries input for certificate revocation.
type RevokeCertificateInput struct {
	CertificateID string
	Reason        string
	ActorID       string
	ActorEmail    string
}

// RevokeCertificateDeps holds dependencies for RevokeCertificate.
type RevokeCertificateDeps struct {
	CertificateStore CertificateStore
	AuditStore       AuditStore
	Now              func() time.Time
}

// ExecuteRevokeCertificate revokes a certificate, preserving the record
// with its reason. Revoking an already-revoked certificate is a logged
// no-op rather than an error: the caller's intent is already satisfied.
// PRE: reason is non-empty
// POST: Certificate revoked and audited
func ExecuteRevokeCertificate(ctx context.Context, input RevokeCertificateInput, deps RevokeCertificateDeps) error {
	cert, err := deps.CertificateStore.GetByID(ctx, input.CertificateID)
	if err != nil {
		return err
	}

	if err := cert.MarkRevoked(deps.Now(), input.Reason); err != nil {
		if errors.Is(err, certificate.ErrAlreadyRevoked) {
			slog.Warn("certificate_event", "event", "already_revoked", "certificate_id", cert.ID)
			return nil
		}
		return err
	}
	if err := deps.CertificateStore.Save(ctx, cert); err != nil {
		return err
	}

	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryCertificate, audit.ActionRevoke).
		WithSeverity(audit.SeverityWarning).
		WithResource("certificate", cert.ID).
		WithDescription(fmt.Sprintf("certificate %s revoked: %s", cert.Number, input.Reason))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("certificate_event", "event", "audit_write_failed", "certificate_id", cert.ID, "error", err.Error())
	}

	slog.Info("certificate_event", "event", "certificate_revoked", "certificate_id", cert.ID, "reason", input.Reason)
	return nil
}

// verifiedForAttendance reports whether any of the participant's records
// carry verification.
func verifiedForAttendance(records []attendance.Record) bool {
	for _, r := range records {
		if r.Verified {
			return true
		}
	}
	return false
}
