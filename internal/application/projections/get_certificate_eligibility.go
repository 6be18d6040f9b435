package projections

import (
	"context"
	"fmt"
	"time"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/coordinator"
	"aceplatform/internal/domain/quiz"
)

// CertificateReadStore fetches one certificate.
type CertificateReadStore interface {
	GetByID(ctx context.Context, id string) (certificate.Certificate, error)
}

// ParticipantAttendanceStore lists one participant's records.
type ParticipantAttendanceStore interface {
	ListByParticipant(ctx context.Context, eventID, participantID string) ([]attendance.Record, error)
}

// CoordinatorReadStore fetches one coordinator certification.
type CoordinatorReadStore interface {
	GetByCoordinatorID(ctx context.Context, coordinatorID string) (coordinator.Certification, error)
}

// QuizReadStore fetches quiz state for the requirement breakdown.
type QuizReadStore interface {
	FindByEvent(ctx context.Context, eventID string) (quiz.Quiz, error)
	ListSubmissions(ctx context.Context, quizID, participantID string) ([]quiz.Submission, error)
}

// CertificateEligibilityDeps holds the stores the breakdown reads from.
type CertificateEligibilityDeps struct {
	EventStore       EventReadStore
	CertificateStore CertificateReadStore
	AttendanceStore  ParticipantAttendanceStore
	CoordinatorStore CoordinatorReadStore
	QuizStore        QuizReadStore // nil when quizzes are not configured
}

// Requirement is one line of the issuance requirement breakdown.
type Requirement struct {
	Name     string // attendance_verified, quiz_passed, coordinator_current
	Required bool
	Met      bool
	Detail   string
}

// CertificateEligibility is the requirement breakdown shown before
// issuance. Issuable is advisory: the gate still re-evaluates at issue
// time.
type CertificateEligibility struct {
	CertificateID string
	Status        certificate.Status
	Issuable      bool
	Requirements  []Requirement
}

// GetCertificateEligibility explains which issuance requirements a
// pending certificate currently meets. The coordinator line reads the
// event's owning coordinator, matching what the gate checks at issue
// time.
// POST: Issuable is true only when every required line is met and the
// certificate is still pending
func GetCertificateEligibility(ctx context.Context, certificateID string, asOf time.Time, deps CertificateEligibilityDeps) (CertificateEligibility, error) {
	cert, err := deps.CertificateStore.GetByID(ctx, certificateID)
	if err != nil {
		return CertificateEligibility{}, fmt.Errorf("load certificate: %w", err)
	}
	ev, err := deps.EventStore.GetByID(ctx, cert.EventID)
	if err != nil {
		return CertificateEligibility{}, fmt.Errorf("load event: %w", err)
	}

	result := CertificateEligibility{CertificateID: cert.ID, Status: cert.Status}

	records, err := deps.AttendanceStore.ListByParticipant(ctx, cert.EventID, cert.ParticipantID)
	if err != nil {
		return CertificateEligibility{}, fmt.Errorf("list attendance: %w", err)
	}
	attended := false
	for _, r := range records {
		if r.Verified {
			attended = true
			break
		}
	}
	result.Requirements = append(result.Requirements, Requirement{
		Name:     "attendance_verified",
		Required: true,
		Met:      attended,
		Detail:   fmt.Sprintf("%d attendance record(s) on file", len(records)),
	})

	coordCurrent := false
	coordDetail := "no certification record"
	if coordCert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, ev.CoordinatorID); err == nil {
		coordCurrent = coordCert.EffectiveCapabilities(asOf).CanIssueCertificates
		coordDetail = fmt.Sprintf("certification expires %s", coordCert.CertificationExpires.Format("2006-01-02"))
	}
	result.Requirements = append(result.Requirements, Requirement{
		Name:     "coordinator_current",
		Required: true,
		Met:      coordCurrent,
		Detail:   coordDetail,
	})

	if deps.QuizStore != nil {
		if q, err := deps.QuizStore.FindByEvent(ctx, cert.EventID); err == nil && q.Active && q.RequiredForCertificate {
			subs, err := deps.QuizStore.ListSubmissions(ctx, q.ID, cert.ParticipantID)
			if err != nil {
				return CertificateEligibility{}, fmt.Errorf("list quiz submissions: %w", err)
			}
			passed := quiz.Passed(subs, q)
			best := 0
			for _, s := range subs {
				if s.ScorePercent > best {
					best = s.ScorePercent
				}
			}
			result.Requirements = append(result.Requirements, Requirement{
				Name:     "quiz_passed",
				Required: true,
				Met:      passed,
				Detail:   fmt.Sprintf("best attempt %d%% of required %d%%", best, q.PassingScorePercent),
			})
		}
	}

	issuable := cert.Status == certificate.StatusPending
	for _, req := range result.Requirements {
		if req.Required && !req.Met {
			issuable = false
		}
	}
	result.Issuable = issuable
	return result, nil
}
