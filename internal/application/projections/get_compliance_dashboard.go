// Package projections holds the read-side queries. Projections never
// mutate state: they recompute derived values (overdue status,
// attendance summaries, compliance score) fresh on every call.
package projections

import (
	"context"
	"fmt"
	"sort"
	"time"

	"aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/complaint"
	"aceplatform/internal/domain/coordinator"
	"aceplatform/internal/domain/temporal"
)

// Compliance score deductions per finding.
const (
	overdueCertificateWeight  = 5
	overdueFeedbackWeight     = 3
	overdueComplaintWeight    = 10
	expiringCoordinatorWeight = 5
)

// auditCriticalAfterDays is how far past due an item must be before the
// audit list flags it critical rather than warning.
const auditCriticalAfterDays = 7

// CertificateListStore lists certificates for the dashboard.
type CertificateListStore interface {
	ListPending(ctx context.Context) ([]certificate.Certificate, error)
}

// ComplaintListStore lists open complaints.
type ComplaintListStore interface {
	ListOpen(ctx context.Context) ([]complaint.Complaint, error)
}

// FeedbackListStore lists unreviewed feedback.
type FeedbackListStore interface {
	ListUnreviewed(ctx context.Context) ([]complaint.FeedbackResponse, error)
}

// CoordinatorListStore lists coordinator certifications.
type CoordinatorListStore interface {
	List(ctx context.Context) ([]coordinator.Certification, error)
}

// ComplianceDashboardDeps holds the stores the dashboard reads from.
type ComplianceDashboardDeps struct {
	CertificateStore CertificateListStore
	ComplaintStore   ComplaintListStore
	FeedbackStore    FeedbackListStore
	CoordinatorStore CoordinatorListStore
}

// AuditItem is one actionable finding on the dashboard.
type AuditItem struct {
	Kind        string // overdue_certificate, overdue_complaint, overdue_feedback, coordinator_expiry
	ResourceID  string
	Severity    string // warning or critical
	DaysOverdue int
	Detail      string
}

// CoordinatorExpiry is a coordinator's certification expiry status.
type CoordinatorExpiry struct {
	CoordinatorID   string
	CoordinatorName string
	Expires         time.Time
	Band            temporal.Band
}

// ComplianceDashboard is the full compliance view.
type ComplianceDashboard struct {
	AsOf                 time.Time
	Score                int
	OverdueCertificates  int
	OverdueComplaints    int
	OverdueFeedback      int
	ExpiringCoordinators int
	Coordinators         []CoordinatorExpiry
	AuditItems           []AuditItem
}

// GetComplianceDashboard assembles the compliance view as of the given
// time. The score starts at 100 and loses points per finding; overdue
// conditions are derived from raw timestamps at call time, never read
// from stored flags.
// POST: Score is in [0, 100]; every overdue finding has an audit item
func GetComplianceDashboard(ctx context.Context, asOf time.Time, deps ComplianceDashboardDeps) (ComplianceDashboard, error) {
	dash := ComplianceDashboard{AsOf: asOf}

	pending, err := deps.CertificateStore.ListPending(ctx)
	if err != nil {
		return ComplianceDashboard{}, fmt.Errorf("list pending certificates: %w", err)
	}
	for _, c := range pending {
		if !c.IsOverdue(asOf) {
			continue
		}
		dash.OverdueCertificates++
		overdue := temporal.DaysSince(asOf, c.EventDate) - temporal.ResponseWindowDays
		dash.AuditItems = append(dash.AuditItems, AuditItem{
			Kind:        "overdue_certificate",
			ResourceID:  c.ID,
			Severity:    severityFor(overdue),
			DaysOverdue: overdue,
			Detail:      fmt.Sprintf("certificate for %s pending %d days past the issuance window", c.ParticipantName, overdue),
		})
	}

	open, err := deps.ComplaintStore.ListOpen(ctx)
	if err != nil {
		return ComplianceDashboard{}, fmt.Errorf("list open complaints: %w", err)
	}
	for _, c := range open {
		if !c.IsOverdue(asOf) {
			continue
		}
		dash.OverdueComplaints++
		overdue := temporal.DaysSince(asOf, c.ResponseDueDate)
		dash.AuditItems = append(dash.AuditItems, AuditItem{
			Kind:        "overdue_complaint",
			ResourceID:  c.ID,
			Severity:    severityFor(overdue),
			DaysOverdue: overdue,
			Detail:      fmt.Sprintf("complaint response %d days past the 45-day deadline", overdue),
		})
	}

	unreviewed, err := deps.FeedbackStore.ListUnreviewed(ctx)
	if err != nil {
		return ComplianceDashboard{}, fmt.Errorf("list unreviewed feedback: %w", err)
	}
	for _, f := range unreviewed {
		if !f.IsOverdue(asOf) {
			continue
		}
		dash.OverdueFeedback++
		overdue := temporal.DaysSince(asOf, f.CoordinatorReviewDueDate)
		dash.AuditItems = append(dash.AuditItems, AuditItem{
			Kind:        "overdue_feedback",
			ResourceID:  f.ID,
			Severity:    severityFor(overdue),
			DaysOverdue: overdue,
			Detail:      fmt.Sprintf("feedback review %d days past the coordinator window", overdue),
		})
	}

	certs, err := deps.CoordinatorStore.List(ctx)
	if err != nil {
		return ComplianceDashboard{}, fmt.Errorf("list coordinator certifications: %w", err)
	}
	for _, c := range certs {
		band := c.ExpiryBand(asOf)
		dash.Coordinators = append(dash.Coordinators, CoordinatorExpiry{
			CoordinatorID:   c.CoordinatorID,
			CoordinatorName: c.CoordinatorName,
			Expires:         c.CertificationExpires,
			Band:            band,
		})
		if band == temporal.BandExpired || band == temporal.BandCritical {
			dash.ExpiringCoordinators++
			severity := "warning"
			daysOver := 0
			if band == temporal.BandExpired {
				severity = "critical"
				daysOver = temporal.DaysSince(asOf, c.CertificationExpires)
			}
			dash.AuditItems = append(dash.AuditItems, AuditItem{
				Kind:        "coordinator_expiry",
				ResourceID:  c.CoordinatorID,
				Severity:    severity,
				DaysOverdue: daysOver,
				Detail:      fmt.Sprintf("certification for %s expires %s", c.CoordinatorName, c.CertificationExpires.Format("2006-01-02")),
			})
		}
	}

	score := 100 -
		dash.OverdueCertificates*overdueCertificateWeight -
		dash.OverdueFeedback*overdueFeedbackWeight -
		dash.OverdueComplaints*overdueComplaintWeight -
		dash.ExpiringCoordinators*expiringCoordinatorWeight
	if score < 0 {
		score = 0
	}
	dash.Score = score

	// worst findings first
	sort.SliceStable(dash.AuditItems, func(i, j int) bool {
		if dash.AuditItems[i].Severity != dash.AuditItems[j].Severity {
			return dash.AuditItems[i].Severity == "critical"
		}
		return dash.AuditItems[i].DaysOverdue > dash.AuditItems[j].DaysOverdue
	})

	return dash, nil
}

func severityFor(daysOverdue int) string {
	if daysOverdue > auditCriticalAfterDays {
		return "critical"
	}
	return "warning"
}
