// Package eligibility implements the policy gate that decides whether a
// registration, event publish, or certificate issuance is permitted.
//
// Decide is pure: callers assemble the Context from current store state
// and the gate evaluates it fresh at call time. Coordinator expiry in
// particular must never be cached, because it is time-dependent.
package eligibility

import (
	"fmt"
	"time"

	"aceplatform/internal/domain/coordinator"
	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/quiz"
	"aceplatform/internal/domain/registration"
)

// Action is an operation the gate can rule on.
type Action string

const (
	ActionRegister         Action = "register"
	ActionPublishEvent     Action = "publish_event"
	ActionIssueCertificate Action = "issue_certificate"
)

// Reason is a machine-readable denial code. Callers render user-facing
// messages from these codes; they never string-match error text.
type Reason string

const (
	ReasonCredentialMismatch   Reason = "CREDENTIAL_MISMATCH"
	ReasonEventFull            Reason = "EVENT_FULL"
	ReasonEventStarted         Reason = "EVENT_STARTED"
	ReasonCoordinatorExpired   Reason = "COORDINATOR_EXPIRED"
	ReasonAttendanceUnverified Reason = "ATTENDANCE_UNVERIFIED"
	ReasonQuizNotPassed        Reason = "QUIZ_NOT_PASSED"
)

// Decision is the gate's verdict. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// DeniedError wraps a denial so orchestrators can return it as a typed
// error while preserving the reason code.
type DeniedError struct {
	Action Action
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Reason)
}

// Err converts a Decision into an error: nil when allowed, a
// *DeniedError carrying the reason code otherwise.
func (d Decision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Action: action, Reason: d.Reason}
}

// Context carries the state the gate evaluates. Callers populate only
// the fields relevant to the action being decided.
type Context struct {
	AsOf time.Time

	Event event.Event

	// Register
	Credential registration.Credential
	Reopened   bool // admin reopened registration after the start date

	// PublishEvent / IssueCertificate
	Coordinator *coordinator.Certification

	// IssueCertificate
	AttendanceVerified bool
	Quiz               *quiz.Quiz // nil when the event has no quiz
	QuizSubmissions    []quiz.Submission
}

// Decide evaluates whether the action is permitted in the given context.
// PRE: ctx.AsOf is set; fields relevant to action are populated
// POST: Returns Allowed, or a Decision carrying exactly one reason code
func Decide(action Action, ctx Context) Decision {
	switch action {
	case ActionRegister:
		return decideRegister(ctx)
	case ActionPublishEvent:
		return decideCoordinatorGate(ctx, ActionPublishEvent)
	case ActionIssueCertificate:
		if d := decideCoordinatorGate(ctx, ActionIssueCertificate); !d.Allowed {
			return d
		}
		return decideIssueConditions(ctx)
	default:
		return Decision{}
	}
}

func decideRegister(ctx Context) Decision {
	if !registration.CredentialAllowedFor(ctx.Credential, ctx.Event.Type) {
		return deny(ReasonCredentialMismatch)
	}
	if ctx.Event.IsFull() {
		return deny(ReasonEventFull)
	}
	if ctx.Event.HasStarted(ctx.AsOf) && !ctx.Reopened {
		return deny(ReasonEventStarted)
	}
	return allow()
}

// decideCoordinatorGate enforces the coordinator block. A missing
// certification record counts as blocked: publishing and issuance
// require a known, current, capability-granted coordinator. Expiry and
// an admin-revoked capability both surface as COORDINATOR_EXPIRED; the
// caller-facing meaning is "this coordinator may not do this now".
func decideCoordinatorGate(ctx Context, action Action) Decision {
	if ctx.Coordinator == nil {
		return deny(ReasonCoordinatorExpired)
	}
	caps := ctx.Coordinator.EffectiveCapabilities(ctx.AsOf)
	switch action {
	case ActionPublishEvent:
		if !caps.CanPublishEvents {
			return deny(ReasonCoordinatorExpired)
		}
	case ActionIssueCertificate:
		if !caps.CanIssueCertificates {
			return deny(ReasonCoordinatorExpired)
		}
	}
	return allow()
}

func decideIssueConditions(ctx Context) Decision {
	if !ctx.AttendanceVerified {
		return deny(ReasonAttendanceUnverified)
	}
	if ctx.Quiz != nil && ctx.Quiz.RequiredForCertificate {
		if !quiz.Passed(ctx.QuizSubmissions, *ctx.Quiz) {
			return deny(ReasonQuizNotPassed)
		}
	}
	return allow()
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }
