// Package audit records compliance-sensitive administrative actions:
// attendance-verification overrides, capability toggles, certificate
// revocations. The trail is append-only.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category represents the subsystem an audit event belongs to.
type Category string

const (
	CategoryAttendance  Category = "attendance"
	CategoryCertificate Category = "certificate"
	CategoryCoordinator Category = "coordinator"
	CategoryComplaint   Category = "complaint"
	CategoryAccount     Category = "account"
	CategorySystem      Category = "system"
)

// Action represents the action that occurred.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionVerify   Action = "verify"
	ActionOverride Action = "override"
	ActionToggle   Action = "toggle"
	ActionRevoke   Action = "revoke"
	ActionEscalate Action = "escalate"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event represents a single audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
	Metadata     string    `json:"metadata"`
}

// NewEvent creates a new audit event with the current timestamp.
// PRE: actorID is non-empty
// POST: Returns an Event with a generated id and info severity
func NewEvent(actorID, actorEmail string, category Category, action Action) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		Category:   category,
		Action:     action,
		Severity:   SeverityInfo,
		ActorID:    actorID,
		ActorEmail: actorEmail,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithMetadata sets optional JSON metadata.
func (e Event) WithMetadata(metadata string) Event {
	e.Metadata = metadata
	return e
}
