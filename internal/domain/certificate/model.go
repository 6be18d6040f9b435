// Package certificate defines the CE certificate record and its
// pending → issued / revoked lifecycle. Certificates are the durable
// compliance record: they are never deleted, only revoked with a reason.
package certificate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/temporal"
)

// Status is the lifecycle state of a certificate.
type Status string

const (
	StatusPending Status = "pending"
	StatusIssued  Status = "issued"
	StatusRevoked Status = "revoked"
)

// Domain errors
var (
	ErrNotPending     = errors.New("certificate is not pending")
	ErrAlreadyRevoked = errors.New("certificate is already revoked")
	ErrEmptyReason    = errors.New("revocation reason is required")
)

// Certificate holds state for one participant's certificate for one event.
type Certificate struct {
	ID                string
	Number            string // e.g. CE-2025-041387
	EventID           string
	RegistrationID    string
	ParticipantID     string
	ParticipantName   string
	ParticipantEmail  string
	ParticipantBACBID string
	EventTitle        string
	EventDate         time.Time
	InstructorName    string
	CreditUnits       float64
	Category          event.Category
	Status            Status
	IssuedAt          time.Time
	RevokedAt         time.Time
	RevocationReason  string
	CreatedAt         time.Time
}

// Validate checks if the Certificate has valid data.
// PRE: Certificate struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *Certificate) Validate() error {
	if c.EventID == "" || c.ParticipantID == "" {
		return errors.New("certificate must reference an event and a participant")
	}
	if strings.TrimSpace(c.ParticipantName) == "" {
		return errors.New("participant name cannot be empty")
	}
	if c.CreditUnits <= 0 {
		return errors.New("credit units must be positive")
	}
	if c.Status != StatusPending && c.Status != StatusIssued && c.Status != StatusRevoked {
		return errors.New("status must be 'pending', 'issued', or 'revoked'")
	}
	return nil
}

// MarkIssued transitions pending → issued. The eligibility gate must be
// re-checked by the caller at call time; this method only enforces the
// state machine.
// PRE: Status is pending
// POST: Status is issued with IssuedAt set, or ErrNotPending
func (c *Certificate) MarkIssued(at time.Time) error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	c.Status = StatusIssued
	c.IssuedAt = at
	return nil
}

// MarkRevoked transitions pending or issued → revoked. Revoked is
// terminal and record-preserving.
// PRE: reason is non-empty, Status is pending or issued
// POST: Status is revoked with RevokedAt and reason set
func (c *Certificate) MarkRevoked(at time.Time, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}
	if c.Status == StatusRevoked {
		return ErrAlreadyRevoked
	}
	c.Status = StatusRevoked
	c.RevokedAt = at
	c.RevocationReason = reason
	return nil
}

// IsOverdue reports whether a pending certificate has passed the 45-day
// issuance window measured from the event start date. Overdue is a
// derived condition, never a stored flag.
// POST: Returns true only for pending certificates older than 45 days
func (c *Certificate) IsOverdue(asOf time.Time) bool {
	if c.Status != StatusPending {
		return false
	}
	return temporal.DaysSince(asOf, c.EventDate) > temporal.ResponseWindowDays
}

// NewNumber generates a certificate number of the form CE-YYYY-NNNNNN.
// POST: Returns a number for the given year with six random digits
func NewNumber(year int) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("CE-%d-%06d", year, n.Int64())
}
