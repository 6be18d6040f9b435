// Package registration defines participant registrations and the
// credential-to-event-type matching rule.
package registration

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"aceplatform/internal/domain/event"
)

// Credential is a BACB credential type held by a participant.
type Credential string

const (
	CredentialBCBA  Credential = "bcba"
	CredentialBCaBA Credential = "bcaba"
	CredentialRBT   Credential = "rbt"
)

// Status constants for the registration lifecycle.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Confirmation codes avoid ambiguous characters (no I, O, 0, 1).
const confirmationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const confirmationCodeLength = 8

// Domain errors
var (
	ErrCredentialMismatch = errors.New("credential type does not match event type")
)

// Registration holds state for one participant's registration to one event.
type Registration struct {
	ID               string
	EventID          string
	ParticipantName  string
	ParticipantEmail string
	Credential       Credential
	BACBID           string // optional BACB certificant number
	ConfirmationCode string
	Status           string
	CreatedAt        time.Time
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Credential must be a known type
func (r *Registration) Validate() error {
	if r.EventID == "" {
		return errors.New("registration must reference an event")
	}
	if strings.TrimSpace(r.ParticipantName) == "" {
		return errors.New("participant name cannot be empty")
	}
	if !strings.Contains(r.ParticipantEmail, "@") {
		return errors.New("participant email must be valid")
	}
	if r.Credential != CredentialBCBA && r.Credential != CredentialBCaBA && r.Credential != CredentialRBT {
		return errors.New("credential must be 'bcba', 'bcaba', or 'rbt'")
	}
	if r.Status != StatusPending && r.Status != StatusConfirmed && r.Status != StatusCancelled {
		return errors.New("status must be 'pending', 'confirmed', or 'cancelled'")
	}
	return nil
}

// CredentialAllowedFor reports whether a credential may register for an
// event of the given type. PD events admit only RBTs; CE events admit
// everyone except RBTs. Mismatches are rejected, never coerced.
// POST: Returns true only for permitted pairings
func CredentialAllowedFor(c Credential, t event.Type) bool {
	switch t {
	case event.TypePD:
		return c == CredentialRBT
	case event.TypeCE:
		return c == CredentialBCBA || c == CredentialBCaBA
	default:
		return false
	}
}

// NewConfirmationCode generates an 8-character registration confirmation
// code from the unambiguous alphabet.
// POST: Returns a code of exactly 8 characters
func NewConfirmationCode() string {
	buf := make([]byte, confirmationCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = confirmationAlphabet[int(b)%len(confirmationAlphabet)]
	}
	return string(buf)
}
