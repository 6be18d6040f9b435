// Package coordinator tracks ACE coordinator BCBA certifications and the
// capability flags that gate publishing and certificate issuance.
//
// Stored capability flags are what an admin has granted. Effective
// capabilities apply the certification-expiry override on top: a stored
// true never survives an expired certification. The two must stay
// separate fields so an admin grant can never accidentally outrank
// real-world expiry.
package coordinator

import (
	"errors"
	"strings"
	"time"

	"aceplatform/internal/domain/temporal"
)

// Domain errors
var (
	ErrNotVerified = errors.New("coordinator certification has not been verified")
	ErrExpired     = errors.New("coordinator certification has expired")
)

// Certification holds a coordinator's BCBA certification state and
// admin-granted capability flags.
type Certification struct {
	ID                   string
	CoordinatorID        string
	CoordinatorName      string
	CoordinatorEmail     string
	CertificationNumber  string // BACB certificant number
	CertificationDate    time.Time
	CertificationExpires time.Time
	Verified             bool // manually attested by an admin
	VerifiedAt           time.Time
	CanPublishEvents     bool // stored admin grant
	CanIssueCertificates bool // stored admin grant
	UpdatedAt            time.Time
}

// Validate checks if the Certification has valid data.
// PRE: Certification struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (c *Certification) Validate() error {
	if c.CoordinatorID == "" {
		return errors.New("certification must reference a coordinator")
	}
	if strings.TrimSpace(c.CertificationNumber) == "" {
		return errors.New("certification number cannot be empty")
	}
	if c.CertificationDate.IsZero() || c.CertificationExpires.IsZero() {
		return errors.New("certification and expiry dates must be set")
	}
	if !c.CertificationExpires.After(c.CertificationDate) {
		return errors.New("certification expiry must be after the certification date")
	}
	return nil
}

// IsExpired reports whether the certification has lapsed at asOf.
// POST: Returns true when CertificationExpires is strictly before asOf
func (c *Certification) IsExpired(asOf time.Time) bool {
	return c.CertificationExpires.Before(asOf)
}

// ExpiryBand classifies how close the certification is to expiry.
// Non-expired bands are advisory only; they never gate operations.
func (c *Certification) ExpiryBand(asOf time.Time) temporal.Band {
	return temporal.ExpiryBand(asOf, c.CertificationExpires)
}

// Capabilities is the pair of operations a coordinator may perform.
type Capabilities struct {
	CanPublishEvents     bool
	CanIssueCertificates bool
}

// EffectiveCapabilities returns the stored capability flags with the
// expiry override applied. Expiry is absolute and non-overridable:
// the stored values are irrelevant once the certification lapses.
// POST: Both flags are false when the certification is expired at asOf
func (c *Certification) EffectiveCapabilities(asOf time.Time) Capabilities {
	if c.IsExpired(asOf) {
		return Capabilities{}
	}
	return Capabilities{
		CanPublishEvents:     c.CanPublishEvents,
		CanIssueCertificates: c.CanIssueCertificates,
	}
}
