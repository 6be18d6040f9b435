// Package temporal holds the pure deadline and expiry arithmetic used by
// the compliance engine. Every function takes an explicit reference time
// so the package stays free of clock reads and side effects.
package temporal

import "time"

// Regulatory windows, in days.
const (
	// ResponseWindowDays is the BACB window for issuing certificates,
	// resolving complaints, and reviewing feedback.
	ResponseWindowDays = 45
	// CriticalWindowDays marks a certification as critical when it
	// expires within this many days.
	CriticalWindowDays = 30
	// WarningWindowDays marks a certification as a warning when it
	// expires within this many days.
	WarningWindowDays = 90
)

// Band classifies how close a certification is to expiry.
type Band string

const (
	BandExpired  Band = "expired"
	BandCritical Band = "critical"
	BandWarning  Band = "warning"
	BandValid    Band = "valid"
)

const hoursPerDay = 24

// DaysSince returns the number of whole days elapsed between t and asOf,
// truncated toward zero.
// PRE: t is not after asOf for a meaningful result
// POST: Returns elapsed whole days (negative if t is in the future)
func DaysSince(asOf, t time.Time) int {
	return int(asOf.Sub(t).Hours() / hoursPerDay)
}

// DaysUntil returns the number of whole days from asOf until t,
// truncated toward zero. Negative once t has passed.
func DaysUntil(asOf, t time.Time) int {
	return int(t.Sub(asOf).Hours() / hoursPerDay)
}

// Deadline returns t shifted forward by windowDays calendar days.
// POST: Returns t + windowDays days
func Deadline(t time.Time, windowDays int) time.Time {
	return t.AddDate(0, 0, windowDays)
}

// IsOverdue reports whether the deadline has passed at asOf.
// POST: Returns true only when asOf is strictly after deadline
func IsOverdue(asOf, deadline time.Time) bool {
	return asOf.After(deadline)
}

// ExpiryBand classifies the time remaining until expiry into one of four
// bands. Boundaries are half-open: expired once the expiry has passed,
// critical at 0..30 whole days remaining, warning at 31..90, valid
// beyond. Expired agrees with the absolute capability gate: any expiry
// before asOf is expired, never merely critical.
// POST: Returns exactly one band for any expiry date
func ExpiryBand(asOf, expiry time.Time) Band {
	if expiry.Before(asOf) {
		return BandExpired
	}
	remaining := DaysUntil(asOf, expiry)
	switch {
	case remaining <= CriticalWindowDays:
		return BandCritical
	case remaining <= WarningWindowDays:
		return BandWarning
	default:
		return BandValid
	}
}
