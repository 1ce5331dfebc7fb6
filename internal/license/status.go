package license

import (
	"time"

	"licensedesk/internal/models"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusExpired  Status = "Expired"
	StatusInactive Status = "Inactive"
	StatusInvalid  Status = "Invalid"
)

func (s Status) String() string { return string(s) }

// Evaluate derives a license status from the administrative flag, the stored
// end of the validity window and the current instant. A window is still open
// on its last day; it expires only once today is strictly after valid_until.
// A cleared flag wins over the dates; otherwise an unreadable valid_until
// yields StatusInvalid.
func Evaluate(isActive bool, validUntil string, now time.Time) Status {
	if !isActive {
		return StatusInactive
	}
	until, err := ParseDate(validUntil)
	if err != nil {
		return StatusInvalid
	}
	if DateOf(now).After(until) {
		return StatusExpired
	}
	return StatusActive
}

func StatusOf(l models.License, now time.Time) Status {
	return Evaluate(l.IsActive, l.ValidUntil, now)
}
