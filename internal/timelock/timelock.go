// Package timelock decides whether a capsule's unlock date has been reached.
// It is the single authority for time-lock decisions; callers must not
// re-implement the comparison.
package timelock

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for unlock dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string does not parse as YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid unlock date")

// Status is the time-lock state of a capsule at a given instant.
type Status string

const (
	// StatusLocked means the unlock date has not been reached.
	StatusLocked Status = "locked"
	// StatusUnlockable means decryption is permitted.
	StatusUnlockable Status = "unlockable"
)

// ParseDate parses a YYYY-MM-DD unlock date. The returned instant is the
// start of that day in UTC, which is the moment the capsule unlocks.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Evaluate reports whether a capsule with the given unlock date is locked or
// unlockable at instant now. Comparison is at day granularity: the capsule
// becomes unlockable at the start of its unlock date in UTC.
func Evaluate(unlockDate string, now time.Time) (Status, error) {
	unlockAt, err := ParseDate(unlockDate)
	if err != nil {
		return "", err
	}

	if now.UTC().Before(unlockAt) {
		return StatusLocked, nil
	}
	return StatusUnlockable, nil
}
