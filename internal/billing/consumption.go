// internal/billing/consumption.go
package billing

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidDuration guards money-adjacent math against non-positive
	// session durations.
	ErrInvalidDuration = errors.New("INVALID_SESSION_DURATION")
)

// MinutesToDeduct computes the minutes to charge against a company's
// allowance for a completed session. Rounding is always upward so the
// company is never under-billed by partial-minute artifacts.
func MinutesToDeduct(sessionMinutes int, tier Tier) (int, error) {
	if sessionMinutes <= 0 {
		return 0, fmt.Errorf("%w: sessionMinutes must be positive, got %d", ErrInvalidDuration, sessionMinutes)
	}
	return int(math.Ceil(float64(sessionMinutes) * MultiplierFor(tier))), nil
}
