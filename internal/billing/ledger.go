// internal/billing/ledger.go
package billing

// Read helpers over a company's entitlement counters. The counters
// themselves are mutated only by atomic row updates in the billing
// workers (single-statement increments, never read-modify-write).

// RemainingMinutes returns the minutes left in the current billing
// period, clamped at zero. Overage is absorbed into minutes_used
// exceeding minutes_included; remaining never goes negative.
func RemainingMinutes(included, used int) int {
	if remaining := included - used; remaining > 0 {
		return remaining
	}
	return 0
}

// UsagePercentage returns consumption as a percentage of the allowance.
// A zero (or negative) allowance yields 0 rather than a division error.
func UsagePercentage(included, used int) float64 {
	if included <= 0 {
		return 0
	}
	return float64(used) / float64(included) * 100
}

// IsOverage reports whether consumption has exceeded the allowance.
// Overage is surfaced as a warning only; it never blocks new sessions.
func IsOverage(included, used int) bool {
	return used > included
}
