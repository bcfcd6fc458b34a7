// internal/billing/earnings.go
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrSpecialistNotFound = errors.New("SPECIALIST_NOT_FOUND")
	ErrEarningsQuery      = errors.New("EARNINGS_QUERY_FAILED")
)

// Querier is the subset of database/sql used by the earnings rollup.
// Both *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EarningsSummary is the result of an on-demand earnings rollup.
type EarningsSummary struct {
	SpecialistID string
	Tier         Tier
	Amount       float64
	SessionCount int
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// SessionEarnings returns the payout value of a single completed session:
// the session-hour fraction times the tier's hourly payout rate. Partial
// hours are paid exactly proportionally; unlike consumption there is no
// upward rounding here.
func SessionEarnings(durationMinutes int, tier Tier) float64 {
	if durationMinutes <= 0 {
		return 0
	}
	return float64(durationMinutes) / 60 * PayoutRateFor(tier)
}

// RoundCents rounds a dollar amount to two decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// AggregateEarnings sums a specialist's completed sessions within
// [periodStart, periodEnd] against their current tier's payout rate.
// It is recomputed from the store on every call; completed sessions can
// keep arriving within an open period, so the result is never cached.
// Tier changes apply to all future rollups, never retroactively to
// amounts already frozen in payout requests.
func AggregateEarnings(ctx context.Context, q Querier, specialistID string, periodStart, periodEnd time.Time) (*EarningsSummary, error) {
	var rawTier sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT rate_tier FROM specialists WHERE id = $1`,
		specialistID,
	).Scan(&rawTier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: specialist %s", ErrSpecialistNotFound, specialistID)
		}
		return nil, fmt.Errorf("%w: tier lookup: %v", ErrEarningsQuery, err)
	}

	// NULL tier behaves as standard.
	tier := ParseTier(rawTier.String)

	rows, err := q.QueryContext(ctx, `
		SELECT duration_minutes FROM bookings
		WHERE specialist_id = $1
		  AND status = 'completed'
		  AND completed_at >= $2
		  AND completed_at <= $3`,
		specialistID, periodStart, periodEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: session scan: %v", ErrEarningsQuery, err)
	}
	defer rows.Close()

	summary := &EarningsSummary{
		SpecialistID: specialistID,
		Tier:         tier,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
	}
	for rows.Next() {
		var durationMinutes int
		if err := rows.Scan(&durationMinutes); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", ErrEarningsQuery, err)
		}
		summary.Amount += SessionEarnings(durationMinutes, tier)
		summary.SessionCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEarningsQuery, err)
	}

	summary.Amount = RoundCents(summary.Amount)
	return summary, nil
}
