// internal/billing/earnings_test.go
package billing

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionEarnings(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		tier     Tier
		expected float64
	}{
		{name: "full hour standard", minutes: 60, tier: TierStandard, expected: 60},
		{name: "full hour master", minutes: 60, tier: TierMaster, expected: 192},
		{name: "half hour expert pays proportionally", minutes: 30, tier: TierExpert, expected: 72},
		{name: "ninety minutes advanced", minutes: 90, tier: TierAdvanced, expected: 144},
		{name: "zero minutes", minutes: 0, tier: TierMaster, expected: 0},
		{name: "negative minutes", minutes: -60, tier: TierMaster, expected: 0},
		{name: "unknown tier paid at standard", minutes: 60, tier: Tier("vip"), expected: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SessionEarnings(tt.minutes, tt.tier), 0.0001)
		})
	}
}

func TestAggregateEarnings(t *testing.T) {
	periodStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name             string
		tier             string
		durations        []int
		expectedAmount   float64
		expectedSessions int
	}{
		{
			name:             "three hour sessions at master rate",
			tier:             "master",
			durations:        []int{60, 60, 60},
			expectedAmount:   576,
			expectedSessions: 3,
		},
		{
			name:             "mixed durations at expert rate",
			tier:             "expert",
			durations:        []int{60, 30},
			expectedAmount:   216,
			expectedSessions: 2,
		},
		{
			name:             "no completed sessions",
			tier:             "advanced",
			durations:        nil,
			expectedAmount:   0,
			expectedSessions: 0,
		},
		{
			name:             "unknown tier paid at standard rate",
			tier:             "vip",
			durations:        []int{60},
			expectedAmount:   60,
			expectedSessions: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`SELECT rate_tier FROM specialists WHERE id = \$1`).
				WithArgs("spec-1").
				WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow(tt.tier))

			sessionRows := sqlmock.NewRows([]string{"duration_minutes"})
			for _, d := range tt.durations {
				sessionRows.AddRow(d)
			}
			mock.ExpectQuery(`SELECT duration_minutes FROM bookings`).
				WithArgs("spec-1", periodStart, periodEnd).
				WillReturnRows(sessionRows)

			summary, err := AggregateEarnings(context.Background(), db, "spec-1", periodStart, periodEnd)
			require.NoError(t, err)

			assert.InDelta(t, tt.expectedAmount, summary.Amount, 0.0001)
			assert.Equal(t, tt.expectedSessions, summary.SessionCount)
			assert.Equal(t, periodStart, summary.PeriodStart)
			assert.Equal(t, periodEnd, summary.PeriodEnd)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAggregateEarnings_NullTierBehavesAsStandard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	periodStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT rate_tier FROM specialists WHERE id = \$1`).
		WithArgs("spec-null").
		WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow(nil))

	mock.ExpectQuery(`SELECT duration_minutes FROM bookings`).
		WithArgs("spec-null", periodStart, periodEnd).
		WillReturnRows(sqlmock.NewRows([]string{"duration_minutes"}).AddRow(60))

	summary, err := AggregateEarnings(context.Background(), db, "spec-null", periodStart, periodEnd)
	require.NoError(t, err)

	assert.Equal(t, TierStandard, summary.Tier)
	assert.InDelta(t, 60.0, summary.Amount, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateEarnings_SpecialistNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT rate_tier FROM specialists WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}))

	_, err = AggregateEarnings(context.Background(), db, "missing", time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrSpecialistNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
