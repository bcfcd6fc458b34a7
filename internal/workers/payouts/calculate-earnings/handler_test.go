// internal/workers/payouts/calculate-earnings/handler_test.go
package calculateearnings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"wellness-workers/internal/billing"
	"wellness-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tierQuery     = `SELECT rate_tier FROM specialists WHERE id = \$1`
	sessionsQuery = `SELECT duration_minutes FROM bookings`
)

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
}

func validInput() *Input {
	return &Input{
		SpecialistID: "spec-1",
		PeriodStart:  "2026-08-01T00:00:00Z",
		PeriodEnd:    "2026-09-01T00:00:00Z",
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name            string
		tier            interface{}
		durations       []int
		expectedTier    string
		expectedAmount  float64
		expectedCount   int
	}{
		{
			name:           "three standard hours",
			tier:           "standard",
			durations:      []int{60, 60, 60},
			expectedTier:   "standard",
			expectedAmount: 180.0,
			expectedCount:  3,
		},
		{
			name:           "three master hours",
			tier:           "master",
			durations:      []int{60, 60, 60},
			expectedTier:   "master",
			expectedAmount: 576.0,
			expectedCount:  3,
		},
		{
			name:           "partial hours paid proportionally",
			tier:           "expert",
			durations:      []int{30, 45},
			expectedTier:   "expert",
			expectedAmount: 180.0, // 0.5*144 + 0.75*144
			expectedCount:  2,
		},
		{
			name:           "no completed sessions",
			tier:           "advanced",
			durations:      nil,
			expectedTier:   "advanced",
			expectedAmount: 0,
			expectedCount:  0,
		},
		{
			name:           "null tier paid at standard rate",
			tier:           nil,
			durations:      []int{60},
			expectedTier:   "standard",
			expectedAmount: 60.0,
			expectedCount:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(tierQuery).
				WithArgs("spec-1").
				WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow(tt.tier))

			rows := sqlmock.NewRows([]string{"duration_minutes"})
			for _, d := range tt.durations {
				rows.AddRow(d)
			}
			mock.ExpectQuery(sessionsQuery).WillReturnRows(rows)

			handler := createTestHandler(t, db)
			output, err := handler.Execute(context.Background(), validInput())

			require.NoError(t, err)
			require.NotNil(t, output)
			assert.Equal(t, tt.expectedTier, output.Tier)
			assert.Equal(t, tt.expectedAmount, output.Amount)
			assert.Equal(t, tt.expectedCount, output.SessionCount)
			assert.Equal(t, "2026-08-01T00:00:00Z", output.PeriodStart)
			assert.Equal(t, "2026-09-01T00:00:00Z", output.PeriodEnd)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_PeriodValidation(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "garbage start", start: "yesterday", end: "2026-09-01T00:00:00Z"},
		{name: "garbage end", start: "2026-08-01T00:00:00Z", end: "soon"},
		{name: "end before start", start: "2026-09-01T00:00:00Z", end: "2026-08-01T00:00:00Z"},
		{name: "end equals start", start: "2026-08-01T00:00:00Z", end: "2026-08-01T00:00:00Z"},
		{name: "empty period", start: "", end: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			handler := createTestHandler(t, db)
			output, err := handler.Execute(context.Background(), &Input{
				SpecialistID: "spec-1",
				PeriodStart:  tt.start,
				PeriodEnd:    tt.end,
			})

			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPeriod))
			assert.Nil(t, output)
		})
	}
}

func TestHandler_Execute_SpecialistNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(tierQuery).
		WithArgs("spec-1").
		WillReturnError(sql.ErrNoRows)

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	assert.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrSpecialistNotFound))
	assert.Nil(t, output)
}

func TestHandler_Execute_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(tierQuery).
		WithArgs("spec-1").
		WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow("expert"))
	mock.ExpectQuery(sessionsQuery).
		WillReturnError(errors.New("connection failed"))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	assert.Error(t, err)
	assert.True(t, errors.Is(err, billing.ErrEarningsQuery))
	assert.Nil(t, output)
}

func TestHandler_Execute_PeriodBoundsPassedThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	periodStart, _ := time.Parse(time.RFC3339, "2026-08-01T00:00:00Z")
	periodEnd, _ := time.Parse(time.RFC3339, "2026-09-01T00:00:00Z")

	mock.ExpectQuery(tierQuery).
		WithArgs("spec-1").
		WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow("standard"))
	mock.ExpectQuery(sessionsQuery).
		WithArgs("spec-1", periodStart, periodEnd).
		WillReturnRows(sqlmock.NewRows([]string{"duration_minutes"}).AddRow(60))

	handler := createTestHandler(t, db)
	_, err = handler.Execute(context.Background(), validInput())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
