// internal/workers/payouts/create-payout-request/handler_test.go
package createpayoutrequest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"wellness-workers/internal/billing"
	apperrors "wellness-workers/internal/common/errors"
	"wellness-workers/internal/common/logger"
	"wellness-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tierQuery     = `SELECT rate_tier FROM specialists WHERE id = \$1`
	sessionsQuery = `SELECT duration_minutes FROM bookings`
	insertQuery   = `INSERT INTO payout_requests`
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

func expectEarnings(mock sqlmock.Sqlmock, tier string, durations []int) {
	mock.ExpectQuery(tierQuery).
		WithArgs("spec-1").
		WillReturnRows(sqlmock.NewRows([]string{"rate_tier"}).AddRow(tier))
	sessions := sqlmock.NewRows([]string{"duration_minutes"})
	for _, d := range durations {
		sessions.AddRow(d)
	}
	mock.ExpectQuery(sessionsQuery).WillReturnRows(sessions)
}

func TestHandler_Execute_CreatesRequestWithFrozenAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEarnings(mock, "expert", []int{60, 30})
	periodStart, _ := time.Parse(time.RFC3339, "2026-08-01T00:00:00Z")
	periodEnd, _ := time.Parse(time.RFC3339, "2026-09-01T00:00:00Z")
	mock.ExpectExec(insertQuery).
		WithArgs(sqlmock.AnyArg(), "spec-1", 216.0, 2, periodStart, periodEnd, models.PayoutStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, "spec-1", output.SpecialistID)
	assert.Equal(t, 216.0, output.Amount) // 1.0*144 + 0.5*144
	assert.Equal(t, 2, output.SessionCount)
	assert.Equal(t, models.PayoutStatusPending, output.Status)
	assert.NoError(t, uuid.Validate(output.RequestID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PendingRequestAlreadyExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEarnings(mock, "standard", []int{60})
	mock.ExpectExec(insertQuery).
		WillReturnResult(sqlmock.NewResult(0, 0))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrPendingExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoEarningsInPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEarnings(mock, "standard", nil)

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrNoEarnings)
	assert.NoError(t, mock.ExpectationsWereMet())
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

	assert.Nil(t, output)
	assert.ErrorIs(t, err, billing.ErrSpecialistNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidPeriod(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"malformed start", "yesterday", "2026-09-01T00:00:00Z"},
		{"malformed end", "2026-08-01T00:00:00Z", ""},
		{"end before start", "2026-09-01T00:00:00Z", "2026-08-01T00:00:00Z"},
		{"end equals start", "2026-08-01T00:00:00Z", "2026-08-01T00:00:00Z"},
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

			assert.Nil(t, output)
			assert.ErrorIs(t, err, ErrInvalidPeriod)
		})
	}
}

func TestHandler_Execute_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEarnings(mock, "standard", []int{60})
	mock.ExpectExec(insertQuery).
		WillReturnError(errors.New("connection reset"))

	handler := createTestHandler(t, db)
	output, err := handler.Execute(context.Background(), validInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	input := validInput()
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{name: "no earnings", err: ErrNoEarnings, code: apperrors.ErrCodePayoutNoEarnings, retryable: false},
		{name: "pending exists", err: ErrPendingExists, code: apperrors.ErrCodePayoutRequestPending, retryable: false},
		{name: "specialist missing", err: billing.ErrSpecialistNotFound, code: apperrors.ErrCodeSpecialistNotFound, retryable: false},
		{name: "rollup query failed", err: billing.ErrEarningsQuery, code: apperrors.ErrCodeEarningsQuery, retryable: true},
		{name: "write failed", err: ErrWriteFailed, code: apperrors.ErrCodePayoutWriteFailed, retryable: true},
		{name: "invalid period", err: ErrInvalidPeriod, code: "INVALID_EARNINGS_PERIOD", retryable: false},
		{name: "unexpected", err: errors.New("boom"), code: "UNKNOWN_ERROR", retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := classify(fmt.Errorf("wrapped: %w", tt.err), input)
			assert.Equal(t, tt.code, stdErr.Code)

			bpmnErr := apperrors.ConvertToBPMNError(stdErr)
			assert.Equal(t, string(tt.code), bpmnErr.Code)
			assert.Equal(t, tt.retryable, bpmnErr.Retryable)
			if tt.retryable {
				assert.Equal(t, 3, bpmnErr.Retries)
			} else {
				assert.Equal(t, 0, bpmnErr.Retries)
			}
		})
	}
}
