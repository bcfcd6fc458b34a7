// internal/workers/billing/query-entitlement/handler_test.go
package queryentitlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"wellness-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entitlementQuery = `SELECT minutes_included, minutes_used FROM companies WHERE id = \$1`

func createTestConfig() *Config {
	return &Config{
		Timeout:        10 * time.Second,
		CacheTTL:       5 * time.Minute,
		AlertThreshold: 90.0,
	}
}

func createTestHandler(t *testing.T, db *sql.DB, redisClient *redis.Client) *Handler {
	return NewHandler(createTestConfig(), db, redisClient, logger.NewTestLogger(t))
}

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name              string
		minutesIncluded   int
		minutesUsed       int
		expectedRemaining int
		expectedUsage     float64
		expectedOverage   bool
		expectedNearLimit bool
	}{
		{
			name:              "partial usage",
			minutesIncluded:   1000,
			minutesUsed:       250,
			expectedRemaining: 750,
			expectedUsage:     25.0,
		},
		{
			name:              "near limit",
			minutesIncluded:   1000,
			minutesUsed:       950,
			expectedRemaining: 50,
			expectedUsage:     95.0,
			expectedNearLimit: true,
		},
		{
			name:              "overage clamps remaining at zero",
			minutesIncluded:   500,
			minutesUsed:       700,
			expectedRemaining: 0,
			expectedUsage:     140.0,
			expectedOverage:   true,
			expectedNearLimit: true,
		},
		{
			name:              "zero allotment avoids division by zero",
			minutesIncluded:   0,
			minutesUsed:       0,
			expectedRemaining: 0,
			expectedUsage:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			redisClient, redisMock := redismock.NewClientMock()

			cacheKey := "entitlement:company-1"
			redisMock.ExpectGet(cacheKey).RedisNil()

			mock.ExpectQuery(entitlementQuery).
				WithArgs("company-1").
				WillReturnRows(sqlmock.NewRows([]string{"minutes_included", "minutes_used"}).
					AddRow(tt.minutesIncluded, tt.minutesUsed))

			expected := &Output{
				CompanyID:        "company-1",
				MinutesIncluded:  tt.minutesIncluded,
				MinutesUsed:      tt.minutesUsed,
				RemainingMinutes: tt.expectedRemaining,
				UsagePercentage:  tt.expectedUsage,
				Overage:          tt.expectedOverage,
				NearLimit:        tt.expectedNearLimit,
			}
			cached, _ := json.Marshal(expected)
			redisMock.ExpectSet(cacheKey, cached, 5*time.Minute).SetVal("OK")

			handler := createTestHandler(t, db, redisClient)
			output, err := handler.Execute(context.Background(), &Input{CompanyID: "company-1"})

			require.NoError(t, err)
			assert.Equal(t, expected, output)

			assert.NoError(t, mock.ExpectationsWereMet())
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	cached := &Output{
		CompanyID:        "company-1",
		MinutesIncluded:  1000,
		MinutesUsed:      100,
		RemainingMinutes: 900,
		UsagePercentage:  10.0,
	}
	data, _ := json.Marshal(cached)
	redisMock.ExpectGet("entitlement:company-1").SetVal(string(data))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{CompanyID: "company-1"})

	require.NoError(t, err)
	assert.Equal(t, cached, output)

	// Cache hit must not touch the database.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_CompanyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	redisMock.ExpectGet("entitlement:ghost").RedisNil()
	mock.ExpectQuery(entitlementQuery).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{CompanyID: "ghost"})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompanyNotFound))
	assert.Nil(t, output)
}

func TestHandler_Execute_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	redisMock.ExpectGet("entitlement:company-1").RedisNil()
	mock.ExpectQuery(entitlementQuery).
		WithArgs("company-1").
		WillReturnError(errors.New("connection failed"))

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{CompanyID: "company-1"})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
	assert.Nil(t, output)
}

func TestHandler_Execute_CorruptCacheFallsThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()

	cacheKey := "entitlement:company-1"
	redisMock.ExpectGet(cacheKey).SetVal("{not json")

	mock.ExpectQuery(entitlementQuery).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"minutes_included", "minutes_used"}).AddRow(1000, 100))

	expected := &Output{
		CompanyID:        "company-1",
		MinutesIncluded:  1000,
		MinutesUsed:      100,
		RemainingMinutes: 900,
		UsagePercentage:  10.0,
	}
	data, _ := json.Marshal(expected)
	redisMock.ExpectSet(cacheKey, data, 5*time.Minute).SetVal("OK")

	handler := createTestHandler(t, db, redisClient)
	output, err := handler.Execute(context.Background(), &Input{CompanyID: "company-1"})

	require.NoError(t, err)
	assert.Equal(t, expected, output)
	assert.NoError(t, mock.ExpectationsWereMet())
}
