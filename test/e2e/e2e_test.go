// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wellness-workers/internal/common/camunda"
	"wellness-workers/internal/common/config"
	"wellness-workers/internal/common/database"
	"wellness-workers/internal/common/logger"

	completesession "wellness-workers/internal/workers/billing/complete-session"
	queryentitlement "wellness-workers/internal/workers/billing/query-entitlement"
	resetentitlement "wellness-workers/internal/workers/billing/reset-entitlement"
	calculateearnings "wellness-workers/internal/workers/payouts/calculate-earnings"
	createpayoutrequest "wellness-workers/internal/workers/payouts/create-payout-request"
	settlepayoutrequest "wellness-workers/internal/workers/payouts/settle-payout-request"
)

var (
	zeebeClient *camunda.Client
	zapLog      *zap.Logger
)

func TestMain(m *testing.M) {
	if os.Getenv("E2E_TESTS") != "true" {
		fmt.Println("Skipping E2E tests. Set E2E_TESTS=true to run them.")
		os.Exit(0)
	}

	var err error
	zeebeClient, err = camunda.NewClient("localhost:26500")
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	_, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Log("🚀 Starting FULL E2E Test with real services...")

	// 1. Check all external services are available
	assertAllServicesConnectivity(t, cfg)

	// 2. Create DB tables if needed and insert test data
	createDatabaseTables(t, cfg)

	// 3. Exercise the workers against real services
	testBillingWorkers(t, cfg)
	testPayoutWorkers(t, cfg)

	t.Log("✅ ALL TESTS PASSED — Full E2E workflow successful!")
}

func assertAllServicesConnectivity(t *testing.T, cfg *config.Config) {
	t.Log("🔍 Checking service connectivity...")

	// 🔧 FORCE LOCALHOST FOR E2E TESTS
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"

	// --- PostgreSQL ---
	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	assert.NoError(t, db.Ping(context.Background()), "❌ PostgreSQL ping failed")
	db.Close()
	t.Log("✅ PostgreSQL connected")

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	assert.NoError(t, rdb.Ping(context.Background()), "❌ Redis ping failed")
	t.Log("✅ Redis connected")

	// --- Elasticsearch ---
	esURL := cfg.Database.Elasticsearch.GetURL()
	t.Logf("🔗 Elasticsearch URL: %s", esURL)

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	require.NoError(t, err, "❌ Elasticsearch client creation failed")

	res, err := es.Info()
	require.NoError(t, err, "❌ Elasticsearch info request failed")
	assert.False(t, res.IsError(), "❌ Elasticsearch returned error")
	res.Body.Close()
	t.Log("✅ Elasticsearch connected")

	// --- Zeebe ---
	err = zeebeClient.HealthCheck(context.Background())
	assert.NoError(t, err, "❌ Zeebe health check failed")
	t.Log("✅ Zeebe connected")
}

// ==========================
// 2. Database Tables Setup + Test Data
// ==========================
func createDatabaseTables(t *testing.T, cfg *config.Config) {
	t.Log("🔧 Creating database tables and inserting test data...")

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	db := dbClient.DB

	queries := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			plan_id VARCHAR(100),
			minutes_included INTEGER NOT NULL DEFAULT 0,
			minutes_used INTEGER NOT NULL DEFAULT 0,
			period_start TIMESTAMP,
			period_end TIMESTAMP,
			contact_email VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			id VARCHAR(255) PRIMARY KEY,
			company_id VARCHAR(255) REFERENCES companies(id),
			email VARCHAR(255) UNIQUE NOT NULL,
			full_name VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS specialists (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			full_name VARCHAR(255),
			rate_tier VARCHAR(50),
			active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id VARCHAR(255) PRIMARY KEY,
			employee_id VARCHAR(255) REFERENCES employees(id),
			specialist_id VARCHAR(255) REFERENCES specialists(id),
			status VARCHAR(50) NOT NULL,
			duration_minutes INTEGER NOT NULL,
			minutes_charged INTEGER,
			completed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS payout_requests (
			id VARCHAR(255) PRIMARY KEY,
			specialist_id VARCHAR(255) REFERENCES specialists(id),
			amount NUMERIC(12,2) NOT NULL,
			session_count INTEGER NOT NULL DEFAULT 0,
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			status VARCHAR(50) NOT NULL,
			reason TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			processed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(255) PRIMARY KEY,
			recipient_id VARCHAR(255),
			recipient_type VARCHAR(50),
			type VARCHAR(100),
			channel VARCHAR(50),
			status VARCHAR(50),
			payload JSONB,
			sent_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		_, err := db.ExecContext(context.Background(), query)
		if err != nil {
			t.Logf("Warning: Failed to create table: %v", err)
		}
	}

	// Reset state from previous runs before seeding
	cleanup := []string{
		`DELETE FROM payout_requests WHERE specialist_id LIKE 'e2e-%'`,
		`DELETE FROM bookings WHERE id LIKE 'e2e-%'`,
		`DELETE FROM employees WHERE id LIKE 'e2e-%'`,
		`DELETE FROM specialists WHERE id LIKE 'e2e-%'`,
		`DELETE FROM companies WHERE id LIKE 'e2e-%'`,
	}
	for _, query := range cleanup {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			t.Logf("Warning: cleanup failed: %v", err)
		}
	}

	testData := []string{
		`INSERT INTO companies (id, name, plan_id, minutes_included, minutes_used, period_start, period_end, contact_email)
		 VALUES ('e2e-acme', 'Acme Corp', 'team-500', 500, 0, NOW(), NOW() + INTERVAL '30 days', 'hr@acme.test')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO employees (id, company_id, email, full_name)
		 VALUES ('e2e-emp-1', 'e2e-acme', 'emp1@acme.test', 'Alex Doe')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO specialists (id, email, full_name, rate_tier, active)
		 VALUES ('e2e-spec-expert', 'dana@wellness.test', 'Dana Kim', 'expert', true)
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO bookings (id, employee_id, specialist_id, status, duration_minutes)
		 VALUES ('e2e-booking-1', 'e2e-emp-1', 'e2e-spec-expert', 'approved', 50)
		 ON CONFLICT (id) DO NOTHING`,
	}
	for _, query := range testData {
		_, err := db.ExecContext(context.Background(), query)
		require.NoError(t, err, "failed to seed test data")
	}

	t.Log("✅ Database tables ready with test data")
}

// ==========================
// 3. Billing Workers
// ==========================
func testBillingWorkers(t *testing.T, cfg *config.Config) {
	ctx := context.Background()
	log := logger.NewZapAdapter(zapLog)

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	defer rdb.Close()

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)

	t.Run("complete-session deducts weighted minutes", func(t *testing.T) {
		handler := completesession.NewHandler(
			completesession.LoadConfig(),
			dbClient.DB, rdb.Client, esClient.Client, log,
		)

		output, err := handler.Execute(ctx, &completesession.Input{SessionID: "e2e-booking-1"})
		require.NoError(t, err)

		// 50 expert minutes at 2.4x, rounded up
		assert.Equal(t, 120, output.MinutesDeducted)
		assert.Equal(t, "e2e-acme", output.CompanyID)
		assert.Equal(t, 380, output.RemainingMinutes)
		assert.False(t, output.Overage)
		t.Log("✅ complete-session")
	})

	t.Run("complete-session is not repeatable", func(t *testing.T) {
		handler := completesession.NewHandler(
			completesession.LoadConfig(),
			dbClient.DB, rdb.Client, esClient.Client, log,
		)

		_, err := handler.Execute(ctx, &completesession.Input{SessionID: "e2e-booking-1"})
		assert.ErrorIs(t, err, completesession.ErrSessionInvalidState)
		t.Log("✅ complete-session idempotency")
	})

	t.Run("query-entitlement reflects the deduction", func(t *testing.T) {
		handler := queryentitlement.NewHandler(
			queryentitlement.LoadConfig(),
			dbClient.DB, rdb.Client, log,
		)

		output, err := handler.Execute(ctx, &queryentitlement.Input{CompanyID: "e2e-acme"})
		require.NoError(t, err)
		assert.Equal(t, 500, output.MinutesIncluded)
		assert.Equal(t, 120, output.MinutesUsed)
		assert.Equal(t, 380, output.RemainingMinutes)

		// Second read comes from cache and must agree
		cached, err := handler.Execute(ctx, &queryentitlement.Input{CompanyID: "e2e-acme"})
		require.NoError(t, err)
		assert.Equal(t, output.MinutesUsed, cached.MinutesUsed)
		t.Log("✅ query-entitlement")
	})

	t.Run("reset-entitlement starts a fresh period", func(t *testing.T) {
		handler := resetentitlement.NewHandler(
			resetentitlement.LoadConfig(),
			dbClient.DB, rdb.Client, log,
		)

		output, err := handler.Execute(ctx, &resetentitlement.Input{
			CompanyID:       "e2e-acme",
			PlanID:          "team-1000",
			MinutesIncluded: 1000,
		})
		require.NoError(t, err)
		assert.Equal(t, 1000, output.RemainingMinutes)

		// The reset must be visible immediately, not after cache expiry
		qHandler := queryentitlement.NewHandler(
			queryentitlement.LoadConfig(),
			dbClient.DB, rdb.Client, log,
		)
		fresh, err := qHandler.Execute(ctx, &queryentitlement.Input{CompanyID: "e2e-acme"})
		require.NoError(t, err)
		assert.Equal(t, 0, fresh.MinutesUsed)
		assert.Equal(t, 1000, fresh.MinutesIncluded)
		t.Log("✅ reset-entitlement")
	})
}

// ==========================
// 4. Payout Workers
// ==========================
func testPayoutWorkers(t *testing.T, cfg *config.Config) {
	ctx := context.Background()
	log := logger.NewZapAdapter(zapLog)

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	periodStart := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	periodEnd := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)

	var requestID string

	t.Run("calculate-earnings rolls up the completed session", func(t *testing.T) {
		handler := calculateearnings.NewHandler(
			calculateearnings.LoadConfig(),
			dbClient.DB, log,
		)

		output, err := handler.Execute(ctx, &calculateearnings.Input{
			SpecialistID: "e2e-spec-expert",
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, output.SessionCount)
		// 50 minutes at $144/h
		assert.Equal(t, 120.0, output.Amount)
		t.Log("✅ calculate-earnings")
	})

	t.Run("create-payout-request freezes the amount", func(t *testing.T) {
		handler := createpayoutrequest.NewHandler(
			createpayoutrequest.LoadConfig(),
			dbClient.DB, log,
		)

		output, err := handler.Execute(ctx, &createpayoutrequest.Input{
			SpecialistID: "e2e-spec-expert",
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
		})
		require.NoError(t, err)
		assert.Equal(t, 120.0, output.Amount)
		assert.Equal(t, "pending", output.Status)
		requestID = output.RequestID

		// A second open request for the same specialist must be refused
		_, err = handler.Execute(ctx, &createpayoutrequest.Input{
			SpecialistID: "e2e-spec-expert",
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
		})
		assert.ErrorIs(t, err, createpayoutrequest.ErrPendingExists)
		t.Log("✅ create-payout-request")
	})

	t.Run("settle-payout-request is a one-shot transition", func(t *testing.T) {
		require.NotEmpty(t, requestID)

		handler := settlepayoutrequest.NewHandler(
			settlepayoutrequest.LoadConfig(),
			dbClient.DB, log,
		)

		output, err := handler.Execute(ctx, &settlepayoutrequest.Input{
			RequestID: requestID,
			Decision:  "paid",
		})
		require.NoError(t, err)
		assert.Equal(t, "paid", output.Status)
		assert.NotEmpty(t, output.ProcessedAt)

		_, err = handler.Execute(ctx, &settlepayoutrequest.Input{
			RequestID: requestID,
			Decision:  "rejected",
			Reason:    "changed my mind",
		})
		assert.ErrorIs(t, err, settlepayoutrequest.ErrInvalidState)
		t.Log("✅ settle-payout-request")
	})
}
