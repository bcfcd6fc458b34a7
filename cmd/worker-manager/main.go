// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wellness-workers/internal/common/aws"
	"wellness-workers/internal/common/camunda"
	"wellness-workers/internal/common/config"
	"wellness-workers/internal/common/database"
	"wellness-workers/internal/common/logger"
	"wellness-workers/internal/common/observability"
	"wellness-workers/pkg/registry"

	// Billing Workers (3)
	cs "wellness-workers/internal/workers/billing/complete-session"
	qe "wellness-workers/internal/workers/billing/query-entitlement"
	re "wellness-workers/internal/workers/billing/reset-entitlement"

	// Payout Workers (3)
	ce "wellness-workers/internal/workers/payouts/calculate-earnings"
	cpr "wellness-workers/internal/workers/payouts/create-payout-request"
	spr "wellness-workers/internal/workers/payouts/settle-payout-request"

	// Notification Workers (1)
	sn "wellness-workers/internal/workers/notifications/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Registry sanity check: every enabled worker needs a registry entry
	// with a parseable input schema before we start taking jobs.
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("registry load failed", zap.Error(err))
	}
	if err := registry.CheckSchemas(reg); err != nil {
		zapLog.Fatal("registry schema check failed", zap.Error(err))
	}
	for _, taskType := range []string{
		cs.TaskType, re.TaskType, qe.TaskType,
		ce.TaskType, cpr.TaskType, spr.TaskType, sn.TaskType,
	} {
		if !config.IsWorkerEnabled(cfg, taskType) {
			continue
		}
		if _, err := reg.FindByTaskType(taskType); err != nil {
			zapLog.Fatal("enabled worker missing from registry",
				zap.String("taskType", taskType), zap.Error(err))
		}
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	// Session analytics is best effort, so unlike Postgres and Redis a
	// dead Elasticsearch only costs us the analytics stream.
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Warn("elasticsearch unavailable, session analytics disabled", zap.Error(err))
		esClient = nil
	} else {
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS Clients ---
	var sesClient *aws.SESClient
	var snsClient *aws.SNSClient
	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		sesClient, err = aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		snsClient, err = aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		zapLog.Info("AWS clients initialized")
	}

	// --- START: Register ALL 7 Workers ---
	var workers []*camunda.Worker
	register := func(taskType string, wcfg config.WorkerConfig, handler camunda.HandlerFunc) {
		timed := func(client worker.JobClient, job entities.Job) {
			start := time.Now()
			handler(client, job)
			obs.RecordJob(context.Background(), taskType, time.Since(start))
		}
		w := camunda.NewWorker(zeebeClient, taskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, timed, zapLog)
		workers = append(workers, w)
	}

	// --- 1. Billing Workers (3) ---
	if config.IsWorkerEnabled(cfg, cs.TaskType) {
		handler := cs.NewHandler(
			&cs.Config{
				Timeout:        config.GetDuration(config.GetWorkerConfig(cfg, cs.TaskType).Timeout),
				AnalyticsIndex: cfg.Billing.AnalyticsIndex,
			},
			pg.DB, redis.Client, rawES(esClient), log,
		)
		register(cs.TaskType, config.GetWorkerConfig(cfg, cs.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, re.TaskType) {
		handler := re.NewHandler(
			&re.Config{
				Timeout:       config.GetDuration(config.GetWorkerConfig(cfg, re.TaskType).Timeout),
				DefaultPeriod: 30 * 24 * time.Hour,
			},
			pg.DB, redis.Client, log,
		)
		register(re.TaskType, config.GetWorkerConfig(cfg, re.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, qe.TaskType) {
		handler := qe.NewHandler(
			&qe.Config{
				Timeout:        config.GetDuration(config.GetWorkerConfig(cfg, qe.TaskType).Timeout),
				CacheTTL:       time.Duration(cfg.Billing.EntitlementCacheTTL) * time.Second,
				AlertThreshold: cfg.Billing.OverageAlertThreshold,
			},
			pg.DB, redis.Client, log,
		)
		register(qe.TaskType, config.GetWorkerConfig(cfg, qe.TaskType), handler.Handle)
	}

	// --- 2. Payout Workers (3) ---
	if config.IsWorkerEnabled(cfg, ce.TaskType) {
		handler := ce.NewHandler(
			&ce.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ce.TaskType).Timeout),
			},
			pg.DB, log,
		)
		register(ce.TaskType, config.GetWorkerConfig(cfg, ce.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, cpr.TaskType) {
		handler := cpr.NewHandler(
			&cpr.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, cpr.TaskType).Timeout),
			},
			pg.DB, log,
		)
		register(cpr.TaskType, config.GetWorkerConfig(cfg, cpr.TaskType), handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, spr.TaskType) {
		handler := spr.NewHandler(
			&spr.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, spr.TaskType).Timeout),
			},
			pg.DB, log,
		)
		register(spr.TaskType, config.GetWorkerConfig(cfg, spr.TaskType), handler.Handle)
	}

	// --- 3. Notification Workers (1) ---
	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		handler := sn.NewHandler(
			&sn.Config{
				Timeout:   config.GetDuration(config.GetWorkerConfig(cfg, sn.TaskType).Timeout),
				FromEmail: cfg.Integrations.AWS.SES.FromEmail,
			},
			pg.DB, sesClient, snsClient, log,
		)
		register(sn.TaskType, config.GetWorkerConfig(cfg, sn.TaskType), handler.Handle)
	}

	zapLog.Info("All 7 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// rawES unwraps the Elasticsearch client, preserving nil when analytics
// is disabled.
func rawES(c *database.ElasticsearchClient) *elasticsearch.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
