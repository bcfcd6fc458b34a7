// internal/workers/billing/query-entitlement/handler.go
package queryentitlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wellness-workers/internal/billing"
	apperrors "wellness-workers/internal/common/errors"
	"wellness-workers/internal/common/logger"
	"wellness-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "query-entitlement"
)

var (
	ErrCompanyNotFound = errors.New("COMPANY_NOT_FOUND")
	ErrQueryFailed     = errors.New("ENTITLEMENT_QUERY_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		if errors.Is(err, ErrCompanyNotFound) {
			errorCode = "COMPANY_NOT_FOUND"
		} else if errors.Is(err, ErrQueryFailed) {
			errorCode = "ENTITLEMENT_QUERY_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	cacheKey := "entitlement:" + input.CompanyID
	if h.redis != nil {
		if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var out Output
			if err := json.Unmarshal([]byte(val), &out); err == nil {
				metrics.EntitlementCacheHits.WithLabelValues("hit").Inc()
				return &out, nil
			}
		}
		metrics.EntitlementCacheHits.WithLabelValues("miss").Inc()
	}

	var minutesIncluded, minutesUsed int
	query := `SELECT minutes_included, minutes_used FROM companies WHERE id = $1`
	err := h.db.QueryRowContext(ctx, query, input.CompanyID).Scan(&minutesIncluded, &minutesUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, input.CompanyID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	usage := billing.UsagePercentage(minutesIncluded, minutesUsed)
	out := &Output{
		CompanyID:        input.CompanyID,
		MinutesIncluded:  minutesIncluded,
		MinutesUsed:      minutesUsed,
		RemainingMinutes: billing.RemainingMinutes(minutesIncluded, minutesUsed),
		UsagePercentage:  usage,
		Overage:          billing.IsOverage(minutesIncluded, minutesUsed),
		NearLimit:        usage >= h.config.AlertThreshold,
	}

	if h.redis != nil {
		data, _ := json.Marshal(out)
		h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)
	}

	return out, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":        job.Key,
		"errorCode":     errorCode,
		"errorCategory": apperrors.GetErrorCategory(apperrors.ErrorCode(errorCode)),
		"errorMessage":  errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	// Technical failures go back to the engine for retry. Business and
	// data-integrity failures throw a BPMN error for the process to catch.
	if apperrors.IsRetryableErrorCode(apperrors.ErrorCode(errorCode)) && job.Retries > 1 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(job.Retries - 1).
			ErrorMessage(errorMessage).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
