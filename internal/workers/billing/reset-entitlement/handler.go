// internal/workers/billing/reset-entitlement/handler.go
package resetentitlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "wellness-workers/internal/common/errors"
	"wellness-workers/internal/common/logger"
	"wellness-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "reset-entitlement"
)

var (
	ErrCompanyNotFound  = errors.New("COMPANY_NOT_FOUND")
	ErrInvalidAllotment = errors.New("INVALID_PLAN_ALLOTMENT")
	ErrInvalidPeriod    = errors.New("INVALID_RESET_PERIOD")
	ErrResetFailed      = errors.New("ENTITLEMENT_RESET_FAILED")
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
		switch {
		case errors.Is(err, ErrCompanyNotFound),
			errors.Is(err, ErrInvalidAllotment),
			errors.Is(err, ErrInvalidPeriod):
			errorCode = sentinelCode(err)
		case errors.Is(err, ErrResetFailed):
			errorCode = "ENTITLEMENT_RESET_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.MinutesIncluded <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAllotment, input.MinutesIncluded)
	}

	periodStart, periodEnd, err := h.resolvePeriod(input)
	if err != nil {
		return nil, err
	}

	// Fresh period: new allotment, zeroed consumption. Overage from the
	// previous period is not carried forward.
	res, err := h.db.ExecContext(ctx,
		`UPDATE companies
		 SET minutes_included = $1, minutes_used = 0,
		     plan_id = COALESCE(NULLIF($2, ''), plan_id),
		     period_start = $3, period_end = $4, updated_at = NOW()
		 WHERE id = $5`,
		input.MinutesIncluded, input.PlanID, periodStart, periodEnd, input.CompanyID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, fmt.Errorf("%w: company %s", ErrCompanyNotFound, input.CompanyID)
	}

	if h.redis != nil {
		if err := h.redis.Del(ctx, "entitlement:"+input.CompanyID).Err(); err != nil {
			h.logger.Warn("entitlement cache invalidation failed", map[string]interface{}{
				"companyId": input.CompanyID,
				"error":     err.Error(),
			})
		}
	}

	return &Output{
		CompanyID:        input.CompanyID,
		PlanID:           input.PlanID,
		MinutesIncluded:  input.MinutesIncluded,
		RemainingMinutes: input.MinutesIncluded,
		PeriodStart:      periodStart.Format(time.RFC3339),
		PeriodEnd:        periodEnd.Format(time.RFC3339),
	}, nil
}

func (h *Handler) resolvePeriod(input *Input) (time.Time, time.Time, error) {
	periodStart := time.Now().UTC()
	if input.PeriodStart != "" {
		parsed, err := time.Parse(time.RFC3339, input.PeriodStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: periodStart %q", ErrInvalidPeriod, input.PeriodStart)
		}
		periodStart = parsed
	}

	periodEnd := periodStart.Add(h.config.DefaultPeriod)
	if input.PeriodEnd != "" {
		parsed, err := time.Parse(time.RFC3339, input.PeriodEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: periodEnd %q", ErrInvalidPeriod, input.PeriodEnd)
		}
		periodEnd = parsed
	}

	if !periodEnd.After(periodStart) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s not after start %s", ErrInvalidPeriod, periodEnd, periodStart)
	}

	return periodStart, periodEnd, nil
}

func sentinelCode(err error) string {
	switch {
	case errors.Is(err, ErrCompanyNotFound):
		return "COMPANY_NOT_FOUND"
	case errors.Is(err, ErrInvalidAllotment):
		return "INVALID_PLAN_ALLOTMENT"
	case errors.Is(err, ErrInvalidPeriod):
		return "INVALID_RESET_PERIOD"
	default:
		return "UNKNOWN_ERROR"
	}
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
