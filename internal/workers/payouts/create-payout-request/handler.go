// internal/workers/payouts/create-payout-request/handler.go
package createpayoutrequest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wellness-workers/internal/billing"
	apperrors "wellness-workers/internal/common/errors"
	"wellness-workers/internal/common/logger"
	"wellness-workers/internal/common/metrics"
	"wellness-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "create-payout-request"
)

var (
	ErrInvalidPeriod = errors.New("INVALID_EARNINGS_PERIOD")
	ErrNoEarnings    = errors.New("PAYOUT_NO_EARNINGS")
	ErrPendingExists = errors.New("PAYOUT_REQUEST_PENDING")
	ErrWriteFailed   = errors.New("PAYOUT_WRITE_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
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
		h.failJob(client, job, &apperrors.StandardError{
			Code:      "PARSE_ERROR",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, classify(err, &input))
		return
	}

	h.completeJob(client, job, output)
}

// classify maps an execute failure onto the shared error taxonomy.
func classify(err error, input *Input) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrNoEarnings):
		return apperrors.NewPayoutNoEarningsError(input.SpecialistID)
	case errors.Is(err, ErrPendingExists):
		return apperrors.NewPayoutRequestPendingError(input.SpecialistID)
	case errors.Is(err, billing.ErrSpecialistNotFound):
		return apperrors.NewSpecialistNotFoundError(input.SpecialistID)
	case errors.Is(err, billing.ErrEarningsQuery):
		return apperrors.NewEarningsQueryError(err)
	case errors.Is(err, ErrWriteFailed):
		return apperrors.NewPayoutWriteFailedError(err)
	case errors.Is(err, ErrInvalidPeriod):
		return &apperrors.StandardError{
			Code:      "INVALID_EARNINGS_PERIOD",
			Message:   "Earnings period is invalid",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	default:
		return &apperrors.StandardError{
			Code:      "UNKNOWN_ERROR",
			Message:   "Unexpected failure",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	periodStart, err := time.Parse(time.RFC3339, input.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("%w: periodStart %q", ErrInvalidPeriod, input.PeriodStart)
	}
	periodEnd, err := time.Parse(time.RFC3339, input.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: periodEnd %q", ErrInvalidPeriod, input.PeriodEnd)
	}
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("%w: end not after start", ErrInvalidPeriod)
	}

	summary, err := billing.AggregateEarnings(ctx, h.db, input.SpecialistID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if summary.Amount <= 0 {
		return nil, fmt.Errorf("%w: specialist %s, period %s..%s",
			ErrNoEarnings, input.SpecialistID, input.PeriodStart, input.PeriodEnd)
	}

	// Uniqueness of the open request is enforced in the statement itself:
	// the insert is a no-op when a pending row already exists, so two
	// concurrent requests cannot both slip through a prior existence check.
	requestID := uuid.NewString()
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO payout_requests (id, specialist_id, amount, session_count, period_start, period_end, status, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, NOW()
		 WHERE NOT EXISTS (
		   SELECT 1 FROM payout_requests WHERE specialist_id = $2 AND status = $7
		 )`,
		requestID, input.SpecialistID, summary.Amount, summary.SessionCount, periodStart, periodEnd, models.PayoutStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, fmt.Errorf("%w: specialist %s", ErrPendingExists, input.SpecialistID)
	}

	metrics.PayoutRequestsCreated.Inc()

	return &Output{
		RequestID:    requestID,
		SpecialistID: input.SpecialistID,
		Amount:       summary.Amount,
		SessionCount: summary.SessionCount,
		Status:       models.PayoutStatusPending,
		PeriodStart:  periodStart.Format(time.RFC3339),
		PeriodEnd:    periodEnd.Format(time.RFC3339),
	}, nil
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	bpmnErr := apperrors.ConvertToBPMNError(stdErr)

	fields := bpmnErr.ToErrorVariables()
	fields["jobKey"] = job.Key
	fields["errorCategory"] = apperrors.GetErrorCategory(stdErr.Code)
	h.logger.Error("job failed", fields)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()

	errorMessage := bpmnErr.Message
	if bpmnErr.Details != "" {
		errorMessage = bpmnErr.Message + ": " + bpmnErr.Details
	}

	// Technical failures go back to the engine for retry. Business and
	// data-integrity failures throw a BPMN error for the process to catch.
	if bpmnErr.Retryable && job.Retries > 1 {
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
		ErrorCode(bpmnErr.Code).
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
