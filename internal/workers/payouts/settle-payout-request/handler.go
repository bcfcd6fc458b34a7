// internal/workers/payouts/settle-payout-request/handler.go
package settlepayoutrequest

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
	"wellness-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "settle-payout-request"
)

var (
	ErrRequestNotFound = errors.New("PAYOUT_REQUEST_NOT_FOUND")
	ErrInvalidState    = errors.New("PAYOUT_INVALID_STATE")
	ErrInvalidDecision = errors.New("INVALID_PAYOUT_DECISION")
	ErrSettleFailed    = errors.New("PAYOUT_WRITE_FAILED")
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
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		switch {
		case errors.Is(err, ErrRequestNotFound):
			errorCode = "PAYOUT_REQUEST_NOT_FOUND"
		case errors.Is(err, ErrInvalidState):
			errorCode = "PAYOUT_INVALID_STATE"
		case errors.Is(err, ErrInvalidDecision):
			errorCode = "INVALID_PAYOUT_DECISION"
		case errors.Is(err, ErrSettleFailed):
			errorCode = "PAYOUT_WRITE_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Decision != models.PayoutStatusPaid && input.Decision != models.PayoutStatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, input.Decision)
	}
	// A rejection without a reason is not actionable for the specialist.
	if input.Decision == models.PayoutStatusRejected && input.Reason == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrInvalidDecision)
	}

	// Only a pending request can be settled; the status guard makes the
	// settlement a one-shot transition under concurrent decisions.
	var processedAt time.Time
	err := h.db.QueryRowContext(ctx,
		`UPDATE payout_requests
		 SET status = $1, reason = $2, processed_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING processed_at`,
		input.Decision, input.Reason, input.RequestID, models.PayoutStatusPending,
	).Scan(&processedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, h.classifyMiss(ctx, input.RequestID)
		}
		return nil, fmt.Errorf("%w: %v", ErrSettleFailed, err)
	}

	metrics.PayoutRequestsSettled.WithLabelValues(input.Decision).Inc()

	return &Output{
		RequestID:   input.RequestID,
		Status:      input.Decision,
		Reason:      input.Reason,
		ProcessedAt: processedAt.UTC().Format(time.RFC3339),
	}, nil
}

// classifyMiss tells a request that never existed apart from one that was
// already settled, so the process can branch on the right BPMN error.
func (h *Handler) classifyMiss(ctx context.Context, requestID string) error {
	var status string
	err := h.db.QueryRowContext(ctx,
		`SELECT status FROM payout_requests WHERE id = $1`,
		requestID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: request %s", ErrRequestNotFound, requestID)
		}
		return fmt.Errorf("%w: status lookup: %v", ErrSettleFailed, err)
	}
	return fmt.Errorf("%w: request %s is %s", ErrInvalidState, requestID, status)
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
