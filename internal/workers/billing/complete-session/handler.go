// internal/workers/billing/complete-session/handler.go
package completesession

import (
	"bytes"
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
	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "complete-session"
)

var (
	ErrSessionNotFound     = errors.New("SESSION_NOT_FOUND")
	ErrSessionInvalidState = errors.New("SESSION_INVALID_STATE")
	ErrCompanyNotFound     = errors.New("COMPANY_NOT_FOUND")
	ErrDeductionFailed     = errors.New("DEDUCTION_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	es     *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, es *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
		es:     es,
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
		case errors.Is(err, ErrSessionNotFound),
			errors.Is(err, ErrSessionInvalidState),
			errors.Is(err, ErrCompanyNotFound),
			errors.Is(err, billing.ErrInvalidDuration):
			errorCode = sentinelCode(err)
		case errors.Is(err, ErrDeductionFailed):
			errorCode = "DEDUCTION_FAILED"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var booking bookingRow
	var rawTier sql.NullString

	query := `SELECT b.employee_id, b.specialist_id, b.duration_minutes, b.status, s.rate_tier
		FROM bookings b
		LEFT JOIN specialists s ON s.id = b.specialist_id
		WHERE b.id = $1`
	err := h.db.QueryRowContext(ctx, query, input.SessionID).Scan(
		&booking.EmployeeID, &booking.SpecialistID, &booking.DurationMinutes, &booking.Status, &rawTier,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
	}

	if booking.Status != models.BookingStatusApproved {
		return nil, fmt.Errorf("%w: session %s is %s", ErrSessionInvalidState, input.SessionID, booking.Status)
	}

	// NULL or unknown tier charges at the standard rate.
	tier := billing.ParseTier(rawTier.String)

	minutesToDeduct, err := billing.MinutesToDeduct(booking.DurationMinutes, tier)
	if err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
	}
	defer tx.Rollback()

	// The status guard here makes retried completions deduct nothing.
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, completed_at = NOW(), minutes_charged = $2 WHERE id = $3 AND status = $4`,
		models.BookingStatusCompleted, minutesToDeduct, input.SessionID, models.BookingStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, fmt.Errorf("%w: session %s already transitioned", ErrSessionInvalidState, input.SessionID)
	}

	var companyID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT company_id FROM employees WHERE id = $1`, booking.EmployeeID,
	).Scan(&companyID)
	if err != nil || !companyID.Valid || companyID.String == "" {
		// A completed session with no billable company is unbilled usage;
		// fail loudly rather than skip the deduction.
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
		}
		return nil, fmt.Errorf("%w: employee %s", ErrCompanyNotFound, booking.EmployeeID)
	}

	// Single-statement atomic increment; no read-modify-write.
	var minutesIncluded, minutesUsed int
	err = tx.QueryRowContext(ctx,
		`UPDATE companies SET minutes_used = minutes_used + $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING minutes_included, minutes_used`,
		minutesToDeduct, companyID.String,
	).Scan(&minutesIncluded, &minutesUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", ErrCompanyNotFound, companyID.String)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeductionFailed, err)
	}

	metrics.MinutesDeducted.WithLabelValues(string(tier)).Add(float64(minutesToDeduct))

	// Post-commit side effects are best-effort: the deduction is already
	// durable and must not be failed retroactively.
	h.invalidateEntitlementCache(ctx, companyID.String)
	h.indexSessionAnalytics(ctx, &sessionAnalyticsDoc{
		SessionID:       input.SessionID,
		CompanyID:       companyID.String,
		SpecialistID:    booking.SpecialistID,
		Tier:            string(tier),
		DurationMinutes: booking.DurationMinutes,
		MinutesDeducted: minutesToDeduct,
		CompletedAt:     time.Now().UTC().Format(time.RFC3339),
	})

	return &Output{
		SessionID:        input.SessionID,
		CompanyID:        companyID.String,
		Tier:             string(tier),
		MinutesDeducted:  minutesToDeduct,
		RemainingMinutes: billing.RemainingMinutes(minutesIncluded, minutesUsed),
		Overage:          billing.IsOverage(minutesIncluded, minutesUsed),
	}, nil
}

func (h *Handler) invalidateEntitlementCache(ctx context.Context, companyID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, "entitlement:"+companyID).Err(); err != nil {
		h.logger.Warn("entitlement cache invalidation failed", map[string]interface{}{
			"companyId": companyID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) indexSessionAnalytics(ctx context.Context, doc *sessionAnalyticsDoc) {
	if h.es == nil {
		return
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return
	}
	res, err := h.es.Index(h.config.AnalyticsIndex, bytes.NewReader(body), h.es.Index.WithContext(ctx))
	if err != nil {
		h.logger.Warn("analytics index write failed", map[string]interface{}{
			"sessionId": doc.SessionID,
			"error":     err.Error(),
		})
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		h.logger.Warn("analytics index write rejected", map[string]interface{}{
			"sessionId": doc.SessionID,
			"status":    res.Status(),
		})
	}
}

func sentinelCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrSessionInvalidState):
		return "SESSION_INVALID_STATE"
	case errors.Is(err, ErrCompanyNotFound):
		return "COMPANY_NOT_FOUND"
	case errors.Is(err, billing.ErrInvalidDuration):
		return "INVALID_SESSION_DURATION"
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
