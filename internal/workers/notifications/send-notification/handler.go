// internal/workers/notifications/send-notification/handler.go
package sendnotification

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
	"wellness-workers/internal/common/validation"
	"wellness-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

var (
	ErrInvalidChannel   = errors.New("INVALID_NOTIFICATION_CHANNEL")
	ErrInvalidRecipient = errors.New("INVALID_NOTIFICATION_RECIPIENT")
)

// SESService and SNSService mirror the aws client wrappers so tests can
// substitute fakes without touching real AWS credentials.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config *Config
	db     *sql.DB
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		ses:    sesClient,
		sns:    snsClient,
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
		case errors.Is(err, ErrInvalidChannel):
			errorCode = "INVALID_NOTIFICATION_CHANNEL"
		case errors.Is(err, ErrInvalidRecipient):
			errorCode = "INVALID_NOTIFICATION_RECIPIENT"
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	notificationID := uuid.NewString()

	var sendErr error
	switch input.Channel {
	case models.NotificationChannelEmail:
		if !validation.ValidateEmail(input.RecipientEmail) {
			return nil, fmt.Errorf("%w: email %q", ErrInvalidRecipient, input.RecipientEmail)
		}
		sendErr = h.sendEmail(ctx, input)
	case models.NotificationChannelSMS:
		if !validation.ValidatePhone(input.RecipientPhone) {
			return nil, fmt.Errorf("%w: phone %q", ErrInvalidRecipient, input.RecipientPhone)
		}
		sendErr = h.sendSMS(ctx, input)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, input.Channel)
	}

	output := &Output{
		NotificationID: notificationID,
		Channel:        input.Channel,
	}
	sentAt := time.Now().UTC()
	if sendErr != nil {
		// Delivery misses are visible, not fatal. The completed session
		// or settled payout behind this notification already happened.
		output.Status = StatusFailed
		output.Reason = sendErr.Error()
		h.logger.Warn("notification delivery failed", map[string]interface{}{
			"notificationId": notificationID,
			"channel":        input.Channel,
			"type":           input.Type,
			"error":          sendErr.Error(),
		})
	} else {
		output.Status = StatusSent
		output.SentAt = sentAt.Format(time.RFC3339)
	}
	metrics.NotificationsSent.WithLabelValues(input.Channel, output.Status).Inc()

	h.recordNotification(ctx, notificationID, input, output.Status, sentAt)

	return output, nil
}

func (h *Handler) sendEmail(ctx context.Context, input *Input) error {
	subject := input.Subject
	if subject == "" {
		subject = defaultSubject(input.Type)
	}
	_, err := h.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{input.RecipientEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(input.Message)},
			},
		},
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, input *Input) error {
	_, err := h.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(input.RecipientPhone),
		Message:     aws.String(input.Message),
	})
	return err
}

// recordNotification appends to the audit trail. The write is best effort;
// a full audit table must not block delivery reporting.
func (h *Handler) recordNotification(ctx context.Context, id string, input *Input, status string, sentAt time.Time) {
	payload, _ := json.Marshal(input.Payload)
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, recipient_type, type, channel, status, payload, sent_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		id, input.RecipientID, input.RecipientType, input.Type, input.Channel, status, payload, sentAt,
	)
	if err != nil {
		h.logger.Warn("failed to record notification", map[string]interface{}{
			"notificationId": id,
			"error":          err.Error(),
		})
	}
}

func defaultSubject(notificationType string) string {
	switch notificationType {
	case models.NotificationTypeSessionCompleted:
		return "Your wellness session is complete"
	case models.NotificationTypePayoutSettled:
		return "Your payout request has been processed"
	case models.NotificationTypeUsageAlert:
		return "Wellness minutes usage alert"
	default:
		return "Wellness notification"
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
