// internal/models/notification.go
package models

// Notification channels and types supported by the send-notification worker.
const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"

	NotificationTypeSessionCompleted = "session_completed"
	NotificationTypePayoutSettled    = "payout_settled"
	NotificationTypeUsageAlert       = "usage_alert"
)

// Notification is the audit record written after a delivery attempt.
// Status reflects the delivery outcome; a failed delivery is still a
// recorded notification.
type Notification struct {
	ID            string                 `json:"id" db:"id"`
	RecipientID   string                 `json:"recipientId" db:"recipient_id"`
	RecipientType string                 `json:"recipientType" db:"recipient_type"`
	Type          string                 `json:"type" db:"type"`
	Channel       string                 `json:"channel" db:"channel"`
	Status        string                 `json:"status" db:"status"`
	Payload       map[string]interface{} `json:"payload" db:"payload"`
	SentAt        string                 `json:"sentAt" db:"sent_at"`
	CreatedAt     string                 `json:"createdAt" db:"created_at"`
}
