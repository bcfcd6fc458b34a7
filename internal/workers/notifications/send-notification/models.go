// internal/workers/notifications/send-notification/models.go
package sendnotification

type Input struct {
	RecipientID    string                 `json:"recipientId"`
	RecipientType  string                 `json:"recipientType"` // "employee", "specialist" or "company_admin"
	RecipientEmail string                 `json:"recipientEmail,omitempty"`
	RecipientPhone string                 `json:"recipientPhone,omitempty"`
	Type           string                 `json:"type"`    // "session_completed", "payout_settled", "usage_alert"
	Channel        string                 `json:"channel"` // "email" or "sms"
	Subject        string                 `json:"subject,omitempty"`
	Message        string                 `json:"message"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
}

// Output always completes the job. A delivery failure is reported in
// Status so the process can decide whether a missed notification matters;
// it never drives a retry of the business steps before it.
type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent" or "failed"
	Channel        string `json:"channel"`
	Reason         string `json:"reason,omitempty"`
	SentAt         string `json:"sentAt,omitempty"`
}
