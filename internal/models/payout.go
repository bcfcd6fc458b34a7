package models

import "time"

// Payout request status lifecycle. A request is created pending and is
// settled exactly once, to paid or rejected.
const (
	PayoutStatusPending  = "pending"
	PayoutStatusPaid     = "paid"
	PayoutStatusRejected = "rejected"
)

// PayoutRequest represents a specialist's claim for a period of earnings.
// Amount is frozen at creation time; later tier changes never touch it.
type PayoutRequest struct {
	ID           string     `json:"id" db:"id"`
	SpecialistID string     `json:"specialistId" db:"specialist_id"`
	Amount       float64    `json:"amount" db:"amount"`
	SessionCount int        `json:"sessionCount" db:"session_count"`
	PeriodStart  time.Time  `json:"periodStart" db:"period_start"`
	PeriodEnd    time.Time  `json:"periodEnd" db:"period_end"`
	Status       string     `json:"status" db:"status"`
	Reason       string     `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty" db:"processed_at"`
}

// IsSettleable reports whether the request can still be paid or rejected.
func (p *PayoutRequest) IsSettleable() bool {
	return p.Status == PayoutStatusPending
}
