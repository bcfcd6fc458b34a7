// internal/workers/payouts/create-payout-request/models.go
package createpayoutrequest

type Input struct {
	SpecialistID string `json:"specialistId"`
	PeriodStart  string `json:"periodStart"` // RFC3339
	PeriodEnd    string `json:"periodEnd"`   // RFC3339
}

// Output carries the frozen claim. Amount is computed once here and never
// recalculated, even if the specialist's tier changes later.
type Output struct {
	RequestID    string  `json:"requestId"`
	SpecialistID string  `json:"specialistId"`
	Amount       float64 `json:"amount"`
	SessionCount int     `json:"sessionCount"`
	Status       string  `json:"status"`
	PeriodStart  string  `json:"periodStart"`
	PeriodEnd    string  `json:"periodEnd"`
}
