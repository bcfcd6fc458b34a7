// internal/workers/payouts/calculate-earnings/models.go
package calculateearnings

type Input struct {
	SpecialistID string `json:"specialistId"`
	PeriodStart  string `json:"periodStart"` // RFC3339
	PeriodEnd    string `json:"periodEnd"`   // RFC3339
}

// Output is a read-only rollup; nothing is persisted by this worker.
type Output struct {
	SpecialistID string  `json:"specialistId"`
	Tier         string  `json:"tier"`
	Amount       float64 `json:"amount"`
	SessionCount int     `json:"sessionCount"`
	PeriodStart  string  `json:"periodStart"`
	PeriodEnd    string  `json:"periodEnd"`
}
