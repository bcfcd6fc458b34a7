// internal/workers/billing/reset-entitlement/models.go
package resetentitlement

type Input struct {
	CompanyID       string `json:"companyId"`
	PlanID          string `json:"planId,omitempty"`
	MinutesIncluded int    `json:"minutesIncluded"`
	PeriodStart     string `json:"periodStart,omitempty"` // RFC3339; defaults to now
	PeriodEnd       string `json:"periodEnd,omitempty"`   // RFC3339; defaults to start + default period
}

// Output confirms the fresh ledger state after a plan purchase or renewal.
type Output struct {
	CompanyID        string `json:"companyId"`
	PlanID           string `json:"planId,omitempty"`
	MinutesIncluded  int    `json:"minutesIncluded"`
	RemainingMinutes int    `json:"remainingMinutes"`
	PeriodStart      string `json:"periodStart"`
	PeriodEnd        string `json:"periodEnd"`
}
