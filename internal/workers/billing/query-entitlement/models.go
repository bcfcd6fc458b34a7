// internal/workers/billing/query-entitlement/models.go
package queryentitlement

type Input struct {
	CompanyID string `json:"companyId"`
}

// Output is the display-facing view of a company's entitlement ledger.
type Output struct {
	CompanyID        string  `json:"companyId"`
	MinutesIncluded  int     `json:"minutesIncluded"`
	MinutesUsed      int     `json:"minutesUsed"`
	RemainingMinutes int     `json:"remainingMinutes"`
	UsagePercentage  float64 `json:"usagePercentage"`
	Overage          bool    `json:"overage"`
	NearLimit        bool    `json:"nearLimit"`
}
