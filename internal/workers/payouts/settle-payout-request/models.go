// internal/workers/payouts/settle-payout-request/models.go
package settlepayoutrequest

type Input struct {
	RequestID string `json:"requestId"`
	Decision  string `json:"decision"` // "paid" or "rejected"
	Reason    string `json:"reason,omitempty"`
}

type Output struct {
	RequestID   string `json:"requestId"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	ProcessedAt string `json:"processedAt"`
}
