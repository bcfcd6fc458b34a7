package models

import "time"

// Company represents a client company with a minutes-based wellness plan.
// MinutesIncluded and MinutesUsed together form the entitlement ledger for
// the current billing period.
type Company struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	PlanID          string    `json:"planId" db:"plan_id"`
	MinutesIncluded int       `json:"minutesIncluded" db:"minutes_included"`
	MinutesUsed     int       `json:"minutesUsed" db:"minutes_used"`
	PeriodStart     time.Time `json:"periodStart" db:"period_start"`
	PeriodEnd       time.Time `json:"periodEnd" db:"period_end"`
	ContactEmail    string    `json:"contactEmail" db:"contact_email"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// RemainingMinutes returns the unused balance, clamped at zero so overage
// never surfaces as a negative number.
func (c *Company) RemainingMinutes() int {
	remaining := c.MinutesIncluded - c.MinutesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOverLimit reports whether the company has consumed past its plan.
func (c *Company) IsOverLimit() bool {
	return c.MinutesUsed > c.MinutesIncluded
}

// Employee links a person to their company's entitlement.
type Employee struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"companyId" db:"company_id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"fullName" db:"full_name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
