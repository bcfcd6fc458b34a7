package models

import "time"

// Specialist represents a wellness practitioner. RateTier drives both the
// minute multiplier charged to companies and the hourly payout rate.
type Specialist struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"fullName" db:"full_name"`
	RateTier  string    `json:"rateTier" db:"rate_tier"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
