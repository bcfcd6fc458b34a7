// internal/workers/billing/complete-session/models.go
package completesession

type Input struct {
	SessionID string `json:"sessionId"`
}

// Output represents the accounting result of completing a session.
type Output struct {
	SessionID        string `json:"sessionId"`
	CompanyID        string `json:"companyId"`
	Tier             string `json:"tier"`
	MinutesDeducted  int    `json:"minutesDeducted"`
	RemainingMinutes int    `json:"remainingMinutes"`
	Overage          bool   `json:"overage"`
}

// bookingRow is the slice of the bookings table the completion needs.
type bookingRow struct {
	EmployeeID      string
	SpecialistID    string
	DurationMinutes int
	Status          string
}

// sessionAnalyticsDoc is the best-effort document indexed for reporting.
type sessionAnalyticsDoc struct {
	SessionID       string `json:"sessionId"`
	CompanyID       string `json:"companyId"`
	SpecialistID    string `json:"specialistId"`
	Tier            string `json:"tier"`
	DurationMinutes int    `json:"durationMinutes"`
	MinutesDeducted int    `json:"minutesDeducted"`
	CompletedAt     string `json:"completedAt"`
}
