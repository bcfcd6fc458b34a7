package models

import "time"

// Booking status lifecycle. Only approved bookings can be completed, and
// only completed ones count toward consumption and earnings.
const (
	BookingStatusRequested = "requested"
	BookingStatusApproved  = "approved"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a scheduled session between an employee and a specialist.
type Booking struct {
	ID              string     `json:"id" db:"id"`
	EmployeeID      string     `json:"employeeId" db:"employee_id"`
	CompanyID       string     `json:"companyId" db:"company_id"`
	SpecialistID    string     `json:"specialistId" db:"specialist_id"`
	Status          string     `json:"status" db:"status"`
	DurationMinutes int        `json:"durationMinutes" db:"duration_minutes"`
	MinutesCharged  int        `json:"minutesCharged" db:"minutes_charged"`
	ScheduledAt     time.Time  `json:"scheduledAt" db:"scheduled_at"`
	CompletedAt     *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// IsCompletable reports whether the booking can transition to completed.
func (b *Booking) IsCompletable() bool {
	return b.Status == BookingStatusApproved
}
