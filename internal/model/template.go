package model

import "time"

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi_weekly"
	FrequencyMonthly  Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly:
		return Frequency(s), nil
	}
	return "", ErrInvalidInput
}

// RecurringTemplate is the pattern from which concrete appointments are
// expanded. Generated appointments point back via Appointment.RecurringID but
// the template does not own their lifecycle: deactivation cancels future
// instances and leaves past ones untouched.
type RecurringTemplate struct {
	ID         string
	BusinessID string
	ServiceID  string
	StaffID    *string
	Customer   Customer
	Frequency  Frequency
	StartDate  time.Time  // date component, business-local
	EndDate    *time.Time // inclusive bound, optional
	TimeOfDay  string     // "15:04", business-local
	IsActive   bool
	CreatedAt  time.Time
}
