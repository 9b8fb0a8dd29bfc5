package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Blocking reports whether an appointment in this status occupies its interval
// for conflict purposes.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether the status admits no further scheduling transitions.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCanceled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Appointment struct {
	ID          string
	BusinessID  string
	ServiceID   string
	StaffID     *string // nil for staff-less appointments
	Customer    Customer
	StartsAt    time.Time
	EndsAt      time.Time
	Status      AppointmentStatus
	RecurringID *string // weak back-reference; never implies ownership
	Amount      string
	Deposit     string
	Notes       string
	CanceledAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanReschedule reports whether timing may still be changed.
func (a Appointment) CanReschedule() bool {
	return !a.Status.Terminal()
}
