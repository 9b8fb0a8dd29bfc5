package model

import "time"

type ReminderType string

const (
	Reminder24Hour ReminderType = "24_hour"
	Reminder1Hour  ReminderType = "1_hour"
	ReminderCustom ReminderType = "custom"
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
	// ReminderSkipped marks reminders invalidated by an appointment
	// cancellation. They are never handed to the dispatcher.
	ReminderSkipped ReminderStatus = "skipped"
)

type Reminder struct {
	ID            string
	AppointmentID string
	Type          ReminderType
	ScheduledFor  time.Time
	Status        ReminderStatus
	Channel       string // email / sms / whatsapp
	Message       string
	LastError     string
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
