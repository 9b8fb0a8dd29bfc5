package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
)

// Standard reminder offsets before the appointment start.
var standardOffsets = []struct {
	typ    model.ReminderType
	before time.Duration
}{
	{model.Reminder24Hour, 24 * time.Hour},
	{model.Reminder1Hour, time.Hour},
}

// ComputeStandard derives the standard reminder set for an appointment.
// Reminders whose fire-time has already passed are not produced at all, so a
// booking made ten minutes before its start gets no reminders.
func ComputeStandard(appt model.Appointment, channel string, now time.Time) []model.Reminder {
	if channel == "" {
		channel = "email"
	}
	var out []model.Reminder
	for _, o := range standardOffsets {
		at := appt.StartsAt.Add(-o.before)
		if !at.After(now) {
			continue
		}
		out = append(out, model.Reminder{
			AppointmentID: appt.ID,
			Type:          o.typ,
			ScheduledFor:  at,
			Status:        model.ReminderPending,
			Channel:       channel,
			Message:       fmt.Sprintf("Reminder: your appointment starts at %s", appt.StartsAt.UTC().Format(time.RFC3339)),
		})
	}
	return out
}

// Scheduler persists reminder rows for appointments.
type Scheduler struct {
	reminders *storage.ReminderRepository
}

func NewScheduler(reminders *storage.ReminderRepository) *Scheduler {
	return &Scheduler{reminders: reminders}
}

// ScheduleStandard inserts the standard reminders for appt, typically inside
// the booking transaction. Returns how many rows were actually created; the
// unique key on (appointment, type) absorbs repeats.
func (s *Scheduler) ScheduleStandard(ctx context.Context, q storage.Querier, appt model.Appointment, channel string, now time.Time) (int, error) {
	created := 0
	for _, rem := range ComputeStandard(appt, channel, now) {
		rem := rem
		ok, err := s.reminders.Insert(ctx, q, &rem)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
