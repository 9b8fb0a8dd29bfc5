package reminders

import (
	"testing"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

func TestComputeStandardBothOffsets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	appt := model.Appointment{ID: "a1", StartsAt: now.Add(48 * time.Hour)}

	rems := ComputeStandard(appt, "sms", now)
	if len(rems) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(rems))
	}
	if rems[0].Type != model.Reminder24Hour || !rems[0].ScheduledFor.Equal(appt.StartsAt.Add(-24*time.Hour)) {
		t.Errorf("bad 24h reminder: %+v", rems[0])
	}
	if rems[1].Type != model.Reminder1Hour || !rems[1].ScheduledFor.Equal(appt.StartsAt.Add(-time.Hour)) {
		t.Errorf("bad 1h reminder: %+v", rems[1])
	}
	for _, r := range rems {
		if r.Channel != "sms" {
			t.Errorf("channel = %q, want sms", r.Channel)
		}
		if r.Status != model.ReminderPending {
			t.Errorf("status = %q, want pending", r.Status)
		}
	}
}

func TestComputeStandardSkipsPastOffsets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Within 24h of start: only the 1-hour reminder remains.
	appt := model.Appointment{ID: "a1", StartsAt: now.Add(3 * time.Hour)}
	rems := ComputeStandard(appt, "", now)
	if len(rems) != 1 || rems[0].Type != model.Reminder1Hour {
		t.Fatalf("expected only 1h reminder, got %+v", rems)
	}
	if rems[0].Channel != "email" {
		t.Errorf("default channel = %q, want email", rems[0].Channel)
	}

	// Booked ten minutes before start: nothing to schedule.
	appt.StartsAt = now.Add(10 * time.Minute)
	if rems := ComputeStandard(appt, "", now); len(rems) != 0 {
		t.Fatalf("expected no reminders, got %+v", rems)
	}
}

func TestComputeStandardBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Fire-time exactly now is already past.
	appt := model.Appointment{ID: "a1", StartsAt: now.Add(time.Hour)}
	if rems := ComputeStandard(appt, "", now); len(rems) != 0 {
		t.Fatalf("expected no reminders at exact boundary, got %+v", rems)
	}
}
