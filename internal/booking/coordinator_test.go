package booking

import (
	"testing"

	"github.com/ayoubkh/schedula/internal/model"
)

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		name    string
		deposit string
		want    model.AppointmentStatus
	}{
		{"no deposit", "", model.StatusConfirmed},
		{"zero deposit", "0", model.StatusConfirmed},
		{"zero decimal deposit", "0.00", model.StatusConfirmed},
		{"deposit due", "15.00", model.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := model.Service{Deposit: tt.deposit}
			if got := initialStatus(svc); got != tt.want {
				t.Errorf("initialStatus(deposit=%q) = %q, want %q", tt.deposit, got, tt.want)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	blocking := map[model.AppointmentStatus]bool{
		model.StatusPending:   true,
		model.StatusConfirmed: true,
		model.StatusCanceled:  false,
		model.StatusCompleted: false,
		model.StatusNoShow:    false,
	}
	for status, want := range blocking {
		if got := status.Blocking(); got != want {
			t.Errorf("%s.Blocking() = %v, want %v", status, got, want)
		}
	}

	reschedulable := map[model.AppointmentStatus]bool{
		model.StatusPending:   true,
		model.StatusConfirmed: true,
		model.StatusCanceled:  false,
		model.StatusCompleted: false,
		model.StatusNoShow:    false,
	}
	for status, want := range reschedulable {
		a := model.Appointment{Status: status}
		if got := a.CanReschedule(); got != want {
			t.Errorf("CanReschedule with status %s = %v, want %v", status, got, want)
		}
	}
}
