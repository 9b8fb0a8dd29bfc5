package conflict

import (
	"testing"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

func appt(serviceID string, start, end time.Time) model.Appointment {
	return model.Appointment{
		ServiceID: serviceID,
		StartsAt:  start,
		EndsAt:    end,
		Status:    model.StatusConfirmed,
	}
}

func TestBlocks_SingleCapacity(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	c := Candidate{ServiceID: "svc-1", Start: start, End: end}

	if Blocks(c, nil, 1) {
		t.Fatal("no overlaps should not block")
	}
	if !Blocks(c, []model.Appointment{appt("svc-1", start.Add(30*time.Minute), end.Add(30*time.Minute))}, 1) {
		t.Fatal("overlap should block at capacity 1")
	}
	if !Blocks(c, []model.Appointment{appt("svc-2", start, end)}, 0) {
		t.Fatal("zero capacity treated as 1")
	}
}

func TestBlocks_GroupCapacity(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	c := Candidate{ServiceID: "yoga", Start: start, End: end}

	same := appt("yoga", start, end)

	// Two of three seats taken: still bookable.
	if Blocks(c, []model.Appointment{same, same}, 3) {
		t.Fatal("expected capacity 3 to admit a third booking")
	}
	// Full class blocks.
	if !Blocks(c, []model.Appointment{same, same, same}, 3) {
		t.Fatal("expected full class to block")
	}
	// An overlapping booking for a different service blocks regardless of capacity.
	other := appt("massage", start.Add(15*time.Minute), end)
	if !Blocks(c, []model.Appointment{same, other}, 3) {
		t.Fatal("expected foreign overlap to block")
	}
	// Same service but shifted interval is not a shared slot.
	shifted := appt("yoga", start.Add(30*time.Minute), end.Add(30*time.Minute))
	if !Blocks(c, []model.Appointment{shifted}, 3) {
		t.Fatal("expected shifted same-service overlap to block")
	}
}
