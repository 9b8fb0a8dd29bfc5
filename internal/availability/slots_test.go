package availability

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC) // a Monday
}

func TestSlots_FullDayWindow(t *testing.T) {
	// Open 09:00-17:00, 60 min service, 30 min step:
	// starts 09:00 .. 16:00 inclusive, 16:30 excluded (16:30+60 > 17:00).
	windows := []Window{{Start: at(t, 9, 0), End: at(t, 17, 0)}}
	slots := Slots(windows, 60*time.Minute, 30*time.Minute)

	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
	if !slots[0].Equal(at(t, 9, 0)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0])
	}
	if !slots[len(slots)-1].Equal(at(t, 16, 0)) {
		t.Fatalf("expected last slot 16:00, got %s", slots[len(slots)-1])
	}
}

func TestSlots_ExactFit(t *testing.T) {
	// A slot that exactly fills the window is emitted.
	windows := []Window{{Start: at(t, 9, 0), End: at(t, 10, 0)}}
	slots := Slots(windows, 60*time.Minute, 30*time.Minute)
	if len(slots) != 1 || !slots[0].Equal(at(t, 9, 0)) {
		t.Fatalf("expected single 09:00 slot, got %v", slots)
	}

	// One minute longer no longer fits.
	slots = Slots(windows, 61*time.Minute, 30*time.Minute)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestSlots_SplitShift(t *testing.T) {
	windows := []Window{
		{Start: at(t, 9, 0), End: at(t, 12, 0)},
		{Start: at(t, 14, 0), End: at(t, 17, 0)},
	}
	slots := Slots(windows, 60*time.Minute, 60*time.Minute)
	want := []time.Time{at(t, 9, 0), at(t, 10, 0), at(t, 11, 0), at(t, 14, 0), at(t, 15, 0), at(t, 16, 0)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], slots[i])
		}
	}
}

func TestSlots_Deterministic(t *testing.T) {
	windows := []Window{{Start: at(t, 9, 0), End: at(t, 17, 0)}}
	a := Slots(windows, 45*time.Minute, 30*time.Minute)
	b := Slots(windows, 45*time.Minute, 30*time.Minute)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic slot count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("non-deterministic slot at %d", i)
		}
	}
}

func TestSlots_InvalidArgs(t *testing.T) {
	windows := []Window{{Start: at(t, 9, 0), End: at(t, 17, 0)}}
	if got := Slots(windows, 0, 30*time.Minute); got != nil {
		t.Fatalf("expected nil for zero duration, got %v", got)
	}
	if got := Slots(windows, 30*time.Minute, 0); got != nil {
		t.Fatalf("expected nil for zero step, got %v", got)
	}
	if got := Slots([]Window{{Start: at(t, 17, 0), End: at(t, 9, 0)}}, 30*time.Minute, 30*time.Minute); got != nil {
		t.Fatalf("expected nil for inverted window, got %v", got)
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical", at(t, 10, 0), at(t, 11, 0), at(t, 10, 0), at(t, 11, 0), true},
		{"partial", at(t, 10, 0), at(t, 11, 0), at(t, 10, 30), at(t, 11, 30), true},
		{"contained", at(t, 10, 0), at(t, 12, 0), at(t, 10, 30), at(t, 11, 0), true},
		{"touching end-start", at(t, 10, 0), at(t, 11, 0), at(t, 11, 0), at(t, 12, 0), false},
		{"touching start-end", at(t, 11, 0), at(t, 12, 0), at(t, 10, 0), at(t, 11, 0), false},
		{"disjoint", at(t, 9, 0), at(t, 10, 0), at(t, 11, 0), at(t, 12, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}
