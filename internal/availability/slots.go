package availability

import "time"

// Window is a contiguous open interval of availability on a given date.
type Window struct {
	Start time.Time
	End   time.Time
}

// Slots returns candidate start times stepping through each window, emitting a
// start t only while t + duration still fits inside the window (half-open: a
// slot ending exactly at window.End is valid).
//
// The result is deterministic and derived from the windows alone; it is not
// filtered against existing bookings. Callers post-filter with the conflict
// detector. Split-shift days yield slots from each window without dedupe.
func Slots(windows []Window, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}

	var slots []time.Time
	for _, w := range windows {
		if !w.End.After(w.Start) {
			continue
		}
		for t := w.Start; !t.Add(duration).After(w.End); t = t.Add(step) {
			slots = append(slots, t)
		}
	}
	return slots
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Touching boundaries (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
