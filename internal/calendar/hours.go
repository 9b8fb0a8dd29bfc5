package calendar

import (
	"sort"
	"time"

	"github.com/ayoubkh/schedula/internal/availability"
	"github.com/ayoubkh/schedula/internal/model"
)

// DayHours is the effective availability of a business (or one staff member)
// on a single date.
type DayHours struct {
	Closed  bool
	Windows []availability.Window
}

// ResolveDay turns weekly rules plus an optional per-date exception into the
// effective open windows for the given business-local date.
//
// Precedence: a closed exception wins over everything; an exception with
// override times becomes the single window; otherwise staff-specific rules
// replace (not extend) business-wide rules; no matching rule means closed.
func ResolveDay(rules []model.AvailabilityRule, exc *model.AvailabilityException, day time.Time, loc *time.Location, staffID *string) DayHours {
	if exc != nil {
		if exc.IsClosed {
			return DayHours{Closed: true}
		}
		if exc.OverrideStart != nil && exc.OverrideEnd != nil {
			return DayHours{Windows: []availability.Window{
				windowAt(day, loc, *exc.OverrideStart, *exc.OverrideEnd),
			}}
		}
	}

	weekday := int(day.Weekday())
	var staffRules, businessRules []model.AvailabilityRule
	for _, r := range rules {
		if r.Weekday != weekday {
			continue
		}
		switch {
		case r.StaffID == nil:
			businessRules = append(businessRules, r)
		case staffID != nil && *r.StaffID == *staffID:
			staffRules = append(staffRules, r)
		}
	}

	effective := businessRules
	if len(staffRules) > 0 {
		effective = staffRules
	}
	if len(effective) == 0 {
		return DayHours{Closed: true}
	}

	windows := make([]availability.Window, 0, len(effective))
	for _, r := range effective {
		windows = append(windows, windowAt(day, loc, r.StartMinute, r.EndMinute))
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start.Before(windows[j].Start) })
	return DayHours{Windows: windows}
}

// windowAt anchors minute offsets to the local calendar date. Going through
// time.Date keeps wall-clock semantics across DST transitions.
func windowAt(day time.Time, loc *time.Location, startMin, endMin int) availability.Window {
	y, m, d := day.Date()
	return availability.Window{
		Start: time.Date(y, m, d, startMin/60, startMin%60, 0, 0, loc),
		End:   time.Date(y, m, d, endMin/60, endMin%60, 0, 0, loc),
	}
}
