package recurrence

import (
	"fmt"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
)

// Occurrences computes the concrete start times of a template within
// [from, to), in UTC. Dates advance from the template's start date: +7 days
// for weekly, +14 for bi-weekly; monthly stays anchored to the start date's
// day-of-month, clamped to the last day of shorter months (a template starting
// Jan 31 fires Feb 28/29, then Mar 31 again). The wall-clock time of day is
// interpreted in loc, so occurrences stay at the same local time across DST
// changes.
func Occurrences(tmpl model.RecurringTemplate, loc *time.Location, from, to time.Time) ([]time.Time, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(tmpl.TimeOfDay, "%d:%d", &hh, &mm); err != nil {
		return nil, fmt.Errorf("%w: bad time of day %q", model.ErrInvalidInput, tmpl.TimeOfDay)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return nil, fmt.Errorf("%w: bad time of day %q", model.ErrInvalidInput, tmpl.TimeOfDay)
	}
	if !to.After(from) {
		return nil, nil
	}

	var out []time.Time
	year, month, day := tmpl.StartDate.Date()
	anchorDay := day

	for i := 0; ; i++ {
		var y int
		var m time.Month
		var d int
		switch tmpl.Frequency {
		case model.FrequencyWeekly:
			y, m, d = tmpl.StartDate.AddDate(0, 0, 7*i).Date()
		case model.FrequencyBiWeekly:
			y, m, d = tmpl.StartDate.AddDate(0, 0, 14*i).Date()
		case model.FrequencyMonthly:
			// Normalize month arithmetic by hand: AddDate overflows short
			// months (Jan 31 + 1 month = Mar 2), we clamp instead.
			totalMonths := int(month) - 1 + i
			y = year + totalMonths/12
			m = time.Month(totalMonths%12 + 1)
			d = anchorDay
			if last := daysIn(y, m); d > last {
				d = last
			}
		default:
			return nil, fmt.Errorf("%w: unsupported frequency %q", model.ErrInvalidInput, tmpl.Frequency)
		}

		at := time.Date(y, m, d, hh, mm, 0, 0, loc).UTC()
		if !at.Before(to) {
			break
		}
		if tmpl.EndDate != nil {
			endOfDay := time.Date(tmpl.EndDate.Year(), tmpl.EndDate.Month(), tmpl.EndDate.Day(), 23, 59, 59, 0, loc)
			if at.After(endOfDay.UTC()) {
				break
			}
		}
		if !at.Before(from) {
			out = append(out, at)
		}
	}
	return out, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
