package model

import "time"

// AvailabilityRule is one weekly recurring open interval. Several rules may
// share a weekday (split shifts). Times are minutes from local midnight in the
// business timezone.
type AvailabilityRule struct {
	ID          string
	BusinessID  string
	StaffID     *string // nil = business-wide rule
	Weekday     int     // 0 = Sunday .. 6 = Saturday
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
}

func (r AvailabilityRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return ErrInvalidInput
	}
	if r.StartMinute < 0 || r.EndMinute > 24*60 || r.StartMinute >= r.EndMinute {
		return ErrInvalidInput
	}
	return nil
}

// AvailabilityException is a per-date override. At most one row exists per
// (business, staff-or-null, date); upserts are last-write-wins.
type AvailabilityException struct {
	ID            string
	BusinessID    string
	StaffID       *string
	Date          time.Time // date component only, business-local
	IsClosed      bool
	OverrideStart *int // minutes from midnight; both set or both nil
	OverrideEnd   *int
	Reason        string
	CreatedAt     time.Time
}

func (e AvailabilityException) Validate() error {
	if e.IsClosed {
		return nil
	}
	if (e.OverrideStart == nil) != (e.OverrideEnd == nil) {
		return ErrInvalidInput
	}
	if e.OverrideStart != nil && *e.OverrideStart >= *e.OverrideEnd {
		return ErrInvalidInput
	}
	return nil
}
