package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
)

// Candidate is a proposed appointment interval to test against existing
// bookings.
type Candidate struct {
	BusinessID string
	ServiceID  string
	StaffID    *string // nil scopes the check to staff-less appointments only
	Start      time.Time
	End        time.Time
	// ExcludeAppointmentID lets a reschedule ignore the appointment being moved.
	ExcludeAppointmentID *string
}

// OverlapSource lists blocking (pending/confirmed) appointments whose interval
// overlaps [start, end) for the business/staff scope.
type OverlapSource interface {
	ListOverlapping(ctx context.Context, q storage.Querier, businessID string, staffID *string, start, end time.Time, excludeID *string) ([]model.Appointment, error)
}

type Detector struct {
	appts OverlapSource
}

func NewDetector(appts OverlapSource) *Detector {
	return &Detector{appts: appts}
}

// Check reports whether the candidate conflicts with an existing booking.
// It must run on the same transaction that performs the subsequent write;
// the coordinator takes a per-(business,staff,date) advisory lock first so two
// concurrent checks for overlapping intervals serialize.
func (d *Detector) Check(ctx context.Context, q storage.Querier, c Candidate, maxPerSlot int) (bool, error) {
	if !c.End.After(c.Start) {
		return false, fmt.Errorf("%w: end must be after start", model.ErrInvalidInput)
	}
	overlapping, err := d.appts.ListOverlapping(ctx, q, c.BusinessID, c.StaffID, c.Start, c.End, c.ExcludeAppointmentID)
	if err != nil {
		return false, fmt.Errorf("list overlapping: %w", err)
	}
	return Blocks(c, overlapping, maxPerSlot), nil
}

// Blocks applies the group-capacity rule to a set of overlapping blocking
// appointments. With max-per-slot <= 1 any overlap blocks. With a larger
// capacity, overlaps that are the same service on the identical interval count
// toward the capacity; any other overlap still blocks.
func Blocks(c Candidate, overlapping []model.Appointment, maxPerSlot int) bool {
	if maxPerSlot <= 1 {
		return len(overlapping) > 0
	}

	sameSlot := 0
	for _, a := range overlapping {
		if a.ServiceID == c.ServiceID && a.StartsAt.Equal(c.Start) && a.EndsAt.Equal(c.End) {
			sameSlot++
			continue
		}
		return true
	}
	return sameSlot >= maxPerSlot
}
