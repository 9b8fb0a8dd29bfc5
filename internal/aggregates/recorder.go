package aggregates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

// Recorder maintains the per-business monthly booking counter. Counters are
// recomputed from the appointment table rather than incremented, so they
// self-heal after any missed update. Recompute runs outside the booking
// transaction; a failure here is logged and never fails the booking.
type Recorder struct {
	pool    *db.Pool
	appts   *storage.AppointmentRepository
	catalog *storage.CatalogRepository
	logger  *slog.Logger
}

func NewRecorder(pool *db.Pool, appts *storage.AppointmentRepository, catalog *storage.CatalogRepository, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, appts: appts, catalog: catalog, logger: logger}
}

// BookingsChanged recomputes the counter for the month containing at.
func (r *Recorder) BookingsChanged(ctx context.Context, businessID string, at time.Time) {
	if _, err := r.recompute(ctx, businessID, at); err != nil {
		r.logger.Error("monthly booking counter recompute failed",
			"business_id", businessID, "month", monthKey(at), "err", err)
	}
}

func (r *Recorder) recompute(ctx context.Context, businessID string, at time.Time) (int, error) {
	from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	n, err := r.appts.CountBlockingInRange(ctx, businessID, from, to)
	if err != nil {
		return 0, err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO business_booking_stats (business_id, month, bookings_count, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (business_id, month) DO UPDATE
		SET bookings_count = EXCLUDED.bookings_count, updated_at = now()
	`, businessID, monthKey(at), n)
	if err != nil {
		return 0, fmt.Errorf("upsert booking stats: %w", err)
	}
	return n, nil
}

// Stats is a read-side snapshot of the derived counters for one month.
type Stats struct {
	BusinessID    string `json:"business_id"`
	Month         string `json:"month"`
	BookingsCount int    `json:"bookings_count"`
	StaffCount    int    `json:"staff_count"`
}

// Snapshot recomputes both counters from the source tables and persists the
// booking counter on the way out.
func (r *Recorder) Snapshot(ctx context.Context, businessID string, at time.Time) (Stats, error) {
	bookings, err := r.recompute(ctx, businessID, at)
	if err != nil {
		return Stats{}, err
	}
	staff, err := r.catalog.CountActiveStaff(ctx, businessID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		BusinessID:    businessID,
		Month:         monthKey(at),
		BookingsCount: bookings,
		StaffCount:    staff,
	}, nil
}

func monthKey(at time.Time) string {
	return at.UTC().Format("2006-01")
}
