package reminders

import (
	"context"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/internal/storage"
	"github.com/ayoubkh/schedula/libs/db"
)

const maxDueBatch = 200

// Service exposes the dispatcher-facing reminder operations: lease what is
// due, then report delivery outcomes.
type Service struct {
	pool      *db.Pool
	reminders *storage.ReminderRepository
	backoff   time.Duration
}

func NewService(pool *db.Pool, reminders *storage.ReminderRepository, backoff time.Duration) *Service {
	if backoff <= 0 {
		backoff = 5 * time.Minute
	}
	return &Service{pool: pool, reminders: reminders, backoff: backoff}
}

// Due leases up to limit pending reminders whose fire-time has passed. Each
// call is safe to repeat: leased rows stay invisible until the lease expires.
func (s *Service) Due(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	return s.reminders.LeaseDue(ctx, s.pool, now, clampDueLimit(limit), s.backoff)
}

// clampDueLimit bounds one lease batch: unset or oversized requests get the
// hard cap so a single poll can never drain the table.
func clampDueLimit(limit int) int {
	if limit <= 0 || limit > maxDueBatch {
		return maxDueBatch
	}
	return limit
}

func (s *Service) MarkSent(ctx context.Context, id string) error {
	return s.reminders.MarkSent(ctx, id)
}

func (s *Service) MarkFailed(ctx context.Context, id, reason string) error {
	return s.reminders.MarkFailed(ctx, id, reason)
}
