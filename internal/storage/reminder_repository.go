package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/libs/db"
)

const reminderColumns = `
	id::text, appointment_id::text, type, scheduled_for, status, channel, message,
	COALESCE(last_error, ''), attempts, next_attempt_at, created_at`

type ReminderRepository struct {
	pool *db.Pool
}

func NewReminderRepository(pool *db.Pool) *ReminderRepository {
	return &ReminderRepository{pool: pool}
}

// Insert creates a reminder row. The unique key on (appointment, type) makes
// re-scheduling a no-op; the bool reports whether a row was actually created.
func (r *ReminderRepository) Insert(ctx context.Context, q Querier, rem *model.Reminder) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO reminders (appointment_id, type, scheduled_for, status, channel, message, next_attempt_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $3)
		ON CONFLICT (appointment_id, type) DO NOTHING
	`, rem.AppointmentID, rem.Type, rem.ScheduledFor, rem.Channel, rem.Message)
	if err != nil {
		return false, fmt.Errorf("insert reminder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LeaseDue returns pending reminders whose fire-time has passed, capped at
// limit, and pushes their next_attempt_at forward by backoff so overlapping
// pollers (or a crashed dispatcher) re-see them only after the lease expires.
// SKIP LOCKED keeps concurrent invocations from double-leasing a row.
func (r *ReminderRepository) LeaseDue(ctx context.Context, q Querier, now time.Time, limit int, backoff time.Duration) ([]model.Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `
		UPDATE reminders
		SET attempts = attempts + 1,
			next_attempt_at = $1 + make_interval(secs => $3)
		WHERE id IN (
			SELECT id FROM reminders
			WHERE status = 'pending'
				AND scheduled_for <= $1
				AND next_attempt_at <= $1
			ORDER BY scheduled_for
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+reminderColumns,
		now, limit, backoff.Seconds())
	if err != nil {
		return nil, fmt.Errorf("lease due reminders: %w", err)
	}
	defer rows.Close()

	var out []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(
			&rem.ID,
			&rem.AppointmentID,
			&rem.Type,
			&rem.ScheduledFor,
			&rem.Status,
			&rem.Channel,
			&rem.Message,
			&rem.LastError,
			&rem.Attempts,
			&rem.NextAttemptAt,
			&rem.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rem)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string) error {
	return r.setTerminal(ctx, id, model.ReminderSent, "")
}

func (r *ReminderRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	return r.setTerminal(ctx, id, model.ReminderFailed, lastError)
}

func (r *ReminderRepository) setTerminal(ctx context.Context, id string, status model.ReminderStatus, lastError string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminders
		SET status = $2, last_error = NULLIF($3, '')
		WHERE id = $1 AND status = 'pending'
	`, id, status, lastError)
	if err != nil {
		return fmt.Errorf("mark reminder %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SkipPendingForAppointment invalidates pending reminders when the appointment
// is canceled. Sent/failed reminders keep their history.
func (r *ReminderRepository) SkipPendingForAppointment(ctx context.Context, q Querier, appointmentID string) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE reminders
		SET status = 'skipped'
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("skip reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ShiftPendingForAppointment moves pending fire-times by the reschedule delta,
// preserving each reminder's offset relative to the appointment start. Shifted
// times already in the past are skipped, mirroring creation-time behavior.
func (r *ReminderRepository) ShiftPendingForAppointment(ctx context.Context, q Querier, appointmentID string, delta time.Duration, now time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE reminders
		SET scheduled_for = scheduled_for + make_interval(secs => $2),
			next_attempt_at = scheduled_for + make_interval(secs => $2),
			status = CASE
				WHEN scheduled_for + make_interval(secs => $2) <= $3 THEN 'skipped'
				ELSE status
			END
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID, delta.Seconds(), now)
	if err != nil {
		return fmt.Errorf("shift reminders: %w", err)
	}
	return nil
}
