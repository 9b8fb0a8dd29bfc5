package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/libs/db"
)

const appointmentColumns = `
	id::text, business_id::text, service_id::text, staff_id::text,
	customer_name, customer_email, customer_phone,
	starts_at, ends_at, status, recurring_id::text,
	COALESCE(amount::text, ''), COALESCE(deposit::text, ''), notes, canceled_at, created_at, updated_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// AcquireSlotLock serializes conflict-check-then-write per (business, staff,
// local date). Advisory, transaction-scoped: released automatically at
// commit/rollback.
func (r *AppointmentRepository) AcquireSlotLock(ctx context.Context, tx pgx.Tx, businessID string, staffID *string, day string) error {
	staffKey := ""
	if staffID != nil {
		staffKey = *staffID
	}
	key := businessID + ":" + staffKey + ":" + day
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	return nil
}

// TryTemplateLock guards same-template expansion. Non-blocking: a false return
// means another expansion of this template holds the lock.
func (r *AppointmentRepository) TryTemplateLock(ctx context.Context, tx pgx.Tx, templateID string) (bool, error) {
	var got bool
	err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`, "recurring:"+templateID).Scan(&got)
	if err != nil {
		return false, fmt.Errorf("try template lock: %w", err)
	}
	return got, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, q Querier, appt *model.Appointment) error {
	err := q.QueryRow(ctx, `
		INSERT INTO appointments
			(business_id, service_id, staff_id, customer_name, customer_email, customer_phone,
			 starts_at, ends_at, status, recurring_id, amount, deposit, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::numeric, NULLIF($12, '')::numeric, $13)
		RETURNING id::text, created_at, updated_at
	`, appt.BusinessID, appt.ServiceID, appt.StaffID,
		appt.Customer.Name, appt.Customer.Email, appt.Customer.Phone,
		appt.StartsAt, appt.EndsAt, appt.Status, appt.RecurringID,
		appt.Amount, appt.Deposit, appt.Notes,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, q Querier, businessID, id string) (model.Appointment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND id = $2
	`, businessID, id)
	return scanAppointmentRow(row)
}

// GetForUpdate row-locks the appointment for the duration of the transaction.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, businessID, id string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, businessID, id)
	return scanAppointmentRow(row)
}

func (r *AppointmentRepository) UpdateTimes(ctx context.Context, q Querier, id string, startsAt, endsAt time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE appointments
		SET starts_at = $2, ends_at = $3, updated_at = now()
		WHERE id = $1
	`, id, startsAt, endsAt)
	if err != nil {
		return fmt.Errorf("update appointment times: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, q Querier, id string) (time.Time, error) {
	var canceledAt time.Time
	err := q.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'canceled', canceled_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING canceled_at
	`, id).Scan(&canceledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, model.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("cancel appointment: %w", err)
	}
	return canceledAt, nil
}

// ListOverlapping implements the half-open overlap query over blocking
// appointments. A nil staffID matches only staff-less appointments: staff-less
// bookings never conflict with staff-assigned ones.
func (r *AppointmentRepository) ListOverlapping(ctx context.Context, q Querier, businessID string, staffID *string, start, end time.Time, excludeID *string) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND staff_id IS NOT DISTINCT FROM $2
			AND status IN ('pending', 'confirmed')
			AND starts_at < $4
			AND ends_at > $3
			AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY starts_at
	`, businessID, staffID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, businessID string, from, to time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND starts_at >= $2
			AND starts_at < $3
		ORDER BY starts_at
		LIMIT $4
	`, businessID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ExistsForTemplateStart backs the expander's idempotency check.
func (r *AppointmentRepository) ExistsForTemplateStart(ctx context.Context, q Querier, templateID string, startsAt time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE recurring_id = $1 AND starts_at = $2
		)
	`, templateID, startsAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists for template start: %w", err)
	}
	return exists, nil
}

// CancelFutureForTemplate cancels the template's future non-terminal
// appointments and returns their ids. Past appointments are left untouched.
func (r *AppointmentRepository) CancelFutureForTemplate(ctx context.Context, q Querier, templateID string, now time.Time) ([]string, error) {
	rows, err := q.Query(ctx, `
		UPDATE appointments
		SET status = 'canceled', canceled_at = now(), updated_at = now()
		WHERE recurring_id = $1
			AND starts_at > $2
			AND status IN ('pending', 'confirmed')
		RETURNING id::text
	`, templateID, now)
	if err != nil {
		return nil, fmt.Errorf("cancel future for template: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *AppointmentRepository) CountBlockingInRange(ctx context.Context, businessID string, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE business_id = $1
			AND status IN ('pending', 'confirmed')
			AND starts_at >= $2
			AND starts_at < $3
	`, businessID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count blocking in range: %w", err)
	}
	return n, nil
}

func scanAppointmentRow(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.StaffID,
		&a.Customer.Name,
		&a.Customer.Email,
		&a.Customer.Phone,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.RecurringID,
		&a.Amount,
		&a.Deposit,
		&a.Notes,
		&a.CanceledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("scan appointment: %w", err)
	}
	return a, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID,
			&a.BusinessID,
			&a.ServiceID,
			&a.StaffID,
			&a.Customer.Name,
			&a.Customer.Email,
			&a.Customer.Phone,
			&a.StartsAt,
			&a.EndsAt,
			&a.Status,
			&a.RecurringID,
			&a.Amount,
			&a.Deposit,
			&a.Notes,
			&a.CanceledAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
