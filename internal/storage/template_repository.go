package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/libs/db"
)

const templateColumns = `
	id::text, business_id::text, service_id::text, staff_id::text,
	customer_name, customer_email, customer_phone,
	frequency, start_date, end_date, to_char(time_of_day, 'HH24:MI'), is_active, created_at`

type TemplateRepository struct {
	pool *db.Pool
}

func NewTemplateRepository(pool *db.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func (r *TemplateRepository) Create(ctx context.Context, tmpl *model.RecurringTemplate) error {
	if _, err := model.ParseFrequency(string(tmpl.Frequency)); err != nil {
		return err
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO recurring_templates
			(business_id, service_id, staff_id, customer_name, customer_email, customer_phone,
			 frequency, start_date, end_date, time_of_day, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::time, $11)
		RETURNING id::text, created_at
	`, tmpl.BusinessID, tmpl.ServiceID, tmpl.StaffID,
		tmpl.Customer.Name, tmpl.Customer.Email, tmpl.Customer.Phone,
		tmpl.Frequency, tmpl.StartDate, tmpl.EndDate, tmpl.TimeOfDay, tmpl.IsActive,
	).Scan(&tmpl.ID, &tmpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (model.RecurringTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE id = $1
	`, id)
	return scanTemplateRow(row)
}

func (r *TemplateRepository) ListActive(ctx context.Context) ([]model.RecurringTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM recurring_templates
		WHERE is_active
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var out []model.RecurringTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *TemplateRepository) SetActive(ctx context.Context, q Querier, id string, active bool) error {
	tag, err := q.Exec(ctx, `
		UPDATE recurring_templates
		SET is_active = $2
		WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanTemplateRow(row pgx.Row) (model.RecurringTemplate, error) {
	var t model.RecurringTemplate
	err := row.Scan(
		&t.ID,
		&t.BusinessID,
		&t.ServiceID,
		&t.StaffID,
		&t.Customer.Name,
		&t.Customer.Email,
		&t.Customer.Phone,
		&t.Frequency,
		&t.StartDate,
		&t.EndDate,
		&t.TimeOfDay,
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RecurringTemplate{}, model.ErrNotFound
		}
		return model.RecurringTemplate{}, fmt.Errorf("scan template: %w", err)
	}
	return t, nil
}

func scanTemplate(rows pgx.Rows) (model.RecurringTemplate, error) {
	var t model.RecurringTemplate
	if err := rows.Scan(
		&t.ID,
		&t.BusinessID,
		&t.ServiceID,
		&t.StaffID,
		&t.Customer.Name,
		&t.Customer.Email,
		&t.Customer.Phone,
		&t.Frequency,
		&t.StartDate,
		&t.EndDate,
		&t.TimeOfDay,
		&t.IsActive,
		&t.CreatedAt,
	); err != nil {
		return model.RecurringTemplate{}, fmt.Errorf("scan template: %w", err)
	}
	return t, nil
}
