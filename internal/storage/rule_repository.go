package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/libs/db"
)

// RuleRepository persists weekly availability rules and per-date exceptions.
type RuleRepository struct {
	pool *db.Pool
}

func NewRuleRepository(pool *db.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.ID = uuid.NewString()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO availability_rules (id, business_id, staff_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, rule.ID, rule.BusinessID, rule.StaffID, rule.Weekday, rule.StartMinute, rule.EndMinute).Scan(&rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) ListRules(ctx context.Context, businessID string, staffID *string) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, staff_id::text, weekday, start_minute, end_minute, created_at
		FROM availability_rules
		WHERE business_id = $1
			AND ($2::uuid IS NULL OR staff_id = $2)
		ORDER BY weekday, start_minute
	`, businessID, staffID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListRulesForWeekday returns the business-wide rows plus the given staff's
// rows for one weekday. Precedence between the two groups is resolved by the
// calendar package, not here.
func (r *RuleRepository) ListRulesForWeekday(ctx context.Context, businessID string, staffID *string, weekday int) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, staff_id::text, weekday, start_minute, end_minute, created_at
		FROM availability_rules
		WHERE business_id = $1
			AND weekday = $2
			AND (staff_id IS NULL OR staff_id = $3)
		ORDER BY start_minute
	`, businessID, weekday, staffID)
	if err != nil {
		return nil, fmt.Errorf("list rules for weekday: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *RuleRepository) DeleteRule(ctx context.Context, businessID, ruleID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_rules
		WHERE business_id = $1 AND id = $2
	`, businessID, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpsertException is last-write-wins on (business, staff-or-null, date).
func (r *RuleRepository) UpsertException(ctx context.Context, exc *model.AvailabilityException) error {
	if err := exc.Validate(); err != nil {
		return err
	}
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_exceptions (id, business_id, staff_id, date, is_closed, override_start, override_end, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (business_id, staff_id, date) DO UPDATE
		SET is_closed = EXCLUDED.is_closed,
			override_start = EXCLUDED.override_start,
			override_end = EXCLUDED.override_end,
			reason = EXCLUDED.reason
	`, exc.ID, exc.BusinessID, exc.StaffID, exc.Date, exc.IsClosed, exc.OverrideStart, exc.OverrideEnd, exc.Reason)
	if err != nil {
		return fmt.Errorf("upsert exception: %w", err)
	}
	return nil
}

func (r *RuleRepository) GetException(ctx context.Context, businessID string, staffID *string, date time.Time) (*model.AvailabilityException, error) {
	var exc model.AvailabilityException
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, staff_id::text, date, is_closed, override_start, override_end, reason, created_at
		FROM availability_exceptions
		WHERE business_id = $1
			AND staff_id IS NOT DISTINCT FROM $2
			AND date = $3
	`, businessID, staffID, date).Scan(
		&exc.ID,
		&exc.BusinessID,
		&exc.StaffID,
		&exc.Date,
		&exc.IsClosed,
		&exc.OverrideStart,
		&exc.OverrideEnd,
		&exc.Reason,
		&exc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exception: %w", err)
	}
	return &exc, nil
}

func scanRules(rows pgx.Rows) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	for rows.Next() {
		var rule model.AvailabilityRule
		if err := rows.Scan(
			&rule.ID,
			&rule.BusinessID,
			&rule.StaffID,
			&rule.Weekday,
			&rule.StartMinute,
			&rule.EndMinute,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
