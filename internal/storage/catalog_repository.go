package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ayoubkh/schedula/internal/model"
	"github.com/ayoubkh/schedula/libs/db"
)

// CatalogRepository reads business/service/staff records. These are owned by
// the surrounding platform; the engine never writes them.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone, owner_id::text
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Timezone, &b.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Business{}, model.ErrNotFound
		}
		return model.Business{}, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, buffer_before_minutes, buffer_after_minutes,
			COALESCE(price::text, ''), COALESCE(deposit::text, ''), max_per_slot, is_active
		FROM services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(
		&s.ID,
		&s.BusinessID,
		&s.Name,
		&s.DurationMins,
		&s.BufferBefore,
		&s.BufferAfter,
		&s.Price,
		&s.Deposit,
		&s.MaxPerSlot,
		&s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, model.ErrNotFound
		}
		return model.Service{}, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

func (r *CatalogRepository) GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, is_active
		FROM staff
		WHERE business_id = $1 AND id = $2
	`, businessID, staffID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Staff{}, model.ErrNotFound
		}
		return model.Staff{}, fmt.Errorf("get staff: %w", err)
	}
	return s, nil
}

func (r *CatalogRepository) CountActiveStaff(ctx context.Context, businessID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM staff
		WHERE business_id = $1 AND is_active
	`, businessID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staff: %w", err)
	}
	return n, nil
}
