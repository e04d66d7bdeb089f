package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/internal/service"
)

// CouponCodeRepository provides data access for coupon codes using pgx.
type CouponCodeRepository struct {
	pool PoolInterface
}

// NewCouponCodeRepository creates a new CouponCodeRepository with the given pool.
func NewCouponCodeRepository(pool *pgxpool.Pool) *CouponCodeRepository {
	return &CouponCodeRepository{pool: pool}
}

// NewCouponCodeRepositoryWithPool creates a new CouponCodeRepository with a
// custom pool interface. This is primarily used for testing.
func NewCouponCodeRepositoryWithPool(pool PoolInterface) *CouponCodeRepository {
	return &CouponCodeRepository{pool: pool}
}

// Insert inserts a new coupon code.
// Returns service.ErrCouponCodeExists when the code already exists among
// non-deleted codes; the comparison is case-insensitive via a partial
// unique index on lower(code).
func (r *CouponCodeRepository) Insert(ctx context.Context, code *model.CouponCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupon_codes (id, discount_id, code) VALUES ($1, $2, $3)`,
		code.ID, code.DiscountID, code.Code)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponCodeExists
		}
		return fmt.Errorf("insert coupon code: %w", err)
	}
	return nil
}

// FindByCode resolves a coupon code to its owning discount, matching
// case-insensitively. The discount is returned even when inactive or
// soft-deleted so the evaluator can report the precise reason instead of
// a generic not-found.
// Returns nil, nil, nil if no such code exists (service layer handles this).
func (r *CouponCodeRepository) FindByCode(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error) {
	query := `SELECT c.id, c.discount_id, c.code, c.created_at, c.deleted_at,
		d.id, d.name, d.discount_type, d.amount, d.currency,
		d.valid_from, d.valid_until, d.min_stay_nights, d.blackout_dates,
		d.room_types, d.rate_type_ids, d.max_total_usage, d.max_usage_per_guest,
		d.one_time_per_guest, d.usage_count, d.status, d.created_at, d.updated_at, d.deleted_at
	FROM coupon_codes c
	JOIN discounts d ON d.id = c.discount_id
	WHERE lower(c.code) = lower($1) AND c.deleted_at IS NULL`

	var c model.CouponCode
	var d model.Discount
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.ID, &c.DiscountID, &c.Code, &c.CreatedAt, &c.DeletedAt,
		&d.ID, &d.Name, &d.Type, &d.Amount, &d.Currency,
		&d.ValidFrom, &d.ValidUntil, &d.MinStayNights, &d.BlackoutDates,
		&d.RoomTypes, &d.RateTypeIDs, &d.MaxTotalUsage, &d.MaxUsagePerGuest,
		&d.OneTimePerGuest, &d.UsageCount, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil // Not found - let service handle
		}
		return nil, nil, fmt.Errorf("find coupon code %q: %w", code, err)
	}
	return &c, &d, nil
}
