package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/internal/service"
	"github.com/fairyhunter13/stay-discount-engine/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const discountColumns = `id, name, discount_type, amount, currency,
	valid_from, valid_until, min_stay_nights, blackout_dates,
	room_types, rate_type_ids, max_total_usage, max_usage_per_guest,
	one_time_per_guest, usage_count, status, created_at, updated_at, deleted_at`

// DiscountRepository provides data access for discount definitions using pgx.
type DiscountRepository struct {
	pool PoolInterface
}

// NewDiscountRepository creates a new DiscountRepository with the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// NewDiscountRepositoryWithPool creates a new DiscountRepository with a custom
// pool interface. This is primarily used for testing.
func NewDiscountRepositoryWithPool(pool PoolInterface) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Insert inserts a new discount definition into the database.
func (r *DiscountRepository) Insert(ctx context.Context, d *model.Discount) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO discounts (id, name, discount_type, amount, currency,
			valid_from, valid_until, min_stay_nights, blackout_dates,
			room_types, rate_type_ids, max_total_usage, max_usage_per_guest,
			one_time_per_guest, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.Name, d.Type, d.Amount, d.Currency,
		d.ValidFrom, d.ValidUntil, d.MinStayNights, d.BlackoutDates,
		d.RoomTypes, d.RateTypeIDs, d.MaxTotalUsage, d.MaxUsagePerGuest,
		d.OneTimePerGuest, d.Status)
	if err != nil {
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

func scanDiscount(row pgx.Row) (*model.Discount, error) {
	var d model.Discount
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Type,
		&d.Amount,
		&d.Currency,
		&d.ValidFrom,
		&d.ValidUntil,
		&d.MinStayNights,
		&d.BlackoutDates,
		&d.RoomTypes,
		&d.RateTypeIDs,
		&d.MaxTotalUsage,
		&d.MaxUsagePerGuest,
		&d.OneTimePerGuest,
		&d.UsageCount,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID retrieves a discount by its id, soft-deleted ones included so
// they stay visible for historical reporting.
// Returns nil, nil if the discount is not found (service layer handles this).
func (r *DiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	d, err := scanDiscount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get discount by id %s: %w", id, err)
	}
	return d, nil
}

// ListActive retrieves all active, non-deleted discounts whose validity
// window covers the given date.
func (r *DiscountRepository) ListActive(ctx context.Context, asOf time.Time) ([]model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts
		WHERE status = 'active' AND deleted_at IS NULL
		  AND valid_from <= $1 AND valid_until >= $1
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("list active discounts: %w", err)
	}
	defer rows.Close()

	discounts := []model.Discount{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount row: %w", err)
		}
		discounts = append(discounts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discount rows: %w", err)
	}
	return discounts, nil
}

// SoftDelete marks a discount as deleted without removing the row.
// Returns service.ErrDiscountNotFound if the discount doesn't exist or is
// already deleted.
func (r *DiscountRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE discounts SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete discount %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrDiscountNotFound
	}
	return nil
}

// GetForUpdate retrieves a discount with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes, serializing all
// usage reservations against the same discount.
// Returns service.ErrDiscountNotFound if the discount doesn't exist.
func (r *DiscountRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1 FOR UPDATE`

	d, err := scanDiscount(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("get discount for update %s: %w", id, err)
	}
	return d, nil
}

// IncrementUsage increments usage_count by 1 only while it stays within
// max_total_usage. The condition and the increment are a single
// statement, so the total cap can never be breached by racing callers.
// Returns false when the cap is exhausted and no row was changed.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (bool, error) {
	query := `UPDATE discounts
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1
		  AND (max_total_usage IS NULL OR usage_count < max_total_usage)`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment usage for %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DecrementUsage decrements usage_count by 1, guarded so the counter
// never goes below zero.
func (r *DiscountRepository) DecrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	query := `UPDATE discounts
		SET usage_count = usage_count - 1, updated_at = now()
		WHERE id = $1 AND usage_count > 0`

	_, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("decrement usage for %s: %w", id, err)
	}
	return nil
}
