package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/pkg/database"
)

// UsageRepository provides data access for usage reservation rows.
// Each row is one claimed unit of a discount's capacity; the row id is
// the reservation token.
type UsageRepository struct {
	pool PoolInterface
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a new UsageRepository with a custom
// pool interface. This is primarily used for testing.
func NewUsageRepositoryWithPool(pool PoolInterface) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert inserts a reservation row within a transaction.
func (r *UsageRepository) Insert(ctx context.Context, tx database.TxQuerier, res *model.UsageReservation) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO discount_usages (id, discount_id, guest_id) VALUES ($1, $2, $3)`,
		res.ID, res.DiscountID, res.GuestID)
	if err != nil {
		return fmt.Errorf("insert usage reservation: %w", err)
	}
	return nil
}

// DeleteByID removes a reservation row and reports which discount it
// belonged to. A row can only ever be deleted once, which makes a double
// release observable to the caller as found == false.
func (r *UsageRepository) DeleteByID(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (discountID uuid.UUID, found bool, err error) {
	query := `DELETE FROM discount_usages WHERE id = $1 RETURNING discount_id`

	err = tx.QueryRow(ctx, query, id).Scan(&discountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("delete usage reservation %s: %w", id, err)
	}
	return discountID, true, nil
}

// CountByGuest returns how many reservations a guest currently holds
// against a discount, read outside any transaction. Used for the
// evaluator's advisory per-guest check.
func (r *UsageRepository) CountByGuest(ctx context.Context, discountID uuid.UUID, guestID string) (int, error) {
	return r.countByGuest(ctx, r.pool, discountID, guestID)
}

// CountByGuestTx is the transactional variant of CountByGuest, used by
// the ledger after it has locked the discount row.
func (r *UsageRepository) CountByGuestTx(ctx context.Context, tx database.TxQuerier, discountID uuid.UUID, guestID string) (int, error) {
	return r.countByGuest(ctx, tx, discountID, guestID)
}

func (r *UsageRepository) countByGuest(ctx context.Context, q database.TxQuerier, discountID uuid.UUID, guestID string) (int, error) {
	query := `SELECT COUNT(*) FROM discount_usages WHERE discount_id = $1 AND guest_id = $2`

	var count int
	if err := q.QueryRow(ctx, query, discountID, guestID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count guest usage for %s: %w", discountID, err)
	}
	return count, nil
}
