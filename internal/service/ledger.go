package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/stay-discount-engine/internal/eligibility"
	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/pkg/database"
)

// LedgerDiscountRepository defines the discount data access the ledger needs.
type LedgerDiscountRepository interface {
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Discount, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (bool, error)
	DecrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
}

// LedgerUsageRepository defines the reservation-row data access the ledger needs.
type LedgerUsageRepository interface {
	Insert(ctx context.Context, tx database.TxQuerier, res *model.UsageReservation) error
	CountByGuestTx(ctx context.Context, tx database.TxQuerier, discountID uuid.UUID, guestID string) (int, error)
	DeleteByID(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (uuid.UUID, bool, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UsageLedger atomically reserves and releases usage slots against a
// discount's total and per-guest limits. It is the only component that
// mutates usage_count.
type UsageLedger struct {
	pool         TxBeginner
	discountRepo LedgerDiscountRepository
	usageRepo    LedgerUsageRepository
}

// NewUsageLedger creates a new UsageLedger with the given pool and repositories.
func NewUsageLedger(pool *pgxpool.Pool, discountRepo LedgerDiscountRepository, usageRepo LedgerUsageRepository) *UsageLedger {
	return &UsageLedger{
		pool:         pool,
		discountRepo: discountRepo,
		usageRepo:    usageRepo,
	}
}

// NewUsageLedgerWithTxBeginner creates a UsageLedger with a custom TxBeginner.
// Primarily used for testing.
func NewUsageLedgerWithTxBeginner(pool TxBeginner, discountRepo LedgerDiscountRepository, usageRepo LedgerUsageRepository) *UsageLedger {
	return &UsageLedger{
		pool:         pool,
		discountRepo: discountRepo,
		usageRepo:    usageRepo,
	}
}

// Reserve atomically claims one usage slot for a guest and returns the
// reservation token. The discount row is locked (SELECT FOR UPDATE) for
// the duration of the transaction, the per-guest count is checked under
// that lock, and the counter increment is itself guarded by
// max_total_usage, so racing callers can never overshoot either cap.
// Returns:
//   - ErrDiscountNotFound if the discount doesn't exist
//   - eligibility.ErrGuestLimitExceeded if the guest's cap is exhausted
//   - eligibility.ErrTotalLimitExceeded if the total cap is exhausted
func (l *UsageLedger) Reserve(ctx context.Context, discountID uuid.UUID, guestID string) (uuid.UUID, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the discount row (SELECT FOR UPDATE)
	d, err := l.discountRepo.GetForUpdate(ctx, tx, discountID)
	if err != nil {
		return uuid.Nil, err
	}

	// 2. Check the per-guest cap under the lock
	if limit := d.GuestLimit(); limit != nil {
		used, err := l.usageRepo.CountByGuestTx(ctx, tx, discountID, guestID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("count guest usage: %w", err)
		}
		if used >= *limit {
			return uuid.Nil, eligibility.ErrGuestLimitExceeded
		}
	}

	// 3. Guarded increment enforces the total cap
	ok, err := l.discountRepo.IncrementUsage(ctx, tx, discountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("increment usage: %w", err)
	}
	if !ok {
		return uuid.Nil, eligibility.ErrTotalLimitExceeded
	}

	// 4. Record the reservation; its id is the token
	res := &model.UsageReservation{
		ID:         uuid.New(),
		DiscountID: discountID,
		GuestID:    guestID,
	}
	if err := l.usageRepo.Insert(ctx, tx, res); err != nil {
		return uuid.Nil, fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit reserve: %w", err)
	}
	return res.ID, nil
}

// Release returns a previously reserved slot. Releasing an unknown or
// already-released token is a no-op, not an error: the reservation row
// can only be deleted once, so a double release never decrements the
// counter twice.
func (l *UsageLedger) Release(ctx context.Context, token uuid.UUID) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	discountID, found, err := l.usageRepo.DeleteByID(ctx, tx, token)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if !found {
		return nil
	}

	if err := l.discountRepo.DecrementUsage(ctx, tx, discountID); err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}
