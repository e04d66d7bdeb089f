package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/internal/service"
)

// BookingDiscountRepository provides data access for applied-discount
// records. Records are never updated in place; a change is always
// delete-then-insert with the usage ledger adjusted alongside.
type BookingDiscountRepository struct {
	pool PoolInterface
}

// NewBookingDiscountRepository creates a new BookingDiscountRepository with the given pool.
func NewBookingDiscountRepository(pool *pgxpool.Pool) *BookingDiscountRepository {
	return &BookingDiscountRepository{pool: pool}
}

// NewBookingDiscountRepositoryWithPool creates a new BookingDiscountRepository
// with a custom pool interface. This is primarily used for testing.
func NewBookingDiscountRepositoryWithPool(pool PoolInterface) *BookingDiscountRepository {
	return &BookingDiscountRepository{pool: pool}
}

// Insert inserts an applied-discount record.
// Returns service.ErrAlreadyApplied when the booking already holds one
// (unique constraint on booking_id).
func (r *BookingDiscountRepository) Insert(ctx context.Context, bd *model.BookingDiscount) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO booking_discounts (id, booking_id, discount_id, coupon_code_id,
			guest_id, reservation_id, discount_amount, discount_type, discount_value_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bd.ID, bd.BookingID, bd.DiscountID, bd.CouponCodeID,
		bd.GuestID, bd.ReservationID, bd.Amount, bd.Type, bd.ValueUsed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAlreadyApplied
		}
		return fmt.Errorf("insert booking discount: %w", err)
	}
	return nil
}

// GetByBookingID retrieves the applied-discount record for a booking.
// Returns nil, nil if the booking has none (service layer handles this).
func (r *BookingDiscountRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.BookingDiscount, error) {
	query := `SELECT id, booking_id, discount_id, coupon_code_id, guest_id,
		reservation_id, discount_amount, discount_type, discount_value_used, created_at
	FROM booking_discounts WHERE booking_id = $1`

	var bd model.BookingDiscount
	err := r.pool.QueryRow(ctx, query, bookingID).Scan(
		&bd.ID,
		&bd.BookingID,
		&bd.DiscountID,
		&bd.CouponCodeID,
		&bd.GuestID,
		&bd.ReservationID,
		&bd.Amount,
		&bd.Type,
		&bd.ValueUsed,
		&bd.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get booking discount for %s: %w", bookingID, err)
	}
	return &bd, nil
}

// Delete removes the applied-discount record for a booking.
func (r *BookingDiscountRepository) Delete(ctx context.Context, bookingID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM booking_discounts WHERE booking_id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("delete booking discount for %s: %w", bookingID, err)
	}
	return nil
}
