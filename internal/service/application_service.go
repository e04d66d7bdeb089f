package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/stay-discount-engine/internal/eligibility"
	"github.com/fairyhunter13/stay-discount-engine/internal/model"
)

// CodeResolver defines the coupon resolution the orchestrator needs.
type CodeResolver interface {
	ResolveCode(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
}

// ReservationLedger defines the usage ledger operations the orchestrator needs.
type ReservationLedger interface {
	Reserve(ctx context.Context, discountID uuid.UUID, guestID string) (uuid.UUID, error)
	Release(ctx context.Context, token uuid.UUID) error
}

// GuestUsageCounter reports a guest's current usage of a discount.
type GuestUsageCounter interface {
	CountByGuest(ctx context.Context, discountID uuid.UUID, guestID string) (int, error)
}

// BookingDiscountRepositoryInterface defines the interface for
// applied-discount record data access.
type BookingDiscountRepositoryInterface interface {
	Insert(ctx context.Context, bd *model.BookingDiscount) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.BookingDiscount, error)
	Delete(ctx context.Context, bookingID uuid.UUID) error
}

// ApplicationService orchestrates discount application against a
// booking: resolve, evaluate, reserve, persist, and the compensating
// release when persistence fails after a successful reservation.
type ApplicationService struct {
	catalog     CodeResolver
	ledger      ReservationLedger
	usageCounts GuestUsageCounter
	bookingRepo BookingDiscountRepositoryInterface
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(catalog CodeResolver, ledger ReservationLedger, usageCounts GuestUsageCounter, bookingRepo BookingDiscountRepositoryInterface) *ApplicationService {
	return &ApplicationService{
		catalog:     catalog,
		ledger:      ledger,
		usageCounts: usageCounts,
		bookingRepo: bookingRepo,
	}
}

// Apply binds a discount to a booking. The booking's discount slot must
// be empty; callers replace an existing discount explicitly via Replace.
// Returns:
//   - ErrAlreadyApplied when the booking already holds a discount
//   - ErrCouponNotFound / ErrDiscountNotFound for failed resolution
//   - an eligibility sentinel for rule failures
//   - eligibility.ErrGuestLimitExceeded / ErrTotalLimitExceeded when the
//     atomic reservation loses the race for the last slot
func (s *ApplicationService) Apply(ctx context.Context, bookingID uuid.UUID, req *model.ApplyDiscountRequest) (*model.BookingDiscount, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if (req.DiscountID == nil) == (req.CouponCode == nil) {
		return nil, fmt.Errorf("%w: exactly one of discount_id and coupon_code must be set", ErrInvalidRequest)
	}

	existing, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking discount: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyApplied
	}

	discount, couponCodeID, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	stay, err := req.StayContext()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid stay dates", ErrInvalidRequest)
	}
	// A stay must cover at least one night; same-day check-in and
	// check-out leaves nothing to discount.
	if !stay.CheckIn.Before(stay.CheckOut) {
		return nil, fmt.Errorf("%w: check_out must be after check_in", ErrInvalidRequest)
	}

	prior, err := s.usageCounts.CountByGuest(ctx, discount.ID, stay.GuestID)
	if err != nil {
		return nil, fmt.Errorf("count guest usage: %w", err)
	}
	stay.PriorGuestUsage = prior

	amount, err := eligibility.Evaluate(discount, stay)
	if err != nil {
		return nil, err
	}

	token, err := s.ledger.Reserve(ctx, discount.ID, stay.GuestID)
	if err != nil {
		return nil, err
	}

	bd := &model.BookingDiscount{
		ID:            uuid.New(),
		BookingID:     bookingID,
		DiscountID:    discount.ID,
		CouponCodeID:  couponCodeID,
		GuestID:       stay.GuestID,
		ReservationID: token,
		Amount:        amount,
		Type:          discount.Type,
		ValueUsed:     discount.Amount,
	}
	if err := s.bookingRepo.Insert(ctx, bd); err != nil {
		// Compensating action: never leave a reserved-but-unrecorded slot.
		if relErr := s.ledger.Release(ctx, token); relErr != nil {
			log.Error().
				Err(relErr).
				Str("booking_id", bookingID.String()).
				Str("discount_id", discount.ID.String()).
				Str("reservation_id", token.String()).
				Msg("failed to release reservation after persist failure")
		}
		return nil, err
	}
	return bd, nil
}

// Get retrieves the booking's applied discount.
// Returns ErrNotApplied when the booking holds none.
func (s *ApplicationService) Get(ctx context.Context, bookingID uuid.UUID) (*model.BookingDiscount, error) {
	bd, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking discount: %w", err)
	}
	if bd == nil {
		return nil, ErrNotApplied
	}
	return bd, nil
}

// Remove releases the booking's usage reservation and deletes the
// applied-discount record, in that order. The record survives a failed
// delete with its reservation already released, and a retry re-runs the
// release as a no-op; the schema keeps reservation_id free of a foreign
// key so the released row can vanish while the record still points at it.
// Returns ErrNotApplied when the booking holds no discount.
func (s *ApplicationService) Remove(ctx context.Context, bookingID uuid.UUID) error {
	bd, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.ledger.Release(ctx, bd.ReservationID); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	if err := s.bookingRepo.Delete(ctx, bookingID); err != nil {
		return fmt.Errorf("delete booking discount: %w", err)
	}
	return nil
}

// Replace swaps the booking's discount for another one. Defined as
// Remove followed by Apply so the usage counter always moves through
// release and reserve, never a blind recompute.
func (s *ApplicationService) Replace(ctx context.Context, bookingID uuid.UUID, req *model.ApplyDiscountRequest) (*model.BookingDiscount, error) {
	if err := s.Remove(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.Apply(ctx, bookingID, req)
}

func (s *ApplicationService) resolve(ctx context.Context, req *model.ApplyDiscountRequest) (*model.Discount, *uuid.UUID, error) {
	if req.CouponCode != nil {
		couponCode, discount, err := s.catalog.ResolveCode(ctx, *req.CouponCode)
		if err != nil {
			return nil, nil, err
		}
		return discount, &couponCode.ID, nil
	}

	id, err := uuid.Parse(*req.DiscountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid discount_id", ErrInvalidRequest)
	}
	discount, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return discount, nil, nil
}
