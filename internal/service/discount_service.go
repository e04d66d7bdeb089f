package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
)

// DiscountRepositoryInterface defines the interface for discount data access.
type DiscountRepositoryInterface interface {
	Insert(ctx context.Context, d *model.Discount) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
	ListActive(ctx context.Context, asOf time.Time) ([]model.Discount, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// CouponCodeRepositoryInterface defines the interface for coupon code data access.
type CouponCodeRepositoryInterface interface {
	Insert(ctx context.Context, code *model.CouponCode) error
	FindByCode(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error)
}

// DiscountService provides the discount catalog and coupon code
// resolution. It never mutates usage_count; that is the ledger's job.
type DiscountService struct {
	discountRepo DiscountRepositoryInterface
	couponRepo   CouponCodeRepositoryInterface
}

// NewDiscountService creates a new DiscountService with the given repositories.
func NewDiscountService(discountRepo DiscountRepositoryInterface, couponRepo CouponCodeRepositoryInterface) *DiscountService {
	return &DiscountService{
		discountRepo: discountRepo,
		couponRepo:   couponRepo,
	}
}

var maxPercentage = decimal.NewFromInt(100)

// Create creates a new discount definition from the request.
// Returns ErrInvalidRequest when the definition is internally
// inconsistent (negative amount, percentage above 100, fixed discount
// without a currency, inverted validity window).
func (s *DiscountService) Create(ctx context.Context, req *model.CreateDiscountRequest) (*model.Discount, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.Amount == nil {
		return nil, ErrInvalidRequest
	}

	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	discountType := model.DiscountType(req.Type)
	if discountType == model.DiscountTypePercentage && req.Amount.GreaterThan(maxPercentage) {
		return nil, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidRequest)
	}
	if discountType == model.DiscountTypeFixed && req.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required for fixed discounts", ErrInvalidRequest)
	}

	validFrom, err := model.ParseDate(req.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_from", ErrInvalidRequest)
	}
	validUntil, err := model.ParseDate(req.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid valid_until", ErrInvalidRequest)
	}
	if validUntil.Before(validFrom) {
		return nil, fmt.Errorf("%w: valid_until precedes valid_from", ErrInvalidRequest)
	}

	blackouts := make([]time.Time, 0, len(req.BlackoutDates))
	for _, raw := range req.BlackoutDates {
		b, err := model.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid blackout date %q", ErrInvalidRequest, raw)
		}
		blackouts = append(blackouts, b)
	}

	status := model.DiscountStatus(req.Status)
	if status == "" {
		status = model.DiscountStatusActive
	}

	currency := req.Currency
	if discountType == model.DiscountTypePercentage {
		currency = "" // percentage applies to the invoice's own currency
	}

	d := &model.Discount{
		ID:               uuid.New(),
		Name:             req.Name,
		Type:             discountType,
		Amount:           *req.Amount,
		Currency:         currency,
		ValidFrom:        validFrom,
		ValidUntil:       validUntil,
		MinStayNights:    req.MinStayNights,
		BlackoutDates:    blackouts,
		RoomTypes:        req.RoomTypes,
		RateTypeIDs:      req.RateTypeIDs,
		MaxTotalUsage:    req.MaxTotalUsage,
		MaxUsagePerGuest: req.MaxUsagePerGuest,
		OneTimePerGuest:  req.OneTimePerGuest,
		Status:           status,
	}
	if err := s.discountRepo.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID retrieves a discount with its current usage count.
// Returns ErrDiscountNotFound if the discount doesn't exist.
func (s *DiscountService) GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	d, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get discount: %w", err)
	}
	if d == nil {
		return nil, ErrDiscountNotFound
	}
	return d, nil
}

// ListActive retrieves all discounts that are active and valid on the
// given date.
func (s *DiscountService) ListActive(ctx context.Context, asOf time.Time) ([]model.Discount, error) {
	return s.discountRepo.ListActive(ctx, asOf)
}

// Delete soft-deletes a discount. Soft-deleted discounts behave as
// inactive for evaluation but remain visible for historical reporting.
func (s *DiscountService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.discountRepo.SoftDelete(ctx, id)
}

// CreateCode attaches a coupon code to an existing discount.
// Returns ErrDiscountNotFound when the discount doesn't exist and
// ErrCouponCodeExists when the code is already taken (case-insensitive).
func (s *DiscountService) CreateCode(ctx context.Context, req *model.CreateCouponCodeRequest) (*model.CouponCode, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	discountID, err := uuid.Parse(req.DiscountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discount_id", ErrInvalidRequest)
	}
	if _, err := s.GetByID(ctx, discountID); err != nil {
		return nil, err
	}

	code := &model.CouponCode{
		ID:         uuid.New(),
		DiscountID: discountID,
		Code:       strings.TrimSpace(req.Code),
	}
	if err := s.couponRepo.Insert(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// ResolveCode maps a coupon code to its owning discount. Input is
// trimmed and matched case-insensitively. An inactive or soft-deleted
// discount is still returned so the caller can report the precise
// ineligibility reason instead of a generic not-found.
// Returns ErrCouponNotFound if no such code exists.
func (s *DiscountService) ResolveCode(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error) {
	couponCode, discount, err := s.couponRepo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve coupon code: %w", err)
	}
	if couponCode == nil {
		return nil, nil, ErrCouponNotFound
	}
	return couponCode, discount, nil
}
