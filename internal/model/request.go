package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDiscountRequest is the DTO for creating a discount definition.
type CreateDiscountRequest struct {
	Name             string           `json:"name" validate:"required,notblank,max=255"`
	Type             string           `json:"type" validate:"required,oneof=percentage fixed"`
	Amount           *decimal.Decimal `json:"amount" validate:"required"`
	Currency         string           `json:"currency" validate:"omitempty,len=3"`
	ValidFrom        string           `json:"valid_from" validate:"required,datetime=2006-01-02"`
	ValidUntil       string           `json:"valid_until" validate:"required,datetime=2006-01-02"`
	MinStayNights    int              `json:"min_stay_nights" validate:"gte=0"`
	BlackoutDates    []string         `json:"blackout_dates" validate:"dive,datetime=2006-01-02"`
	RoomTypes        []string         `json:"room_types" validate:"dive,notblank"`
	RateTypeIDs      []string         `json:"rate_type_ids" validate:"dive,notblank"`
	MaxTotalUsage    *int             `json:"max_total_usage" validate:"omitempty,gte=1"`
	MaxUsagePerGuest *int             `json:"max_usage_per_guest" validate:"omitempty,gte=1"`
	OneTimePerGuest  bool             `json:"one_time_per_guest"`
	Status           string           `json:"status" validate:"omitempty,oneof=active inactive"`
}

// CreateCouponCodeRequest is the DTO for attaching a coupon code to a discount.
type CreateCouponCodeRequest struct {
	DiscountID string `json:"discount_id" validate:"required,uuid"`
	Code       string `json:"code" validate:"required,notblank,max=64"`
}

// ApplyDiscountRequest is the DTO for applying a discount to a booking.
// Exactly one of DiscountID and CouponCode must be set.
type ApplyDiscountRequest struct {
	DiscountID  *string         `json:"discount_id" validate:"omitempty,uuid"`
	CouponCode  *string         `json:"coupon_code" validate:"omitempty,max=64"`
	GuestID     string          `json:"guest_id" validate:"required,notblank,max=255"`
	RoomTypes   []string        `json:"room_types" validate:"dive,notblank"`
	RateTypeIDs []string        `json:"rate_type_ids" validate:"dive,notblank"`
	CheckIn     string          `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut    string          `json:"check_out" validate:"required,datetime=2006-01-02"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Currency    string          `json:"currency" validate:"required,len=3"`
}

// StayContext builds the evaluation context from the request.
// Assumes the date fields passed handler validation.
func (r *ApplyDiscountRequest) StayContext() (StayContext, error) {
	checkIn, err := ParseDate(r.CheckIn)
	if err != nil {
		return StayContext{}, err
	}
	checkOut, err := ParseDate(r.CheckOut)
	if err != nil {
		return StayContext{}, err
	}
	return StayContext{
		GuestID:     r.GuestID,
		RoomTypes:   r.RoomTypes,
		RateTypeIDs: r.RateTypeIDs,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Subtotal:    r.Subtotal,
		Currency:    r.Currency,
	}, nil
}

// DiscountResponse is the API representation of a discount definition.
type DiscountResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Type             DiscountType    `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"`
	ValidFrom        string          `json:"valid_from"`
	ValidUntil       string          `json:"valid_until"`
	MinStayNights    int             `json:"min_stay_nights"`
	BlackoutDates    []string        `json:"blackout_dates"`
	RoomTypes        []string        `json:"room_types"`
	RateTypeIDs      []string        `json:"rate_type_ids"`
	MaxTotalUsage    *int            `json:"max_total_usage"`
	MaxUsagePerGuest *int            `json:"max_usage_per_guest"`
	OneTimePerGuest  bool            `json:"one_time_per_guest"`
	UsageCount       int             `json:"usage_count"`
	Status           DiscountStatus  `json:"status"`
	Deleted          bool            `json:"deleted,omitempty"`
}

// NewDiscountResponse converts a discount entity to its API representation.
func NewDiscountResponse(d *Discount) *DiscountResponse {
	blackouts := make([]string, 0, len(d.BlackoutDates))
	for _, b := range d.BlackoutDates {
		blackouts = append(blackouts, b.Format(DateFormat))
	}
	roomTypes := d.RoomTypes
	if roomTypes == nil {
		roomTypes = []string{}
	}
	rateTypes := d.RateTypeIDs
	if rateTypes == nil {
		rateTypes = []string{}
	}
	return &DiscountResponse{
		ID:               d.ID,
		Name:             d.Name,
		Type:             d.Type,
		Amount:           d.Amount,
		Currency:         d.Currency,
		ValidFrom:        d.ValidFrom.Format(DateFormat),
		ValidUntil:       d.ValidUntil.Format(DateFormat),
		MinStayNights:    d.MinStayNights,
		BlackoutDates:    blackouts,
		RoomTypes:        roomTypes,
		RateTypeIDs:      rateTypes,
		MaxTotalUsage:    d.MaxTotalUsage,
		MaxUsagePerGuest: d.MaxUsagePerGuest,
		OneTimePerGuest:  d.OneTimePerGuest,
		UsageCount:       d.UsageCount,
		Status:           d.Status,
		Deleted:          d.IsDeleted(),
	}
}

// AppliedDiscountResponse is the API representation of a booking's
// applied discount record.
type AppliedDiscountResponse struct {
	ID           uuid.UUID       `json:"id"`
	BookingID    uuid.UUID       `json:"booking_id"`
	DiscountID   uuid.UUID       `json:"discount_id"`
	CouponCodeID *uuid.UUID      `json:"coupon_code_id,omitempty"`
	GuestID      string          `json:"guest_id"`
	Amount       decimal.Decimal `json:"discount_amount"`
	Type         DiscountType    `json:"discount_type"`
	ValueUsed    decimal.Decimal `json:"discount_value_used"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewAppliedDiscountResponse converts an applied-discount record to its
// API representation.
func NewAppliedDiscountResponse(bd *BookingDiscount) *AppliedDiscountResponse {
	return &AppliedDiscountResponse{
		ID:           bd.ID,
		BookingID:    bd.BookingID,
		DiscountID:   bd.DiscountID,
		CouponCodeID: bd.CouponCodeID,
		GuestID:      bd.GuestID,
		Amount:       bd.Amount,
		Type:         bd.Type,
		ValueUsed:    bd.ValueUsed,
		CreatedAt:    bd.CreatedAt,
	}
}
