package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType determines how a discount's value is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage applies a percentage of the stay subtotal.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed subtracts a fixed monetary amount.
	DiscountTypeFixed DiscountType = "fixed"
)

// DiscountStatus is the lifecycle status of a discount.
type DiscountStatus string

const (
	DiscountStatusActive   DiscountStatus = "active"
	DiscountStatusInactive DiscountStatus = "inactive"
)

// DateFormat is the wire format for all calendar dates.
const DateFormat = "2006-01-02"

// Discount is a named promotional rule with validity, restriction and
// usage-limit fields. UsageCount is mutated only by the usage ledger.
type Discount struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Type             DiscountType    `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"` // required for fixed, ignored for percentage
	ValidFrom        time.Time       `json:"valid_from"`
	ValidUntil       time.Time       `json:"valid_until"` // inclusive
	MinStayNights    int             `json:"min_stay_nights"`
	BlackoutDates    []time.Time     `json:"blackout_dates"`
	RoomTypes        []string        `json:"room_types"`          // empty = all room types
	RateTypeIDs      []string        `json:"rate_type_ids"`       // empty = all rate types
	MaxTotalUsage    *int            `json:"max_total_usage"`     // nil = unlimited
	MaxUsagePerGuest *int            `json:"max_usage_per_guest"` // nil = unlimited
	OneTimePerGuest  bool            `json:"one_time_per_guest"`
	UsageCount       int             `json:"usage_count"`
	Status           DiscountStatus  `json:"status"`
	CreatedAt        time.Time       `json:"-"`
	UpdatedAt        time.Time       `json:"-"`
	DeletedAt        *time.Time      `json:"-"`
}

// GuestLimit resolves the effective per-guest usage cap.
// OneTimePerGuest is shorthand for a cap of 1; nil means unlimited.
func (d *Discount) GuestLimit() *int {
	if d.OneTimePerGuest && (d.MaxUsagePerGuest == nil || *d.MaxUsagePerGuest > 1) {
		one := 1
		return &one
	}
	return d.MaxUsagePerGuest
}

// IsDeleted reports whether the discount has been soft-deleted.
func (d *Discount) IsDeleted() bool {
	return d.DeletedAt != nil
}

// CouponCode is an opaque alias that gates a single discount.
// Codes are unique case-insensitively among non-deleted codes.
type CouponCode struct {
	ID         uuid.UUID  `json:"id"`
	DiscountID uuid.UUID  `json:"discount_id"`
	Code       string     `json:"code"`
	CreatedAt  time.Time  `json:"-"`
	DeletedAt  *time.Time `json:"-"`
}

// UsageReservation is one claimed unit of a discount's usage capacity.
// Its ID doubles as the reservation token handed back by the ledger.
type UsageReservation struct {
	ID         uuid.UUID
	DiscountID uuid.UUID
	GuestID    string
	CreatedAt  time.Time
}

// BookingDiscount is the immutable record of a discount successfully
// bound to one booking. Amount, Type and ValueUsed are frozen at
// application time so later edits to the discount definition do not
// retroactively alter the booking.
type BookingDiscount struct {
	ID            uuid.UUID       `json:"id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	DiscountID    uuid.UUID       `json:"discount_id"`
	CouponCodeID  *uuid.UUID      `json:"coupon_code_id,omitempty"`
	GuestID       string          `json:"guest_id"`
	ReservationID uuid.UUID       `json:"-"`
	Amount        decimal.Decimal `json:"discount_amount"`
	Type          DiscountType    `json:"discount_type"`
	ValueUsed     decimal.Decimal `json:"discount_value_used"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StayContext carries the stay attributes a discount is evaluated
// against. CheckIn and CheckOut are date-only values at UTC midnight;
// the stay occupies the nights [CheckIn, CheckOut).
type StayContext struct {
	GuestID         string
	RoomTypes       []string
	RateTypeIDs     []string
	CheckIn         time.Time
	CheckOut        time.Time
	Subtotal        decimal.Decimal
	Currency        string
	PriorGuestUsage int
}

// Nights returns the number of nights the stay occupies.
func (s StayContext) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// ParseDate parses a wire-format calendar date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
