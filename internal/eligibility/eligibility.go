// Package eligibility contains the pure discount eligibility rules.
// Evaluate has no side effects and touches no storage; the usage-limit
// checks here are previews based on the counts the caller supplies, and
// are re-checked atomically by the usage ledger at reservation time.
package eligibility

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
)

var (
	// ErrNotActive is returned for inactive or soft-deleted discounts
	ErrNotActive = errors.New("discount not active")

	// ErrOutOfDateRange is returned when the stay falls outside the validity window
	ErrOutOfDateRange = errors.New("stay outside discount validity window")

	// ErrBlackoutDate is returned when the stay spans a blackout date
	ErrBlackoutDate = errors.New("stay spans a blackout date")

	// ErrMinStayNotMet is returned when the stay is shorter than the minimum
	ErrMinStayNotMet = errors.New("minimum stay not met")

	// ErrRoomTypeNotApplicable is returned when a room type is outside the allowed set
	ErrRoomTypeNotApplicable = errors.New("room type not applicable")

	// ErrRateTypeNotApplicable is returned when a rate type is outside the allowed set
	ErrRateTypeNotApplicable = errors.New("rate type not applicable")

	// ErrCurrencyMismatch is returned when a fixed discount's currency differs from the stay's
	ErrCurrencyMismatch = errors.New("discount currency does not match stay currency")

	// ErrGuestLimitExceeded is returned when the guest has exhausted the per-guest cap
	ErrGuestLimitExceeded = errors.New("guest usage limit exceeded")

	// ErrTotalLimitExceeded is returned when the discount's total usage cap is exhausted
	ErrTotalLimitExceeded = errors.New("total usage limit exceeded")
)

var hundred = decimal.NewFromInt(100)

// Evaluate runs the eligibility checks against a stay and returns the
// computed discount amount. Checks run in a fixed order and the first
// failing check wins, so callers always see the same reason for the
// same discount and stay.
func Evaluate(d *model.Discount, stay model.StayContext) (decimal.Decimal, error) {
	if d.Status != model.DiscountStatusActive || d.IsDeleted() {
		return decimal.Zero, ErrNotActive
	}

	// The stay's last night must fall on or before ValidUntil, so
	// check-out on ValidUntil + 1 day is still in range.
	if stay.CheckIn.Before(d.ValidFrom) || stay.CheckOut.After(d.ValidUntil.AddDate(0, 0, 1)) {
		return decimal.Zero, ErrOutOfDateRange
	}

	if spansBlackout(d.BlackoutDates, stay.CheckIn, stay.CheckOut) {
		return decimal.Zero, ErrBlackoutDate
	}

	if stay.Nights() < d.MinStayNights {
		return decimal.Zero, ErrMinStayNotMet
	}

	if !subsetOf(stay.RoomTypes, d.RoomTypes) {
		return decimal.Zero, ErrRoomTypeNotApplicable
	}

	if !subsetOf(stay.RateTypeIDs, d.RateTypeIDs) {
		return decimal.Zero, ErrRateTypeNotApplicable
	}

	if d.Type == model.DiscountTypeFixed && stay.Currency != d.Currency {
		return decimal.Zero, ErrCurrencyMismatch
	}

	if limit := d.GuestLimit(); limit != nil && stay.PriorGuestUsage >= *limit {
		return decimal.Zero, ErrGuestLimitExceeded
	}

	if d.MaxTotalUsage != nil && d.UsageCount >= *d.MaxTotalUsage {
		return decimal.Zero, ErrTotalLimitExceeded
	}

	return Amount(d, stay.Subtotal), nil
}

// Amount computes the monetary effect of a discount on a subtotal,
// clamped to [0, subtotal] so a discount can never push an invoice
// total negative.
func Amount(d *model.Discount, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case model.DiscountTypePercentage:
		amount = subtotal.Mul(d.Amount).Div(hundred).Round(2)
	case model.DiscountTypeFixed:
		amount = d.Amount.Round(2)
	}
	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// subsetOf reports whether every value is in allowed.
// An empty allowed set means no restriction.
func subsetOf(values, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// spansBlackout reports whether any occupied night [checkIn, checkOut)
// falls on a blackout date.
func spansBlackout(blackouts []time.Time, checkIn, checkOut time.Time) bool {
	for _, b := range blackouts {
		if !b.Before(checkIn) && b.Before(checkOut) {
			return true
		}
	}
	return false
}
