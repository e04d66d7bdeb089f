package service

import "errors"

var (
	// ErrDiscountNotFound is returned when a discount cannot be found
	ErrDiscountNotFound = errors.New("discount not found")

	// ErrCouponNotFound is returned when a coupon code cannot be resolved
	ErrCouponNotFound = errors.New("coupon code not found")

	// ErrCouponCodeExists is returned when creating a coupon code that already exists
	ErrCouponCodeExists = errors.New("coupon code already exists")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyApplied is returned when a booking already holds an applied discount
	ErrAlreadyApplied = errors.New("booking already has a discount applied")

	// ErrNotApplied is returned when a booking holds no applied discount
	ErrNotApplied = errors.New("no discount applied to booking")
)
