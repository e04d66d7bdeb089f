package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/stay-discount-engine/internal/eligibility"
	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/internal/service"
)

// ApplicationServiceInterface defines the interface for discount
// application business logic.
type ApplicationServiceInterface interface {
	Apply(ctx context.Context, bookingID uuid.UUID, req *model.ApplyDiscountRequest) (*model.BookingDiscount, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*model.BookingDiscount, error)
	Remove(ctx context.Context, bookingID uuid.UUID) error
	Replace(ctx context.Context, bookingID uuid.UUID, req *model.ApplyDiscountRequest) (*model.BookingDiscount, error)
}

// BookingDiscountHandler handles HTTP requests for a booking's discount slot.
type BookingDiscountHandler struct {
	service   ApplicationServiceInterface
	validator *validator.Validate
}

// NewBookingDiscountHandler creates a new BookingDiscountHandler with the
// given service and validator.
func NewBookingDiscountHandler(svc ApplicationServiceInterface, v *validator.Validate) *BookingDiscountHandler {
	return &BookingDiscountHandler{service: svc, validator: v}
}

// ineligibilityReason maps eligibility sentinels to the HTTP status and
// operator-facing message for the specific business rule that failed.
func ineligibilityReason(err error) (int, string, bool) {
	switch {
	case errors.Is(err, eligibility.ErrNotActive):
		return fiber.StatusUnprocessableEntity, "discount not active", true
	case errors.Is(err, eligibility.ErrOutOfDateRange):
		return fiber.StatusUnprocessableEntity, "stay outside discount validity window", true
	case errors.Is(err, eligibility.ErrBlackoutDate):
		return fiber.StatusUnprocessableEntity, "stay spans a blackout date", true
	case errors.Is(err, eligibility.ErrMinStayNotMet):
		return fiber.StatusUnprocessableEntity, "minimum stay not met", true
	case errors.Is(err, eligibility.ErrRoomTypeNotApplicable):
		return fiber.StatusUnprocessableEntity, "room type not applicable", true
	case errors.Is(err, eligibility.ErrRateTypeNotApplicable):
		return fiber.StatusUnprocessableEntity, "rate type not applicable", true
	case errors.Is(err, eligibility.ErrCurrencyMismatch):
		return fiber.StatusUnprocessableEntity, "discount currency does not match stay currency", true
	case errors.Is(err, eligibility.ErrGuestLimitExceeded):
		return fiber.StatusConflict, "guest usage limit exceeded", true
	case errors.Is(err, eligibility.ErrTotalLimitExceeded):
		return fiber.StatusConflict, "total usage limit exceeded", true
	}
	return 0, "", false
}

func (h *BookingDiscountHandler) respondApplyError(c *fiber.Ctx, bookingID uuid.UUID, err error) error {
	if status, reason, ok := ineligibilityReason(err); ok {
		return c.Status(status).JSON(fiber.Map{"error": reason})
	}
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon code not found"})
	case errors.Is(err, service.ErrDiscountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount not found"})
	case errors.Is(err, service.ErrAlreadyApplied):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "booking already has a discount applied"})
	case errors.Is(err, service.ErrNotApplied):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no discount applied to booking"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("booking_id", bookingID.String()).
		Msg("failed to process booking discount")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func parseBookingID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// ApplyDiscount handles POST /api/bookings/:id/discount requests.
func (h *BookingDiscountHandler) ApplyDiscount(c *fiber.Ctx) error {
	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: booking id must be a UUID"})
	}

	var req model.ApplyDiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	bd, err := h.service.Apply(c.Context(), bookingID, &req)
	if err != nil {
		return h.respondApplyError(c, bookingID, err)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("booking_id", bookingID.String()).
		Str("discount_id", bd.DiscountID.String()).
		Str("guest_id", bd.GuestID).
		Str("discount_amount", bd.Amount.String()).
		Msg("discount applied to booking")

	return c.Status(fiber.StatusCreated).JSON(model.NewAppliedDiscountResponse(bd))
}

// GetDiscount handles GET /api/bookings/:id/discount requests.
func (h *BookingDiscountHandler) GetDiscount(c *fiber.Ctx) error {
	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: booking id must be a UUID"})
	}

	bd, err := h.service.Get(c.Context(), bookingID)
	if err != nil {
		return h.respondApplyError(c, bookingID, err)
	}
	return c.JSON(model.NewAppliedDiscountResponse(bd))
}

// RemoveDiscount handles DELETE /api/bookings/:id/discount requests.
func (h *BookingDiscountHandler) RemoveDiscount(c *fiber.Ctx) error {
	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: booking id must be a UUID"})
	}

	if err := h.service.Remove(c.Context(), bookingID); err != nil {
		return h.respondApplyError(c, bookingID, err)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("booking_id", bookingID.String()).
		Msg("discount removed from booking")

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// ReplaceDiscount handles PUT /api/bookings/:id/discount requests.
func (h *BookingDiscountHandler) ReplaceDiscount(c *fiber.Ctx) error {
	bookingID, err := parseBookingID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: booking id must be a UUID"})
	}

	var req model.ApplyDiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	bd, err := h.service.Replace(c.Context(), bookingID, &req)
	if err != nil {
		return h.respondApplyError(c, bookingID, err)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("booking_id", bookingID.String()).
		Str("discount_id", bd.DiscountID.String()).
		Msg("booking discount replaced")

	return c.JSON(model.NewAppliedDiscountResponse(bd))
}
