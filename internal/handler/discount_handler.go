package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
	"github.com/fairyhunter13/stay-discount-engine/internal/service"
)

// DiscountServiceInterface defines the interface for discount catalog
// business logic.
type DiscountServiceInterface interface {
	Create(ctx context.Context, req *model.CreateDiscountRequest) (*model.Discount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
	ListActive(ctx context.Context, asOf time.Time) ([]model.Discount, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateCode(ctx context.Context, req *model.CreateCouponCodeRequest) (*model.CouponCode, error)
}

// DiscountHandler handles HTTP requests for the discount catalog and
// coupon code management.
type DiscountHandler struct {
	service   DiscountServiceInterface
	validator *validator.Validate
}

// NewDiscountHandler creates a new DiscountHandler with the given service and validator.
func NewDiscountHandler(svc DiscountServiceInterface, v *validator.Validate) *DiscountHandler {
	return &DiscountHandler{service: svc, validator: v}
}

// formatValidationError converts validator errors to operator-facing messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := toSnake(fe.Field())
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be blank"
			case "max":
				return "invalid request: " + field + " exceeds maximum length"
			case "oneof":
				return "invalid request: " + field + " has an unsupported value"
			case "datetime":
				return "invalid request: " + field + " must be a date in YYYY-MM-DD format"
			case "gte":
				return "invalid request: " + field + " is below the allowed minimum"
			case "len":
				return "invalid request: " + field + " has the wrong length"
			case "uuid":
				return "invalid request: " + field + " must be a UUID"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// toSnake converts a Go field name to its snake_case JSON counterpart.
func toSnake(field string) string {
	out := make([]rune, 0, len(field)+4)
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && field[i-1] >= 'a' && field[i-1] <= 'z' {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// CreateDiscount handles POST /api/discounts requests.
func (h *DiscountHandler) CreateDiscount(c *fiber.Ctx) error {
	var req model.CreateDiscountRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	d, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("discount_name", req.Name).Msg("failed to create discount")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("discount_id", d.ID.String()).
		Str("discount_name", d.Name).
		Msg("discount created")

	return c.Status(fiber.StatusCreated).JSON(model.NewDiscountResponse(d))
}

// GetDiscount handles GET /api/discounts/:id requests. The response
// always carries the live usage count, never a cached one.
func (h *DiscountHandler) GetDiscount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a UUID"})
	}

	d, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount not found"})
		}
		log.Error().Err(err).Str("discount_id", id.String()).Msg("failed to get discount")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(model.NewDiscountResponse(d))
}

// ListDiscounts handles GET /api/discounts requests, returning the
// discounts active on the as_of date (default today).
func (h *DiscountHandler) ListDiscounts(c *fiber.Ctx) error {
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := model.ParseDate(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: as_of must be a date in YYYY-MM-DD format"})
		}
		asOf = parsed
	}

	discounts, err := h.service.ListActive(c.Context(), asOf)
	if err != nil {
		log.Error().Err(err).Msg("failed to list discounts")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	responses := make([]*model.DiscountResponse, 0, len(discounts))
	for i := range discounts {
		responses = append(responses, model.NewDiscountResponse(&discounts[i]))
	}
	return c.JSON(responses)
}

// DeleteDiscount handles DELETE /api/discounts/:id requests (soft delete).
func (h *DiscountHandler) DeleteDiscount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a UUID"})
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount not found"})
		}
		log.Error().Err(err).Str("discount_id", id.String()).Msg("failed to delete discount")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("discount_id", id.String()).Msg("discount deleted")
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// CreateCouponCode handles POST /api/coupon-codes requests.
func (h *DiscountHandler) CreateCouponCode(c *fiber.Ctx) error {
	var req model.CreateCouponCodeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	code, err := h.service.CreateCode(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponCodeExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon code already exists"})
		}
		if errors.Is(err, service.ErrDiscountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "discount not found"})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("coupon_code", req.Code).Msg("failed to create coupon code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("coupon_code_id", code.ID.String()).
		Str("discount_id", code.DiscountID.String()).
		Msg("coupon code created")

	return c.Status(fiber.StatusCreated).JSON(code)
}
