package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/stay-discount-engine/internal/model"
)

// mockDiscountRepository is a mock implementation of DiscountRepositoryInterface.
type mockDiscountRepository struct {
	insertFn     func(ctx context.Context, d *model.Discount) error
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*model.Discount, error)
	listActiveFn func(ctx context.Context, asOf time.Time) ([]model.Discount, error)
	softDeleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockDiscountRepository) Insert(ctx context.Context, d *model.Discount) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, d)
	}
	return nil
}

func (m *mockDiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDiscountRepository) ListActive(ctx context.Context, asOf time.Time) ([]model.Discount, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, asOf)
	}
	return []model.Discount{}, nil
}

func (m *mockDiscountRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

// mockCouponCodeRepository is a mock implementation of CouponCodeRepositoryInterface.
type mockCouponCodeRepository struct {
	insertFn     func(ctx context.Context, code *model.CouponCode) error
	findByCodeFn func(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error)
}

func (m *mockCouponCodeRepository) Insert(ctx context.Context, code *model.CouponCode) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, code)
	}
	return nil
}

func (m *mockCouponCodeRepository) FindByCode(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error) {
	if m.findByCodeFn != nil {
		return m.findByCodeFn(ctx, code)
	}
	return nil, nil, nil
}

func intPtr(i int) *int {
	return &i
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validCreateRequest() *model.CreateDiscountRequest {
	return &model.CreateDiscountRequest{
		Name:       "Winter Sale",
		Type:       "percentage",
		Amount:     decPtr("20"),
		ValidFrom:  "2025-12-01",
		ValidUntil: "2025-12-31",
	}
}

func TestDiscountService_Create_Success(t *testing.T) {
	var captured *model.Discount
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, d *model.Discount) error {
			captured = d
			return nil
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	d, err := svc.Create(context.Background(), validCreateRequest())

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "Winter Sale", captured.Name)
	assert.Equal(t, model.DiscountTypePercentage, captured.Type)
	assert.Equal(t, model.DiscountStatusActive, captured.Status, "status should default to active")
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, 0, d.UsageCount)
}

func TestDiscountService_Create_FixedKeepsCurrency(t *testing.T) {
	var captured *model.Discount
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, d *model.Discount) error {
			captured = d
			return nil
		},
	}

	req := validCreateRequest()
	req.Type = "fixed"
	req.Amount = decPtr("30")
	req.Currency = "USD"

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "USD", captured.Currency)
}

func TestDiscountService_Create_PercentageBlanksCurrency(t *testing.T) {
	var captured *model.Discount
	repo := &mockDiscountRepository{
		insertFn: func(ctx context.Context, d *model.Discount) error {
			captured = d
			return nil
		},
	}

	req := validCreateRequest()
	req.Currency = "EUR" // meaningless for a percentage

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, captured.Currency)
}

func TestDiscountService_Create_NilRequest(t *testing.T) {
	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})

	_, err := svc.Create(context.Background(), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Create_NegativeAmount(t *testing.T) {
	req := validCreateRequest()
	req.Amount = decPtr("-5")

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Create_PercentageOver100(t *testing.T) {
	req := validCreateRequest()
	req.Amount = decPtr("120")

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "percentage")
}

func TestDiscountService_Create_FixedWithoutCurrency(t *testing.T) {
	req := validCreateRequest()
	req.Type = "fixed"
	req.Amount = decPtr("30")
	req.Currency = ""

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "currency")
}

func TestDiscountService_Create_InvertedValidityWindow(t *testing.T) {
	req := validCreateRequest()
	req.ValidFrom = "2025-12-31"
	req.ValidUntil = "2025-12-01"

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_Create_SingleDayWindow(t *testing.T) {
	// valid_from == valid_until is a one-day window, not an error.
	req := validCreateRequest()
	req.ValidFrom = "2025-12-24"
	req.ValidUntil = "2025-12-24"

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.NoError(t, err)
}

func TestDiscountService_Create_BadBlackoutDate(t *testing.T) {
	req := validCreateRequest()
	req.BlackoutDates = []string{"2025-12-25", "not-a-date"}

	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})
	_, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_GetByID_NotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
			return nil, nil // not found
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	d, err := svc.GetByID(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscountNotFound))
	assert.Nil(t, d)
}

func TestDiscountService_GetByID_RepositoryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
			return nil, dbErr
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	_, err := svc.GetByID(context.Background(), uuid.New())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDiscountNotFound))
}

func TestDiscountService_CreateCode_Success(t *testing.T) {
	discountID := uuid.New()
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
			return &model.Discount{ID: id}, nil
		},
	}
	var captured *model.CouponCode
	couponRepo := &mockCouponCodeRepository{
		insertFn: func(ctx context.Context, code *model.CouponCode) error {
			captured = code
			return nil
		},
	}

	svc := NewDiscountService(repo, couponRepo)
	code, err := svc.CreateCode(context.Background(), &model.CreateCouponCodeRequest{
		DiscountID: discountID.String(),
		Code:       "  SUMMER25  ",
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "SUMMER25", captured.Code, "code should be trimmed")
	assert.Equal(t, discountID, captured.DiscountID)
	assert.NotEqual(t, uuid.Nil, code.ID)
}

func TestDiscountService_CreateCode_DiscountNotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
			return nil, nil
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	_, err := svc.CreateCode(context.Background(), &model.CreateCouponCodeRequest{
		DiscountID: uuid.New().String(),
		Code:       "SUMMER25",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscountNotFound))
}

func TestDiscountService_CreateCode_DuplicateCode(t *testing.T) {
	repo := &mockDiscountRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
			return &model.Discount{ID: id}, nil
		},
	}
	couponRepo := &mockCouponCodeRepository{
		insertFn: func(ctx context.Context, code *model.CouponCode) error {
			return ErrCouponCodeExists
		},
	}

	svc := NewDiscountService(repo, couponRepo)
	_, err := svc.CreateCode(context.Background(), &model.CreateCouponCodeRequest{
		DiscountID: uuid.New().String(),
		Code:       "SUMMER25",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCouponCodeExists))
}

func TestDiscountService_CreateCode_BadDiscountID(t *testing.T) {
	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})

	_, err := svc.CreateCode(context.Background(), &model.CreateCouponCodeRequest{
		DiscountID: "not-a-uuid",
		Code:       "SUMMER25",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestDiscountService_ResolveCode_Success(t *testing.T) {
	discountID := uuid.New()
	var queried string
	couponRepo := &mockCouponCodeRepository{
		findByCodeFn: func(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error) {
			queried = code
			return &model.CouponCode{ID: uuid.New(), DiscountID: discountID, Code: "SUMMER25"},
				&model.Discount{ID: discountID}, nil
		},
	}

	svc := NewDiscountService(&mockDiscountRepository{}, couponRepo)
	code, discount, err := svc.ResolveCode(context.Background(), "  SUMMER25 ")

	require.NoError(t, err)
	assert.Equal(t, "SUMMER25", queried, "lookup input should be trimmed")
	require.NotNil(t, code)
	require.NotNil(t, discount)
	assert.Equal(t, discountID, discount.ID)
}

func TestDiscountService_ResolveCode_NotFound(t *testing.T) {
	svc := NewDiscountService(&mockDiscountRepository{}, &mockCouponCodeRepository{})

	code, discount, err := svc.ResolveCode(context.Background(), "NONEXISTENT")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCouponNotFound))
	assert.Nil(t, code)
	assert.Nil(t, discount)
}

func TestDiscountService_ResolveCode_InactiveDiscountStillResolves(t *testing.T) {
	couponRepo := &mockCouponCodeRepository{
		findByCodeFn: func(ctx context.Context, code string) (*model.CouponCode, *model.Discount, error) {
			return &model.CouponCode{ID: uuid.New(), Code: "OLD_PROMO"},
				&model.Discount{Status: model.DiscountStatusInactive}, nil
		},
	}

	svc := NewDiscountService(&mockDiscountRepository{}, couponRepo)
	code, discount, err := svc.ResolveCode(context.Background(), "OLD_PROMO")

	require.NoError(t, err, "resolution should succeed so eligibility can report the precise reason")
	require.NotNil(t, code)
	require.NotNil(t, discount)
	assert.Equal(t, model.DiscountStatusInactive, discount.Status)
}

func TestDiscountService_ListActive_PassesAsOf(t *testing.T) {
	asOf, _ := model.ParseDate("2025-12-24")
	var gotAsOf time.Time
	repo := &mockDiscountRepository{
		listActiveFn: func(ctx context.Context, when time.Time) ([]model.Discount, error) {
			gotAsOf = when
			return []model.Discount{{Name: "Winter Sale"}}, nil
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	list, err := svc.ListActive(context.Background(), asOf)

	require.NoError(t, err)
	assert.Equal(t, asOf, gotAsOf)
	assert.Len(t, list, 1)
}

func TestDiscountService_Delete_NotFound(t *testing.T) {
	repo := &mockDiscountRepository{
		softDeleteFn: func(ctx context.Context, id uuid.UUID) error {
			return ErrDiscountNotFound
		},
	}

	svc := NewDiscountService(repo, &mockCouponCodeRepository{})
	err := svc.Delete(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscountNotFound))
}
