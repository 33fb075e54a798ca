package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes the order surface the payment core collaborates with.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	NotifyCaptured(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// CreateOrderInput captures the data an order requires.
type CreateOrderInput struct {
	BuyerID     uuid.UUID
	TotalAmount decimal.Decimal
	Currency    enums.Currency
}

type service struct {
	repo Repository
}

// NewService wires an orders service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}

	order := &models.Order{
		BuyerID:     input.BuyerID,
		TotalAmount: input.TotalAmount,
		Currency:    input.Currency,
		Status:      enums.OrderStatusPending,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetOrderTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return order.TotalAmount, nil
}

// NotifyCaptured advances the order to processing once its payment captures.
// Runs inside the caller's transaction so the order and intent move together.
func (s *service) NotifyCaptured(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.UpdateStatus(ctx, orderID, enums.OrderStatusProcessing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order processing")
	}
	return nil
}
