package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
)

type fakeOrdersRepo struct {
	orders    map[uuid.UUID]*models.Order
	createErr error
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	order, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	return nil
}

func TestCreateOrderValidatesInput(t *testing.T) {
	svc, err := NewService(newFakeOrdersRepo())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		TotalAmount: decimal.NewFromInt(10),
		Currency:    enums.CurrencyUSD,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID:  uuid.New(),
		Currency: enums.CurrencyUSD,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(10),
		Currency:    enums.Currency("DOGE"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCreateOrderStartsPending(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.RequireFromString("149.90"),
		Currency:    enums.CurrencyUSD,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.True(t, order.TotalAmount.Equal(decimal.RequireFromString("149.90")))
}

func TestGetOrderTotal(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(300),
		Currency:    enums.CurrencyEUR,
	})
	require.NoError(t, err)

	total, err := svc.GetOrderTotal(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(300)))

	_, err = svc.GetOrderTotal(context.Background(), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestNotifyCapturedMovesOrderToProcessing(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(50),
		Currency:    enums.CurrencyUSD,
	})
	require.NoError(t, err)

	require.NoError(t, svc.NotifyCaptured(context.Background(), nil, order.ID))
	require.Equal(t, enums.OrderStatusProcessing, repo.orders[order.ID].Status)
}

func TestCreateOrderWrapsRepoErrors(t *testing.T) {
	repo := newFakeOrdersRepo()
	repo.createErr = errors.New("connection reset")
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateOrderInput{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(10),
		Currency:    enums.CurrencyUSD,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
