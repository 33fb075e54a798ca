package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	"github.com/avillareal/marketpay-backend/pkg/migrate"
)

func setupOrdersDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrateModels(conn))
	return conn
}

func TestCreatePersistsGeneratedID(t *testing.T) {
	conn := setupOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := &models.Order{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(120),
		Currency:    enums.CurrencyUSD,
		Status:      enums.OrderStatusPending,
	}
	require.NoError(t, repo.Create(ctx, order))
	require.NotEqual(t, uuid.Nil, order.ID)

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, loaded.ID)
	require.True(t, loaded.TotalAmount.Equal(order.TotalAmount))
}

func TestUpdateStatusPersists(t *testing.T) {
	conn := setupOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	order := &models.Order{
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(50),
		Currency:    enums.CurrencyUSD,
		Status:      enums.OrderStatusPending,
	}
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, loaded.Status)
}
