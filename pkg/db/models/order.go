package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/pkg/enums"
)

// Order is the checkout-owned aggregate a payment intent settles against.
// The payment core reads its total at intent creation and advances its
// status to processing once funds are captured.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID       uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	TotalAmount   decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency      enums.Currency    `gorm:"column:currency;type:varchar(3);not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentIntent *PaymentIntent    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
