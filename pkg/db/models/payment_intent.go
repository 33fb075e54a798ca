package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/pkg/enums"
)

// PaymentIntent tracks the payment lifecycle for a single order. Monetary
// fields are fixed at creation; RefundedAmount only ever grows and never
// exceeds Amount. The full card number is never stored, only the derived
// last four digits and brand.
type PaymentIntent struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_payment_intents_order"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:varchar(3);not null"`
	Method            enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Provider          string              `gorm:"column:provider;not null;default:'MANUAL'"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'created'"`
	Requires3DSecure  bool                `gorm:"column:requires_3d_secure;not null;default:false"`
	CardLast4         *string             `gorm:"column:card_last4;type:varchar(4)"`
	CardBrand         *enums.CardBrand    `gorm:"column:card_brand;type:varchar(20)"`
	InstallmentCount  *int                `gorm:"column:installment_count"`
	InstallmentAmount *decimal.Decimal    `gorm:"column:installment_amount;type:numeric(12,2)"`
	ExternalReference *string             `gorm:"column:external_reference;index"`
	RefundedAmount    decimal.Decimal     `gorm:"column:refunded_amount;type:numeric(12,2);not null;default:0"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	AuthorizedAt      *time.Time          `gorm:"column:authorized_at"`
	CapturedAt        *time.Time          `gorm:"column:captured_at"`
	FailedAt          *time.Time          `gorm:"column:failed_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingRefundable is Amount minus the refunds applied so far.
func (p *PaymentIntent) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}
