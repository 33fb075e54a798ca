package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avillareal/marketpay-backend/pkg/enums"
)

// PaymentEvent records an immutable audit entry for a payment intent. Rows
// are append-only; the state machine is authoritative and events are its
// trace, never its input.
type PaymentEvent struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	IntentID  uuid.UUID              `gorm:"column:intent_id;type:uuid;not null;index"`
	Type      enums.PaymentEventType `gorm:"column:type;type:payment_event_type;not null"`
	Message   *string                `gorm:"column:message"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
