package enums

import "fmt"

// PaymentEventType labels entries in the append-only payment event log.
type PaymentEventType string

const (
	PaymentEventCreated          PaymentEventType = "created"
	PaymentEventAuthorized       PaymentEventType = "authorized"
	PaymentEventCaptured         PaymentEventType = "captured"
	PaymentEventCancelled        PaymentEventType = "cancelled"
	PaymentEventFailed           PaymentEventType = "failed"
	PaymentEventRefunded         PaymentEventType = "refunded"
	PaymentEventThreeDSInitiated PaymentEventType = "three_ds.initiated"
	PaymentEventThreeDSCompleted PaymentEventType = "three_ds.completed"
	PaymentEventWebhookCaptured  PaymentEventType = "webhook.payment.captured"
	PaymentEventWebhookFailed    PaymentEventType = "webhook.payment.failed"
	PaymentEventWebhookRefunded  PaymentEventType = "webhook.payment.refunded"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventCreated,
	PaymentEventAuthorized,
	PaymentEventCaptured,
	PaymentEventCancelled,
	PaymentEventFailed,
	PaymentEventRefunded,
	PaymentEventThreeDSInitiated,
	PaymentEventThreeDSCompleted,
	PaymentEventWebhookCaptured,
	PaymentEventWebhookFailed,
	PaymentEventWebhookRefunded,
}

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentEventType.
func (p PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
