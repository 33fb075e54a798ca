package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a payment intent.
type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "created"
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusAuthorized        PaymentStatus = "authorized"
	PaymentStatusCaptured          PaymentStatus = "captured"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusFailed            PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusCreated,
	PaymentStatusPending,
	PaymentStatusAuthorized,
	PaymentStatusCaptured,
	PaymentStatusPartiallyRefunded,
	PaymentStatusRefunded,
	PaymentStatusCancelled,
	PaymentStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (p PaymentStatus) IsTerminal() bool {
	switch p {
	case PaymentStatusCancelled, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsRefundable reports whether a refund may be applied from this status.
func (p PaymentStatus) IsRefundable() bool {
	return p == PaymentStatusCaptured || p == PaymentStatusPartiallyRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
