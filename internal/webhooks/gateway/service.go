package gatewaywebhook

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

// Gateway event types the ingestor understands. Anything else is absorbed.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventPaymentRefunded = "payment.refunded"
)

// Event is the payload shape the processor pushes on payment status changes.
type Event struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	ExternalReference string          `json:"external_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Message           string          `json:"message"`
}

type paymentTransitions interface {
	HandleGatewayCapture(ctx context.Context, externalReference, message string) error
	HandleGatewayFailure(ctx context.Context, externalReference, message string) error
	HandleGatewayRefund(ctx context.Context, externalReference string, amount decimal.Decimal, message string) error
}

type signatureValidator interface {
	ValidateSignature(payload []byte, signature string) bool
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
}

type ServiceParams struct {
	Payments  paymentTransitions
	Validator signatureValidator
	Guard     eventGuard
	Logger    *logger.Logger
}

// Service ingests signed gateway webhooks and maps them onto intent
// transitions. Deliveries for unknown references, redeliveries, and illegal
// transitions are acknowledged rather than errored so the sender stops
// retrying; only signature failures and infrastructure errors surface.
type Service struct {
	payments  paymentTransitions
	validator signatureValidator
	guard     eventGuard
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Validator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature validator required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments:  params.Payments,
		validator: params.Validator,
		guard:     params.Guard,
		logg:      params.Logger,
	}, nil
}

// HandleDelivery verifies and applies one webhook delivery.
func (s *Service) HandleDelivery(ctx context.Context, payload []byte, signature string) error {
	if !s.validator.ValidateSignature(payload, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if event.ExternalReference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":           event.EventID,
		"event_type":         event.EventType,
		"external_reference": event.ExternalReference,
	})

	if s.guard != nil && event.EventID != "" {
		seen, err := s.guard.CheckAndMark(ctx, event.EventID)
		if err != nil {
			// A cache outage must not drop webhooks; the state machine's
			// no-op rule still protects against double application.
			s.logg.Error(ctx, "webhook idempotency check failed", err)
		} else if seen {
			s.logg.Info(ctx, "webhook event already processed")
			return nil
		}
	}

	var err error
	switch event.EventType {
	case EventPaymentCaptured:
		err = s.payments.HandleGatewayCapture(ctx, event.ExternalReference, event.Message)
	case EventPaymentFailed:
		err = s.payments.HandleGatewayFailure(ctx, event.ExternalReference, event.Message)
	case EventPaymentRefunded:
		err = s.payments.HandleGatewayRefund(ctx, event.ExternalReference, event.Amount, event.Message)
	default:
		s.logg.Info(ctx, "ignoring unrecognized webhook event type")
		return nil
	}
	if err == nil {
		return nil
	}

	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
		// Foreign or stale reference. Acknowledge so the sender stops
		// retrying; this is policy, not an error.
		s.logg.Info(ctx, "webhook references unknown payment intent")
		return nil
	case pkgerrors.HasCode(err, pkgerrors.CodeStateConflict):
		s.logg.Warn(ctx, "webhook transition not applicable: "+err.Error())
		return nil
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		return err
	default:
		return err
	}
}
