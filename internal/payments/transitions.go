package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/gateway"
)

func (s *service) Authorize(ctx context.Context, input AuthorizeInput) (*models.PaymentIntent, error) {
	if input.IntentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}

	var result *models.PaymentIntent
	var declineMsg string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, input.IntentID)
		if err != nil {
			return err
		}
		if intent.Status != enums.PaymentStatusCreated {
			return stateConflict("authorize", intent.Status)
		}
		if !intent.Method.RequiresGateway() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("method %s does not authorize through a gateway", intent.Method))
		}

		res, err := s.gatewayInitiate(ctx, intent, input.Card)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if !res.Success {
			declineMsg = declineReason(res.Message)
			return s.persistFail(ctx, repo, intent, declineMsg, now, enums.PaymentEventFailed)
		}

		ref := res.Reference
		intent.ExternalReference = &ref
		if intent.AuthorizedAt == nil {
			intent.AuthorizedAt = &now
		}
		intent.Status = enums.PaymentStatusAuthorized
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventAuthorized, ""); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("authorize", err, false, declineMsg != "")
	if err != nil {
		return nil, err
	}
	if declineMsg != "" {
		intent, gerr := s.Get(ctx, input.IntentID)
		if gerr == nil {
			s.notifyPayment(ctx, intent, "Payment failed", declineMsg)
		}
		return intent, pkgerrors.New(pkgerrors.CodeDependency, "payment declined: "+declineMsg)
	}
	s.notifyPayment(ctx, result, "Payment authorized", fmt.Sprintf("Your payment of %s %s was authorized.", result.Amount, result.Currency))
	return result, nil
}

func (s *service) Capture(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}

	var result *models.PaymentIntent
	var noop bool
	var declineMsg string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if intent.Status == enums.PaymentStatusCaptured {
			result, noop = intent, true
			return nil
		}
		if intent.Status != enums.PaymentStatusCreated && intent.Status != enums.PaymentStatusAuthorized {
			return stateConflict("capture", intent.Status)
		}

		now := time.Now().UTC()
		if intent.Method.RequiresGateway() {
			if intent.Status == enums.PaymentStatusCreated {
				res, err := s.gatewayInitiate(ctx, intent, nil)
				if err != nil {
					return err
				}
				if !res.Success {
					declineMsg = declineReason(res.Message)
					return s.persistFail(ctx, repo, intent, declineMsg, now, enums.PaymentEventFailed)
				}
				ref := res.Reference
				intent.ExternalReference = &ref
			}
			if intent.ExternalReference != nil {
				res, err := s.gatewayComplete(ctx, *intent.ExternalReference)
				if err != nil {
					return err
				}
				if !res.Success {
					declineMsg = declineReason(res.Message)
					return s.persistFail(ctx, repo, intent, declineMsg, now, enums.PaymentEventFailed)
				}
			}
		}

		applyCapture(intent, now)
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCaptured, ""); err != nil {
			return err
		}
		if err := s.orders.NotifyCaptured(ctx, tx, intent.OrderID); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("capture", err, noop, declineMsg != "")
	if err != nil {
		return nil, err
	}
	if declineMsg != "" {
		intent, gerr := s.Get(ctx, id)
		if gerr == nil {
			s.notifyPayment(ctx, intent, "Payment failed", declineMsg)
		}
		return intent, pkgerrors.New(pkgerrors.CodeDependency, "payment declined: "+declineMsg)
	}
	if !noop {
		s.notifyPayment(ctx, result, "Payment received", fmt.Sprintf("Your payment of %s %s was captured.", result.Amount, result.Currency))
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	var result *models.PaymentIntent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		switch intent.Status {
		case enums.PaymentStatusCreated, enums.PaymentStatusPending, enums.PaymentStatusAuthorized:
		default:
			return stateConflict("cancel", intent.Status)
		}

		intent.FailureReason = &reason
		intent.Status = enums.PaymentStatusCancelled
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCancelled, reason); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("cancel", err, false, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Fail(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}

	var result *models.PaymentIntent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if intent.Status != enums.PaymentStatusCreated && intent.Status != enums.PaymentStatusPending {
			return stateConflict("fail", intent.Status)
		}
		if err := s.persistFail(ctx, repo, intent, reason, time.Now().UTC(), enums.PaymentEventFailed); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("fail", err, false, false)
	if err != nil {
		return nil, err
	}
	s.notifyPayment(ctx, result, "Payment failed", reason)
	return result, nil
}

func (s *service) Confirm3DSecure(ctx context.Context, id uuid.UUID, outcome enums.ThreeDSOutcome) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if !outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid 3D Secure outcome %q", outcome))
	}

	var result *models.PaymentIntent
	var noop, captured, failed bool
	var declineMsg string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if !intent.Requires3DSecure {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent does not require 3D Secure")
		}
		if outcome == enums.ThreeDSOutcomeSuccess && intent.Status == enums.PaymentStatusCaptured {
			result, noop = intent, true
			return nil
		}
		if outcome == enums.ThreeDSOutcomeFailed && intent.Status == enums.PaymentStatusFailed {
			result, noop = intent, true
			return nil
		}
		if intent.Status != enums.PaymentStatusPending {
			return stateConflict("confirm 3D Secure for", intent.Status)
		}

		now := time.Now().UTC()
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventThreeDSCompleted, fmt.Sprintf("3D Secure outcome: %s", outcome)); err != nil {
			return err
		}

		if outcome == enums.ThreeDSOutcomeFailed {
			failed = true
			result = intent
			return s.persistFail(ctx, repo, intent, "3D Secure authentication failed", now, enums.PaymentEventFailed)
		}

		if intent.ExternalReference == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no 3D Secure challenge in flight for payment intent")
		}
		res, err := s.gatewayComplete3DS(ctx, *intent.ExternalReference)
		if err != nil {
			return err
		}
		if !res.Success {
			declineMsg = declineReason(res.Message)
			return s.persistFail(ctx, repo, intent, declineMsg, now, enums.PaymentEventFailed)
		}

		applyCapture(intent, now)
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCaptured, ""); err != nil {
			return err
		}
		if err := s.orders.NotifyCaptured(ctx, tx, intent.OrderID); err != nil {
			return err
		}
		captured = true
		result = intent
		return nil
	})
	s.recordTransition("confirm_3ds", err, noop, declineMsg != "")
	if err != nil {
		return nil, err
	}
	if declineMsg != "" {
		intent, gerr := s.Get(ctx, id)
		if gerr == nil {
			s.notifyPayment(ctx, intent, "Payment failed", declineMsg)
		}
		return intent, pkgerrors.New(pkgerrors.CodeDependency, "payment declined: "+declineMsg)
	}
	if captured {
		s.notifyPayment(ctx, result, "Payment received", fmt.Sprintf("Your payment of %s %s was captured.", result.Amount, result.Currency))
	}
	if failed {
		result, _ = s.Get(ctx, id)
		s.notifyPayment(ctx, result, "Payment failed", "3D Secure authentication failed")
	}
	return result, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.IntentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if input.Amount != nil && input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var result *RefundResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, input.IntentID)
		if err != nil {
			return err
		}
		if !intent.Status.IsRefundable() {
			return stateConflict("refund", intent.Status)
		}

		remaining := intent.RemainingRefundable()
		amount := remaining
		if input.Amount != nil {
			amount = *input.Amount
		}
		if amount.GreaterThan(remaining) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("refund of %s exceeds remaining refundable amount %s", amount, remaining))
		}

		if intent.Method.RequiresGateway() && intent.ExternalReference != nil {
			res, err := s.gatewayRefund(ctx, *intent.ExternalReference, amount)
			if err != nil {
				return err
			}
			if !res.Success {
				return pkgerrors.New(pkgerrors.CodeDependency, "gateway refused refund: "+declineReason(res.Message))
			}
		}

		intent.RefundedAmount = intent.RefundedAmount.Add(amount)
		if intent.RefundedAmount.Equal(intent.Amount) {
			intent.Status = enums.PaymentStatusRefunded
		} else {
			intent.Status = enums.PaymentStatusPartiallyRefunded
		}
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventRefunded,
			fmt.Sprintf("refunded %s %s: %s", amount, intent.Currency, input.Reason)); err != nil {
			return err
		}
		result = &RefundResult{
			Intent:          intent,
			RefundedAmount:  intent.RefundedAmount,
			RemainingAmount: intent.RemainingRefundable(),
		}
		return nil
	})
	s.recordTransition("refund", err, false, false)
	if err != nil {
		return nil, err
	}
	s.notifyPayment(ctx, result.Intent, "Payment refunded",
		fmt.Sprintf("A refund of %s %s was issued.", result.Intent.RefundedAmount, result.Intent.Currency))
	return result, nil
}

func (s *service) MarkReceived(ctx context.Context, id uuid.UUID, privileged bool) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if !privileged {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "marking a payment received requires administrative access")
	}

	var result *models.PaymentIntent
	var noop bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if intent.Status == enums.PaymentStatusCaptured {
			result, noop = intent, true
			return nil
		}
		if intent.Status != enums.PaymentStatusCreated {
			return stateConflict("mark received", intent.Status)
		}

		applyCapture(intent, time.Now().UTC())
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCaptured, "manually marked as received"); err != nil {
			return err
		}
		if err := s.orders.NotifyCaptured(ctx, tx, intent.OrderID); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("mark_received", err, noop, false)
	if err != nil {
		return nil, err
	}
	if !noop {
		s.notifyPayment(ctx, result, "Payment received", fmt.Sprintf("Your payment of %s %s was received.", result.Amount, result.Currency))
	}
	return result, nil
}

func (s *service) SimulateSuccess(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if err := s.simulationAllowed(id); err != nil {
		return nil, err
	}

	var result *models.PaymentIntent
	var noop bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if intent.Status == enums.PaymentStatusCaptured {
			result, noop = intent, true
			return nil
		}
		if intent.Status != enums.PaymentStatusCreated {
			return stateConflict("simulate success for", intent.Status)
		}

		applyCapture(intent, time.Now().UTC())
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCaptured, "simulated capture"); err != nil {
			return err
		}
		if err := s.orders.NotifyCaptured(ctx, tx, intent.OrderID); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("simulate_success", err, noop, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) SimulateFail(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if err := s.simulationAllowed(id); err != nil {
		return nil, err
	}

	var result *models.PaymentIntent
	var noop bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := s.lockIntent(ctx, repo, id)
		if err != nil {
			return err
		}
		if intent.Status == enums.PaymentStatusFailed {
			result, noop = intent, true
			return nil
		}
		if intent.Status != enums.PaymentStatusCreated {
			return stateConflict("simulate failure for", intent.Status)
		}
		if err := s.persistFail(ctx, repo, intent, "simulated failure", time.Now().UTC(), enums.PaymentEventFailed); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("simulate_fail", err, noop, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) simulationAllowed(id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if !s.cfg.AllowSimulation {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment simulation is disabled")
	}
	return nil
}

// --- webhook-driven transitions (no gateway callbacks issued) ---

func (s *service) HandleGatewayCapture(ctx context.Context, externalReference, message string) error {
	var result *models.PaymentIntent
	var noop bool
	err := s.withIntentByReference(ctx, externalReference, func(tx *gorm.DB, repo Repository, intent *models.PaymentIntent) error {
		if intent.Status == enums.PaymentStatusCaptured {
			noop = true
			return nil
		}
		switch intent.Status {
		case enums.PaymentStatusCreated, enums.PaymentStatusPending, enums.PaymentStatusAuthorized:
		default:
			return stateConflict("capture", intent.Status)
		}

		applyCapture(intent, time.Now().UTC())
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventWebhookCaptured, message); err != nil {
			return err
		}
		if err := s.orders.NotifyCaptured(ctx, tx, intent.OrderID); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("webhook_capture", err, noop, false)
	if err != nil {
		return err
	}
	if result != nil {
		s.notifyPayment(ctx, result, "Payment received", fmt.Sprintf("Your payment of %s %s was captured.", result.Amount, result.Currency))
	}
	return nil
}

func (s *service) HandleGatewayFailure(ctx context.Context, externalReference, message string) error {
	var result *models.PaymentIntent
	var noop bool
	err := s.withIntentByReference(ctx, externalReference, func(tx *gorm.DB, repo Repository, intent *models.PaymentIntent) error {
		if intent.Status == enums.PaymentStatusFailed {
			noop = true
			return nil
		}
		if intent.Status != enums.PaymentStatusCreated && intent.Status != enums.PaymentStatusPending {
			return stateConflict("fail", intent.Status)
		}
		if err := s.persistFail(ctx, repo, intent, declineReason(message), time.Now().UTC(), enums.PaymentEventWebhookFailed); err != nil {
			return err
		}
		result = intent
		return nil
	})
	s.recordTransition("webhook_fail", err, noop, false)
	if err != nil {
		return err
	}
	if result != nil {
		s.notifyPayment(ctx, result, "Payment failed", declineReason(message))
	}
	return nil
}

func (s *service) HandleGatewayRefund(ctx context.Context, externalReference string, amount decimal.Decimal, message string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	err := s.withIntentByReference(ctx, externalReference, func(tx *gorm.DB, repo Repository, intent *models.PaymentIntent) error {
		if !intent.Status.IsRefundable() {
			return stateConflict("refund", intent.Status)
		}
		if amount.GreaterThan(intent.RemainingRefundable()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("refund of %s exceeds remaining refundable amount %s", amount, intent.RemainingRefundable()))
		}

		intent.RefundedAmount = intent.RefundedAmount.Add(amount)
		if intent.RefundedAmount.Equal(intent.Amount) {
			intent.Status = enums.PaymentStatusRefunded
		} else {
			intent.Status = enums.PaymentStatusPartiallyRefunded
		}
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
		}
		return s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventWebhookRefunded, message)
	})
	s.recordTransition("webhook_refund", err, false, false)
	return err
}

func (s *service) withIntentByReference(ctx context.Context, externalReference string, fn func(tx *gorm.DB, repo Repository, intent *models.PaymentIntent) error) error {
	if externalReference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		intent, err := repo.FindIntentByExternalReferenceForUpdate(ctx, externalReference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no payment intent for external reference")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}
		return fn(tx, repo, intent)
	})
}

func (s *service) persistFail(ctx context.Context, repo Repository, intent *models.PaymentIntent, reason string, now time.Time, eventType enums.PaymentEventType) error {
	applyFail(intent, reason, now)
	if err := repo.UpdateIntent(ctx, intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
	}
	return s.appendEvent(ctx, repo, intent.ID, eventType, reason)
}

// --- gateway calls ---

func (s *service) gatewayInitiate(ctx context.Context, intent *models.PaymentIntent, card *CardInput) (*gateway.Result, error) {
	req := gateway.PaymentRequest{
		Reference: intent.ID.String(),
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Card:      cardDetails(card),
	}
	if intent.InstallmentCount != nil {
		req.InstallmentCount = *intent.InstallmentCount
	}
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.gateway.InitiatePayment(callCtx, req)
	s.metrics.ObserveGatewayCall("initiate_payment", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway authorize call failed")
	}
	return res, nil
}

func (s *service) gatewayInitiate3DS(ctx context.Context, intent *models.PaymentIntent, input CreateIntentInput) (*gateway.ThreeDSResult, error) {
	req := gateway.PaymentRequest{
		Reference: intent.OrderID.String(),
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Card:      cardDetails(input.Card),
		ReturnURL: input.ReturnURL,
	}
	if intent.InstallmentCount != nil {
		req.InstallmentCount = *intent.InstallmentCount
	}
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.gateway.Initiate3DSPayment(callCtx, req)
	s.metrics.ObserveGatewayCall("initiate_3ds", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway 3D Secure initiation failed")
	}
	return res, nil
}

func (s *service) gatewayComplete(ctx context.Context, reference string) (*gateway.Result, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.gateway.CompletePayment(callCtx, reference)
	s.metrics.ObserveGatewayCall("complete_payment", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway capture call failed")
	}
	return res, nil
}

func (s *service) gatewayComplete3DS(ctx context.Context, reference string) (*gateway.Result, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.gateway.Complete3DSPayment(callCtx, reference)
	s.metrics.ObserveGatewayCall("complete_3ds", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway 3D Secure completion failed")
	}
	return res, nil
}

func (s *service) gatewayRefund(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := s.gateway.Refund(callCtx, reference, amount)
	s.metrics.ObserveGatewayCall("refund", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund call failed")
	}
	return res, nil
}
