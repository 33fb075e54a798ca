package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/cards"
	"github.com/avillareal/marketpay-backend/pkg/config"
	"github.com/avillareal/marketpay-backend/pkg/db"
	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/gateway"
	"github.com/avillareal/marketpay-backend/pkg/logger"
	"github.com/avillareal/marketpay-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderCollaborator interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	NotifyCaptured(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type buyerNotifier interface {
	SendPaymentUpdate(ctx context.Context, userID, orderID uuid.UUID, title, message string)
}

// Service drives the payment intent state machine. Every mutating operation
// runs in one transaction under a row lock on the intent, so concurrent calls
// against the same intent serialize and the refund guard can never be passed
// twice for the same balance.
type Service interface {
	Create(ctx context.Context, input CreateIntentInput) (*CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error)
	ListEvents(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error)

	Authorize(ctx context.Context, input AuthorizeInput) (*models.PaymentIntent, error)
	Capture(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error)
	Fail(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error)
	Confirm3DSecure(ctx context.Context, id uuid.UUID, outcome enums.ThreeDSOutcome) (*models.PaymentIntent, error)
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
	MarkReceived(ctx context.Context, id uuid.UUID, privileged bool) (*models.PaymentIntent, error)
	SimulateSuccess(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	SimulateFail(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)

	HandleGatewayCapture(ctx context.Context, externalReference, message string) error
	HandleGatewayFailure(ctx context.Context, externalReference, message string) error
	HandleGatewayRefund(ctx context.Context, externalReference string, amount decimal.Decimal, message string) error

	CheckBin(ctx context.Context, bin string) (*gateway.BinInfo, error)
	InstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]gateway.InstallmentOption, error)
}

// CardInput carries raw card data for the duration of one call. It is
// classified into last4/brand and then discarded, never persisted or logged.
type CardInput struct {
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVV         string
	HolderName  string
}

// CreateIntentInput captures everything intent creation needs. Amount always
// comes from the order, never from the caller.
type CreateIntentInput struct {
	OrderID          uuid.UUID
	Currency         enums.Currency
	Method           enums.PaymentMethod
	Card             *CardInput
	InstallmentCount int
	ReturnURL        string
}

// CreateResult reports the intent plus, when a 3-D Secure challenge was
// initiated, the HTML payload the buyer's browser must render.
type CreateResult struct {
	Intent         *models.PaymentIntent
	AlreadyExisted bool
	ThreeDSHTML    string
}

// AuthorizeInput optionally re-supplies card data for the gateway call, since
// the stored intent only retains last4/brand.
type AuthorizeInput struct {
	IntentID uuid.UUID
	Card     *CardInput
}

// RefundInput describes a refund request. A nil Amount refunds the full
// remaining balance.
type RefundInput struct {
	IntentID uuid.UUID
	Amount   *decimal.Decimal
	Reason   string
}

// RefundResult reports the ledger after a refund applied.
type RefundResult struct {
	Intent          *models.PaymentIntent
	RefundedAmount  decimal.Decimal
	RemainingAmount decimal.Decimal
}

type service struct {
	tx             txRunner
	repo           Repository
	orders         orderCollaborator
	notifier       buyerNotifier
	gateway        gateway.Port
	cfg            config.PaymentsConfig
	gatewayTimeout time.Duration
	logg           *logger.Logger
	metrics        *metrics.PaymentMetrics
}

// NewService wires the payments service. Notifier and metrics are optional.
func NewService(
	tx txRunner,
	repo Repository,
	ordersSvc orderCollaborator,
	notifier buyerNotifier,
	port gateway.Port,
	cfg config.PaymentsConfig,
	gatewayCfg config.GatewayConfig,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders collaborator required")
	}
	if port == nil {
		return nil, fmt.Errorf("gateway port required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:             tx,
		repo:           repo,
		orders:         ordersSvc,
		notifier:       notifier,
		gateway:        port,
		cfg:            cfg,
		gatewayTimeout: gatewayCfg.CallTimeout,
		logg:           logg,
		metrics:        paymentMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateIntentInput) (*CreateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if input.Method == enums.PaymentMethodInstallment && input.InstallmentCount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment count required for installment payments")
	}

	order, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	currency := input.Currency
	if currency == "" {
		currency = order.Currency
	}

	intent := &models.PaymentIntent{
		OrderID:        order.ID,
		Amount:         order.TotalAmount,
		Currency:       currency,
		Method:         input.Method,
		Provider:       s.cfg.ManualProviderLabel,
		Status:         enums.PaymentStatusCreated,
		RefundedAmount: decimal.Zero,
	}
	if input.Method.RequiresGateway() {
		intent.Provider = s.gateway.Name()
	}

	if input.Card != nil {
		classification, err := cards.Classify(input.Card.Number)
		if err != nil {
			return nil, err
		}
		last4 := classification.Last4
		brand := classification.Brand
		intent.CardLast4 = &last4
		intent.CardBrand = &brand
	}

	if input.Method == enums.PaymentMethodInstallment {
		parts, err := SplitInstallments(intent.Amount, input.InstallmentCount)
		if err != nil {
			return nil, err
		}
		count := input.InstallmentCount
		recurring := parts[len(parts)-1]
		intent.InstallmentCount = &count
		intent.InstallmentAmount = &recurring
	}

	requires3DS := intent.Amount.GreaterThan(s.cfg.ThreeDSThreshold) &&
		input.Card != nil &&
		input.ReturnURL != "" &&
		input.Method.RequiresGateway()
	intent.Requires3DSecure = requires3DS
	if requires3DS {
		intent.Status = enums.PaymentStatusPending
	}

	result := &CreateResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindIntentByOrderID(ctx, order.ID)
		if err == nil {
			result.Intent = existing
			result.AlreadyExisted = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
		}

		now := time.Now().UTC()
		if requires3DS {
			res, err := s.gatewayInitiate3DS(ctx, intent, input)
			if err != nil {
				return err
			}
			if !res.Success {
				applyFail(intent, declineReason(res.Message), now)
			} else {
				ref := res.Reference
				intent.ExternalReference = &ref
				result.ThreeDSHTML = res.HTMLContent
			}
		}

		if err := repo.CreateIntent(ctx, intent); err != nil {
			if db.IsUniqueViolation(err, "idx_payment_intents_order") {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
		}
		if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventCreated, ""); err != nil {
			return err
		}
		if intent.ExternalReference != nil && requires3DS {
			if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventThreeDSInitiated, "3D Secure challenge initiated"); err != nil {
				return err
			}
		}
		if intent.Status == enums.PaymentStatusFailed && intent.FailureReason != nil {
			if err := s.appendEvent(ctx, repo, intent.ID, enums.PaymentEventFailed, *intent.FailureReason); err != nil {
				return err
			}
		}
		result.Intent = intent
		return nil
	})
	if err != nil {
		// A concurrent create for the same order wins the unique index race;
		// return its intent unchanged.
		if db.IsUniqueViolation(err, "idx_payment_intents_order") {
			existing, ferr := s.repo.FindIntentByOrderID(ctx, order.ID)
			if ferr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load payment intent")
			}
			return &CreateResult{Intent: existing, AlreadyExisted: true}, nil
		}
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	intent, err := s.repo.FindIntentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return intent, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	intent, err := s.repo.FindIntentByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return intent, nil
}

func (s *service) ListEvents(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error) {
	if _, err := s.Get(ctx, intentID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListEventsByIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment events")
	}
	return events, nil
}

func (s *service) CheckBin(ctx context.Context, bin string) (*gateway.BinInfo, error) {
	if bin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bin required")
	}
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	info, err := s.gateway.CheckBin(callCtx, bin)
	s.metrics.ObserveGatewayCall("check_bin", time.Since(start))
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway bin lookup failed")
	}
	return info, nil
}

func (s *service) InstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]gateway.InstallmentOption, error) {
	if bin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bin required")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	callCtx, cancel := s.gatewayContext(ctx)
	defer cancel()
	start := time.Now()
	options, err := s.gateway.GetInstallmentOptions(callCtx, bin, price)
	s.metrics.ObserveGatewayCall("installment_options", time.Since(start))
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway installment lookup failed")
	}
	return options, nil
}

// --- shared helpers ---

func (s *service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.gatewayTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.gatewayTimeout)
}

func (s *service) appendEvent(ctx context.Context, repo Repository, intentID uuid.UUID, eventType enums.PaymentEventType, message string) error {
	event := &models.PaymentEvent{IntentID: intentID, Type: eventType}
	if message != "" {
		event.Message = &message
	}
	if err := repo.CreateEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment event")
	}
	return nil
}

func (s *service) lockIntent(ctx context.Context, repo Repository, id uuid.UUID) (*models.PaymentIntent, error) {
	intent, err := repo.FindIntentByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	return intent, nil
}

func (s *service) notifyPayment(ctx context.Context, intent *models.PaymentIntent, title, message string) {
	if s.notifier == nil || intent == nil {
		return
	}
	order, err := s.orders.GetByID(ctx, intent.OrderID)
	if err != nil {
		s.logg.Error(ctx, "failed to load order for payment notification", err)
		return
	}
	s.notifier.SendPaymentUpdate(ctx, order.BuyerID, order.ID, title, message)
}

func (s *service) recordTransition(op string, err error, noop, declined bool) {
	switch {
	case declined:
		s.metrics.IncTransition(op, "declined")
	case err != nil:
		s.metrics.IncTransition(op, "rejected")
	case noop:
		s.metrics.IncTransition(op, "noop")
	default:
		s.metrics.IncTransition(op, "success")
	}
}

func stateConflict(op string, status enums.PaymentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s a payment intent in status %s", op, status))
}

func applyCapture(intent *models.PaymentIntent, now time.Time) {
	if intent.CapturedAt == nil {
		ts := now
		intent.CapturedAt = &ts
	}
	intent.Status = enums.PaymentStatusCaptured
}

func applyFail(intent *models.PaymentIntent, reason string, now time.Time) {
	if intent.FailedAt == nil {
		ts := now
		intent.FailedAt = &ts
	}
	intent.FailureReason = &reason
	intent.Status = enums.PaymentStatusFailed
}

func declineReason(message string) string {
	if message == "" {
		return "payment declined by gateway"
	}
	return message
}

func cardDetails(card *CardInput) *gateway.CardDetails {
	if card == nil {
		return nil
	}
	return &gateway.CardDetails{
		Number:      card.Number,
		ExpireMonth: card.ExpireMonth,
		ExpireYear:  card.ExpireYear,
		CVV:         card.CVV,
		HolderName:  card.HolderName,
	}
}
