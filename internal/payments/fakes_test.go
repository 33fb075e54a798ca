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

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	intents map[uuid.UUID]models.PaymentIntent
	events  []models.PaymentEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{intents: map[uuid.UUID]models.PaymentIntent{}}
}

func (r *fakeRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *fakeRepo) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	for _, existing := range r.intents {
		if existing.OrderID == intent.OrderID {
			return errors.New(`duplicate key value violates unique constraint "idx_payment_intents_order"`)
		}
	}
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	intent.CreatedAt = time.Now().UTC()
	r.intents[intent.ID] = *intent
	return nil
}

func (r *fakeRepo) FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	intent, ok := r.intents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := intent
	return &copied, nil
}

func (r *fakeRepo) FindIntentByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return r.FindIntentByID(ctx, id)
}

func (r *fakeRepo) FindIntentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	for _, intent := range r.intents {
		if intent.OrderID == orderID {
			copied := intent
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) FindIntentByExternalReferenceForUpdate(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	for _, intent := range r.intents {
		if intent.ExternalReference != nil && *intent.ExternalReference == reference {
			copied := intent
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if _, ok := r.intents[intent.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.intents[intent.ID] = *intent
	return nil
}

func (r *fakeRepo) CreateEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeRepo) ListEventsByIntent(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	for _, event := range r.events {
		if event.IntentID == intentID {
			events = append(events, event)
		}
	}
	return events, nil
}

func (r *fakeRepo) eventTypes(intentID uuid.UUID) []enums.PaymentEventType {
	var types []enums.PaymentEventType
	for _, event := range r.events {
		if event.IntentID == intentID {
			types = append(types, event.Type)
		}
	}
	return types
}

type fakeOrders struct {
	orders     map[uuid.UUID]models.Order
	processing []uuid.UUID
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[uuid.UUID]models.Order{}}
}

func (o *fakeOrders) add(total decimal.Decimal, currency enums.Currency) uuid.UUID {
	order := models.Order{
		ID:          uuid.New(),
		BuyerID:     uuid.New(),
		TotalAmount: total,
		Currency:    currency,
		Status:      enums.OrderStatusPending,
	}
	o.orders[order.ID] = order
	return order.ID
}

func (o *fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := o.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := order
	return &copied, nil
}

func (o *fakeOrders) NotifyCaptured(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	order, ok := o.orders[orderID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order.Status = enums.OrderStatusProcessing
	o.orders[orderID] = order
	o.processing = append(o.processing, orderID)
	return nil
}

type notifierCall struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Title   string
	Message string
}

type fakeNotifier struct {
	calls []notifierCall
}

func (n *fakeNotifier) SendPaymentUpdate(ctx context.Context, userID, orderID uuid.UUID, title, message string) {
	n.calls = append(n.calls, notifierCall{UserID: userID, OrderID: orderID, Title: title, Message: message})
}

type fakeGateway struct {
	initiateResult    *gateway.Result
	initiateErr       error
	completeResult    *gateway.Result
	completeErr       error
	threeDSResult     *gateway.ThreeDSResult
	threeDSErr        error
	complete3DSResult *gateway.Result
	complete3DSErr    error
	refundResult      *gateway.Result
	refundErr         error

	calls []string
}

func (g *fakeGateway) Name() string { return "sandbox" }

func (g *fakeGateway) InitiatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.Result, error) {
	g.calls = append(g.calls, "initiate")
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	if g.initiateResult != nil {
		return g.initiateResult, nil
	}
	return &gateway.Result{Success: true, Reference: "ref-" + uuid.NewString()[:8]}, nil
}

func (g *fakeGateway) CompletePayment(ctx context.Context, reference string) (*gateway.Result, error) {
	g.calls = append(g.calls, "complete")
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	if g.completeResult != nil {
		return g.completeResult, nil
	}
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (g *fakeGateway) Initiate3DSPayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.ThreeDSResult, error) {
	g.calls = append(g.calls, "initiate_3ds")
	if g.threeDSErr != nil {
		return nil, g.threeDSErr
	}
	if g.threeDSResult != nil {
		return g.threeDSResult, nil
	}
	return &gateway.ThreeDSResult{
		Result:      gateway.Result{Success: true, Reference: "3ds-" + uuid.NewString()[:8]},
		HTMLContent: "<form>challenge</form>",
	}, nil
}

func (g *fakeGateway) Complete3DSPayment(ctx context.Context, reference string) (*gateway.Result, error) {
	g.calls = append(g.calls, "complete_3ds")
	if g.complete3DSErr != nil {
		return nil, g.complete3DSErr
	}
	if g.complete3DSResult != nil {
		return g.complete3DSResult, nil
	}
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	g.calls = append(g.calls, fmt.Sprintf("refund:%s", amount))
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refundResult != nil {
		return g.refundResult, nil
	}
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (g *fakeGateway) GetStatus(ctx context.Context, reference string) (*gateway.Result, error) {
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (g *fakeGateway) CheckBin(ctx context.Context, bin string) (*gateway.BinInfo, error) {
	return &gateway.BinInfo{Bin: bin, Brand: enums.CardBrandVisa, CardType: "credit"}, nil
}

func (g *fakeGateway) GetInstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]gateway.InstallmentOption, error) {
	return []gateway.InstallmentOption{{Count: 1, PerInstallment: price, Total: price}}, nil
}

func (g *fakeGateway) ValidateSignature(payload []byte, signature string) bool {
	return signature == "valid"
}
