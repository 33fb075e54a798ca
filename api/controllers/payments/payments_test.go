package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalpayments "github.com/avillareal/marketpay-backend/internal/payments"
	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	"github.com/avillareal/marketpay-backend/pkg/gateway"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

type stubPaymentsService struct {
	create       func(ctx context.Context, input internalpayments.CreateIntentInput) (*internalpayments.CreateResult, error)
	get          func(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	refund       func(ctx context.Context, input internalpayments.RefundInput) (*internalpayments.RefundResult, error)
	markReceived func(ctx context.Context, id uuid.UUID, privileged bool) (*models.PaymentIntent, error)
}

func (s *stubPaymentsService) Create(ctx context.Context, input internalpayments.CreateIntentInput) (*internalpayments.CreateResult, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	panic("not implemented")
}

func (s *stubPaymentsService) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	panic("not implemented")
}

func (s *stubPaymentsService) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) ListEvents(ctx context.Context, intentID uuid.UUID) ([]models.PaymentEvent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Authorize(ctx context.Context, input internalpayments.AuthorizeInput) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Capture(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Fail(ctx context.Context, id uuid.UUID, reason string) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Confirm3DSecure(ctx context.Context, id uuid.UUID, outcome enums.ThreeDSOutcome) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) Refund(ctx context.Context, input internalpayments.RefundInput) (*internalpayments.RefundResult, error) {
	if s.refund != nil {
		return s.refund(ctx, input)
	}
	panic("not implemented")
}

func (s *stubPaymentsService) MarkReceived(ctx context.Context, id uuid.UUID, privileged bool) (*models.PaymentIntent, error) {
	if s.markReceived != nil {
		return s.markReceived(ctx, id, privileged)
	}
	panic("not implemented")
}

func (s *stubPaymentsService) SimulateSuccess(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) SimulateFail(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) HandleGatewayCapture(ctx context.Context, externalReference, message string) error {
	panic("not implemented")
}

func (s *stubPaymentsService) HandleGatewayFailure(ctx context.Context, externalReference, message string) error {
	panic("not implemented")
}

func (s *stubPaymentsService) HandleGatewayRefund(ctx context.Context, externalReference string, amount decimal.Decimal, message string) error {
	panic("not implemented")
}

func (s *stubPaymentsService) CheckBin(ctx context.Context, bin string) (*gateway.BinInfo, error) {
	panic("not implemented")
}

func (s *stubPaymentsService) InstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]gateway.InstallmentOption, error) {
	panic("not implemented")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

func TestCreateIntentRejectsMalformedBody(t *testing.T) {
	svc := &stubPaymentsService{}
	handler := CreateIntent(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"order_id":`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateIntentRejectsUnknownMethod(t *testing.T) {
	svc := &stubPaymentsService{}
	handler := CreateIntent(svc, testLogger())

	body := `{"order_id":"` + uuid.NewString() + `","method":"barter"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateIntentReturnsCreated(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentsService{
		create: func(ctx context.Context, input internalpayments.CreateIntentInput) (*internalpayments.CreateResult, error) {
			if input.OrderID != orderID {
				t.Fatalf("order id %s did not reach the service", orderID)
			}
			if input.Method != enums.PaymentMethodCreditCard {
				t.Fatalf("unexpected method %s", input.Method)
			}
			if input.Card == nil || input.Card.Number != "4111111111111111" {
				t.Fatal("card did not reach the service")
			}
			return &internalpayments.CreateResult{
				Intent: &models.PaymentIntent{ID: uuid.New(), OrderID: orderID},
			}, nil
		},
	}
	handler := CreateIntent(svc, testLogger())

	body := `{"order_id":"` + orderID.String() + `","method":"credit_card","card":{"number":"4111111111111111","expire_month":"12","expire_year":"2030","cvv":"123","holder_name":"Jane Buyer"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateIntentReturnsOKForExistingIntent(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentsService{
		create: func(ctx context.Context, input internalpayments.CreateIntentInput) (*internalpayments.CreateResult, error) {
			return &internalpayments.CreateResult{
				Intent:         &models.PaymentIntent{ID: uuid.New(), OrderID: orderID},
				AlreadyExisted: true,
			}, nil
		},
	}
	handler := CreateIntent(svc, testLogger())

	body := `{"order_id":"` + orderID.String() + `","method":"bank_transfer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing intent, got %d", rec.Code)
	}
}

func TestGetIntentRejectsBadID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/payments/{intentId}", GetIntent(&stubPaymentsService{}, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRefundIntentForwardsAmountAndReason(t *testing.T) {
	intentID := uuid.New()
	var got internalpayments.RefundInput
	svc := &stubPaymentsService{
		refund: func(ctx context.Context, input internalpayments.RefundInput) (*internalpayments.RefundResult, error) {
			got = input
			return &internalpayments.RefundResult{
				Intent:          &models.PaymentIntent{ID: intentID},
				RefundedAmount:  decimal.RequireFromString("25.50"),
				RemainingAmount: decimal.RequireFromString("74.50"),
			}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/payments/{intentId}/refund", RefundIntent(svc, testLogger()))

	body := `{"amount":"25.50","reason":"buyer returned the item"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/"+intentID.String()+"/refund", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.IntentID != intentID {
		t.Fatalf("intent id %s did not reach the service", intentID)
	}
	if got.Amount == nil || !got.Amount.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("unexpected amount %v", got.Amount)
	}
	if got.Reason != "buyer returned the item" {
		t.Fatalf("unexpected reason %q", got.Reason)
	}
}

func TestRefundIntentRequiresReason(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/payments/{intentId}/refund", RefundIntent(&stubPaymentsService{}, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/payments/"+uuid.NewString()+"/refund", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMarkReceivedPassesPrivilegeFromContext(t *testing.T) {
	var privileged *bool
	svc := &stubPaymentsService{
		markReceived: func(ctx context.Context, id uuid.UUID, p bool) (*models.PaymentIntent, error) {
			privileged = &p
			return &models.PaymentIntent{ID: id}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/payments/{intentId}/mark-received", MarkReceived(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/payments/"+uuid.NewString()+"/mark-received", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if privileged == nil || *privileged {
		t.Fatal("request without admin context must not be privileged")
	}
}

func TestRefundResponseShape(t *testing.T) {
	intentID := uuid.New()
	svc := &stubPaymentsService{
		refund: func(ctx context.Context, input internalpayments.RefundInput) (*internalpayments.RefundResult, error) {
			return &internalpayments.RefundResult{
				Intent:          &models.PaymentIntent{ID: intentID},
				RefundedAmount:  decimal.NewFromInt(100),
				RemainingAmount: decimal.Zero,
			}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/payments/{intentId}/refund", RefundIntent(svc, testLogger()))

	body := `{"reason":"order cancelled"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/"+intentID.String()+"/refund", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"intent", "refunded_amount", "remaining_amount"} {
		if _, ok := envelope.Data[key]; !ok {
			t.Fatalf("response missing %q: %s", key, rec.Body.String())
		}
	}
}
