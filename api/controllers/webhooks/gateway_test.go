package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

type stubWebhookService struct {
	err      error
	payloads []string
	sigs     []string
}

func (s *stubWebhookService) HandleDelivery(ctx context.Context, payload []byte, signature string) error {
	s.payloads = append(s.payloads, string(payload))
	s.sigs = append(s.sigs, signature)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhooks-test"})
}

func TestGatewayWebhookRequiresSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := GatewayWebhook(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(svc.payloads) != 0 {
		t.Fatal("service must not run without a signature header")
	}
}

func TestGatewayWebhookForwardsRawPayload(t *testing.T) {
	svc := &stubWebhookService{}
	handler := GatewayWebhook(svc, testLogger())

	body := `{"event_id":"evt-1","event_type":"payment.captured","external_reference":"ref-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", strings.NewReader(body))
	req.Header.Set("X-Gateway-Signature", "sig-abc")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.payloads) != 1 || svc.payloads[0] != body {
		t.Fatalf("payload must reach the service byte for byte, got %q", svc.payloads)
	}
	if svc.sigs[0] != "sig-abc" {
		t.Fatalf("unexpected signature %q", svc.sigs[0])
	}
}

func TestGatewayWebhookMapsServiceErrors(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
	handler := GatewayWebhook(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", strings.NewReader(`{}`))
	req.Header.Set("X-Gateway-Signature", "forged")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
