package sandbox

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/pkg/enums"
	"github.com/avillareal/marketpay-backend/pkg/gateway"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New("test-secret")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return p
}

func TestInitiateAndCompletePayment(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	res, err := p.InitiatePayment(ctx, gateway.PaymentRequest{
		Amount:   decimal.NewFromInt(100),
		Currency: enums.CurrencyUSD,
		Card:     &gateway.CardDetails{Number: "4111111111111111"},
	})
	if err != nil {
		t.Fatalf("InitiatePayment error: %v", err)
	}
	if !res.Success || res.Reference == "" {
		t.Fatalf("expected successful authorization, got %+v", res)
	}

	capture, err := p.CompletePayment(ctx, res.Reference)
	if err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}
	if !capture.Success {
		t.Fatalf("expected capture success, got %+v", capture)
	}

	status, err := p.GetStatus(ctx, res.Reference)
	if err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	if status.Message != "captured" {
		t.Fatalf("expected captured status, got %q", status.Message)
	}
}

func TestDeclineCard(t *testing.T) {
	p := newProvider(t)

	res, err := p.InitiatePayment(context.Background(), gateway.PaymentRequest{
		Amount: decimal.NewFromInt(50),
		Card:   &gateway.CardDetails{Number: "4000000000000002"},
	})
	if err != nil {
		t.Fatalf("InitiatePayment error: %v", err)
	}
	if res.Success {
		t.Fatal("expected decline for test card")
	}
	if res.Message == "" {
		t.Fatal("expected decline message")
	}
}

func TestThreeDSRoundTrip(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	initiated, err := p.Initiate3DSPayment(ctx, gateway.PaymentRequest{
		Amount:    decimal.NewFromInt(750),
		Card:      &gateway.CardDetails{Number: "4111111111111111"},
		ReturnURL: "https://shop.example/3ds/return",
	})
	if err != nil {
		t.Fatalf("Initiate3DSPayment error: %v", err)
	}
	if !initiated.Success || initiated.HTMLContent == "" {
		t.Fatalf("expected challenge payload, got %+v", initiated)
	}

	completed, err := p.Complete3DSPayment(ctx, initiated.Reference)
	if err != nil {
		t.Fatalf("Complete3DSPayment error: %v", err)
	}
	if !completed.Success {
		t.Fatalf("expected completion success, got %+v", completed)
	}

	// A second completion is no longer pending.
	again, err := p.Complete3DSPayment(ctx, initiated.Reference)
	if err != nil {
		t.Fatalf("Complete3DSPayment error: %v", err)
	}
	if again.Success {
		t.Fatal("expected repeated completion to be rejected")
	}
}

func TestRefundGuard(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	res, err := p.InitiatePayment(ctx, gateway.PaymentRequest{Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("InitiatePayment error: %v", err)
	}
	if _, err := p.CompletePayment(ctx, res.Reference); err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}

	first, err := p.Refund(ctx, res.Reference, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if !first.Success {
		t.Fatalf("expected refund success, got %+v", first)
	}

	second, err := p.Refund(ctx, res.Reference, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if second.Success {
		t.Fatal("expected over-refund to be declined")
	}
}

func TestValidateSignature(t *testing.T) {
	p := newProvider(t)
	payload := []byte(`{"event_type":"payment.captured"}`)

	sig := p.Sign(payload)
	if !p.ValidateSignature(payload, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if p.ValidateSignature(payload, "deadbeef") {
		t.Fatal("expected invalid signature to fail")
	}
	if p.ValidateSignature([]byte("tampered"), sig) {
		t.Fatal("expected tampered payload to fail")
	}
}

func TestCheckBinAndInstallments(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	info, err := p.CheckBin(ctx, "411111")
	if err != nil {
		t.Fatalf("CheckBin error: %v", err)
	}
	if info.Brand != enums.CardBrandVisa {
		t.Fatalf("expected visa bin, got %s", info.Brand)
	}

	options, err := p.GetInstallmentOptions(ctx, "411111", decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("GetInstallmentOptions error: %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected installment options")
	}
	for _, opt := range options {
		if opt.Count <= 0 || opt.PerInstallment.LessThanOrEqual(decimal.Zero) {
			t.Fatalf("invalid option %+v", opt)
		}
	}
}
