package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/pkg/enums"
)

// CardDetails carries raw card input through a gateway call. It is never
// persisted; only derived last4/brand survive the request.
type CardDetails struct {
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVV         string
	HolderName  string
}

// PaymentRequest describes a charge or authorization the core asks the
// processor to perform.
type PaymentRequest struct {
	Reference        string
	Amount           decimal.Decimal
	Currency         enums.Currency
	Card             *CardDetails
	ReturnURL        string
	InstallmentCount int
}

// Result is the processor's answer to a synchronous call. Success=false with
// a nil error is a definitive decline; a non-nil error means the call itself
// did not complete and the intent must stay in its pre-call state.
type Result struct {
	Success   bool
	Reference string
	Message   string
}

// ThreeDSResult extends Result with the challenge payload the buyer's
// browser must render.
type ThreeDSResult struct {
	Result
	HTMLContent string
}

// BinInfo describes what the processor knows about a card prefix.
type BinInfo struct {
	Bin      string
	Brand    enums.CardBrand
	CardType string
	Bank     string
}

// InstallmentOption is one way the processor can split a price.
type InstallmentOption struct {
	Count          int             `json:"count"`
	PerInstallment decimal.Decimal `json:"per_installment"`
	Total          decimal.Decimal `json:"total"`
}

// Port is the contract the payment core requires from any card processor.
type Port interface {
	Name() string
	InitiatePayment(ctx context.Context, req PaymentRequest) (*Result, error)
	CompletePayment(ctx context.Context, reference string) (*Result, error)
	Initiate3DSPayment(ctx context.Context, req PaymentRequest) (*ThreeDSResult, error)
	Complete3DSPayment(ctx context.Context, reference string) (*Result, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) (*Result, error)
	GetStatus(ctx context.Context, reference string) (*Result, error)
	CheckBin(ctx context.Context, bin string) (*BinInfo, error)
	GetInstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]InstallmentOption, error)
	ValidateSignature(payload []byte, signature string) bool
}
