package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/pkg/cards"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	"github.com/avillareal/marketpay-backend/pkg/gateway"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
)

// ProviderName identifies the simulated processor.
const ProviderName = "sandbox"

// declineSuffix marks test card numbers the simulator always declines,
// mirroring the well-known processor test PAN 4000 0000 0000 0002.
const declineSuffix = "0002"

var installmentCounts = []int{1, 2, 3, 6, 9, 12}

type txnState struct {
	status   string
	amount   decimal.Decimal
	refunded decimal.Decimal
}

// Provider is an in-process card processor used outside production. It keeps
// transaction state in memory and signs webhooks with an HMAC secret so the
// full round trip can be exercised without a live gateway.
type Provider struct {
	secret []byte

	mu   sync.Mutex
	txns map[string]*txnState
}

// New builds a sandbox provider with the shared webhook secret.
func New(webhookSecret string) (*Provider, error) {
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sandbox webhook secret required")
	}
	return &Provider{
		secret: []byte(webhookSecret),
		txns:   map[string]*txnState{},
	}, nil
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) InitiatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Card != nil && strings.HasSuffix(digits(req.Card.Number), declineSuffix) {
		return &gateway.Result{Success: false, Message: "card declined"}, nil
	}
	ref := p.newReference()
	p.store(ref, &txnState{status: "authorized", amount: req.Amount, refunded: decimal.Zero})
	return &gateway.Result{Success: true, Reference: ref}, nil
}

func (p *Provider) CompletePayment(ctx context.Context, reference string) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	txn, ok := p.txns[reference]
	if !ok {
		return &gateway.Result{Success: false, Reference: reference, Message: "unknown transaction"}, nil
	}
	txn.status = "captured"
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (p *Provider) Initiate3DSPayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.ThreeDSResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Card != nil && strings.HasSuffix(digits(req.Card.Number), declineSuffix) {
		return &gateway.ThreeDSResult{
			Result: gateway.Result{Success: false, Message: "card declined"},
		}, nil
	}
	ref := p.newReference()
	p.store(ref, &txnState{status: "pending_3ds", amount: req.Amount, refunded: decimal.Zero})
	html := fmt.Sprintf(
		`<form method="post" action=%q><input type="hidden" name="reference" value=%q /></form>`,
		req.ReturnURL, ref,
	)
	return &gateway.ThreeDSResult{
		Result:      gateway.Result{Success: true, Reference: ref},
		HTMLContent: html,
	}, nil
}

func (p *Provider) Complete3DSPayment(ctx context.Context, reference string) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	txn, ok := p.txns[reference]
	if !ok {
		return &gateway.Result{Success: false, Reference: reference, Message: "unknown transaction"}, nil
	}
	if txn.status != "pending_3ds" {
		return &gateway.Result{Success: false, Reference: reference, Message: "challenge not pending"}, nil
	}
	txn.status = "captured"
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (p *Provider) Refund(ctx context.Context, reference string, amount decimal.Decimal) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	txn, ok := p.txns[reference]
	if !ok {
		return &gateway.Result{Success: false, Reference: reference, Message: "unknown transaction"}, nil
	}
	if txn.refunded.Add(amount).GreaterThan(txn.amount) {
		return &gateway.Result{Success: false, Reference: reference, Message: "refund exceeds captured amount"}, nil
	}
	txn.refunded = txn.refunded.Add(amount)
	return &gateway.Result{Success: true, Reference: reference}, nil
}

func (p *Provider) GetStatus(ctx context.Context, reference string) (*gateway.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	txn, ok := p.txns[reference]
	if !ok {
		return &gateway.Result{Success: false, Reference: reference, Message: "unknown transaction"}, nil
	}
	return &gateway.Result{Success: true, Reference: reference, Message: txn.status}, nil
}

func (p *Provider) CheckBin(ctx context.Context, bin string) (*gateway.BinInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	classification, err := cards.Classify(bin + "0000")
	if err != nil {
		return nil, err
	}
	cardType := "credit"
	if classification.Brand == enums.CardBrandUnknown {
		cardType = "unknown"
	}
	return &gateway.BinInfo{
		Bin:      digits(bin),
		Brand:    classification.Brand,
		CardType: cardType,
		Bank:     "Sandbox Bank",
	}, nil
}

func (p *Provider) GetInstallmentOptions(ctx context.Context, bin string, price decimal.Decimal) ([]gateway.InstallmentOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	options := make([]gateway.InstallmentOption, 0, len(installmentCounts))
	for _, count := range installmentCounts {
		per := price.Div(decimal.NewFromInt(int64(count))).Round(2)
		options = append(options, gateway.InstallmentOption{
			Count:          count,
			PerInstallment: per,
			Total:          price,
		})
	}
	return options, nil
}

func (p *Provider) ValidateSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// Sign produces the webhook signature for a payload. Exposed so tests and
// local tooling can fabricate deliveries the validator accepts.
func (p *Provider) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Provider) newReference() string {
	return "snd_" + uuid.NewString()
}

func (p *Provider) store(ref string, txn *txnState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txns[ref] = txn
}

func digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
