package payments

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/api/middleware"
	"github.com/avillareal/marketpay-backend/api/responses"
	"github.com/avillareal/marketpay-backend/api/validators"
	internalpayments "github.com/avillareal/marketpay-backend/internal/payments"
	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

type cardBody struct {
	Number      string `json:"number" validate:"required,min=12,max=19"`
	ExpireMonth string `json:"expire_month" validate:"required"`
	ExpireYear  string `json:"expire_year" validate:"required"`
	CVV         string `json:"cvv" validate:"required,min=3,max=4"`
	HolderName  string `json:"holder_name" validate:"required"`
}

type createIntentBody struct {
	OrderID          string    `json:"order_id" validate:"required,uuid"`
	Currency         string    `json:"currency"`
	Method           string    `json:"method" validate:"required"`
	Card             *cardBody `json:"card"`
	InstallmentCount int       `json:"installment_count" validate:"omitempty,min=1,max=12"`
	ReturnURL        string    `json:"return_url"`
}

type intentResponse struct {
	Intent      *models.PaymentIntent `json:"intent"`
	ThreeDSHTML string                `json:"three_ds_html,omitempty"`
}

func cardInput(body *cardBody) *internalpayments.CardInput {
	if body == nil {
		return nil
	}
	return &internalpayments.CardInput{
		Number:      body.Number,
		ExpireMonth: body.ExpireMonth,
		ExpireYear:  body.ExpireYear,
		CVV:         body.CVV,
		HolderName:  body.HolderName,
	}
}

// CreateIntent opens a payment intent for an order. Repeated calls for the
// same order return the existing intent instead of a conflict.
func CreateIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body createIntentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		input := internalpayments.CreateIntentInput{
			OrderID:          orderID,
			Method:           method,
			Card:             cardInput(body.Card),
			InstallmentCount: body.InstallmentCount,
			ReturnURL:        body.ReturnURL,
		}
		if body.Currency != "" {
			currency, err := enums.ParseCurrency(body.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			input.Currency = currency
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadyExisted {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, intentResponse{
			Intent:      result.Intent,
			ThreeDSHTML: result.ThreeDSHTML,
		})
	}
}

// GetIntent returns one payment intent by id.
func GetIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// GetIntentByOrder returns the payment intent attached to an order.
func GetIntentByOrder(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
		orderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		intent, err := svc.GetByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// ListIntentEvents returns the audit trail of an intent, oldest first.
func ListIntentEvents(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.ListEvents(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

type authorizeBody struct {
	Card *cardBody `json:"card"`
}

// AuthorizeIntent places a hold on the buyer's card.
func AuthorizeIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body authorizeBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		intent, err := svc.Authorize(r.Context(), internalpayments.AuthorizeInput{
			IntentID: id,
			Card:     cardInput(body.Card),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// CaptureIntent settles the payment.
func CaptureIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Capture(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type reasonBody struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelIntent abandons a payment before capture.
func CancelIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reasonBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Cancel(r.Context(), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// FailIntent records a definitive payment failure.
func FailIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reasonBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Fail(r.Context(), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type threeDSBody struct {
	Outcome string `json:"outcome" validate:"required"`
}

// ConfirmThreeDS completes a pending 3-D Secure challenge.
func ConfirmThreeDS(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body threeDSBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := enums.ParseThreeDSOutcome(body.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid 3ds outcome"))
			return
		}

		intent, err := svc.Confirm3DSecure(r.Context(), id, outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type refundBody struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" validate:"required"`
}

// RefundIntent returns money on a captured payment. Omitting amount refunds
// the full remaining balance.
func RefundIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body refundBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refund(r.Context(), internalpayments.RefundInput{
			IntentID: id,
			Amount:   body.Amount,
			Reason:   body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"intent":           result.Intent,
			"refunded_amount":  result.RefundedAmount,
			"remaining_amount": result.RemainingAmount,
		})
	}
}

// MarkReceived settles a manual-method payment once the money arrived
// out of band. Admin only.
func MarkReceived(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.MarkReceived(r.Context(), id, middleware.IsAdmin(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// SimulateSuccess drives an intent straight to captured without a gateway.
// Only routed outside production.
func SimulateSuccess(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.SimulateSuccess(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// SimulateFail drives an intent straight to failed without a gateway.
func SimulateFail(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIntentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.SimulateFail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// CheckBin looks up brand and issuer data for a card prefix.
func CheckBin(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin := strings.TrimSpace(chi.URLParam(r, "bin"))
		if len(bin) < 6 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bin must be at least 6 digits"))
			return
		}

		info, err := svc.CheckBin(r.Context(), bin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

// InstallmentOptions returns the installment plans available for a bin and
// price.
func InstallmentOptions(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin := strings.TrimSpace(r.URL.Query().Get("bin"))
		if bin == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bin query parameter is required"))
			return
		}

		rawPrice := strings.TrimSpace(r.URL.Query().Get("price"))
		price, err := decimal.NewFromString(rawPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		options, err := svc.InstallmentOptions(r.Context(), bin, price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

func parseIntentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "intentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intent id")
	}
	return id, nil
}
