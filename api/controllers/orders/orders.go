package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avillareal/marketpay-backend/api/responses"
	"github.com/avillareal/marketpay-backend/api/validators"
	internalorders "github.com/avillareal/marketpay-backend/internal/orders"
	"github.com/avillareal/marketpay-backend/pkg/enums"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

type createOrderBody struct {
	BuyerID     string          `json:"buyer_id" validate:"required,uuid"`
	TotalAmount decimal.Decimal `json:"total_amount" validate:"required"`
	Currency    string          `json:"currency"`
}

// Create opens an order that a payment intent can later attach to.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body createOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buyerID, err := uuid.Parse(body.BuyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer id"))
			return
		}

		input := internalorders.CreateOrderInput{
			BuyerID:     buyerID,
			TotalAmount: body.TotalAmount,
		}
		if body.Currency != "" {
			currency, err := enums.ParseCurrency(body.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
				return
			}
			input.Currency = currency
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Detail returns one order by id.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
		orderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
