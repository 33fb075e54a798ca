package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/avillareal/marketpay-backend/api/responses"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

const signatureHeader = "X-Gateway-Signature"

type gatewayWebhookService interface {
	HandleDelivery(ctx context.Context, payload []byte, signature string) error
}

// GatewayWebhook ingests payment status deliveries from the card processor.
// The ingestor decides whether a delivery is applied, deduplicated, or
// absorbed; this handler only moves bytes and maps the outcome to a status.
func GatewayWebhook(svc gatewayWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway signature missing"))
			return
		}

		if err := svc.HandleDelivery(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
