package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avillareal/marketpay-backend/api/responses"
	"github.com/avillareal/marketpay-backend/internal/notifications"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

// ListNotifications returns the payment notifications sent to one buyer.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "userId"))
		userID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
