package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/avillareal/marketpay-backend/api/responses"
	"github.com/avillareal/marketpay-backend/pkg/config"
	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

const adminKeyHeader = "X-Admin-Api-Key"

type contextKey string

const ctxAdmin contextKey = "admin"

// AdminAuth gates privileged operations behind a static API key. Routes
// behind it run with the admin flag set in the request context.
func AdminAuth(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.APIKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access not configured"))
				return
			}

			key := strings.TrimSpace(r.Header.Get(adminKeyHeader))
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin api key"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxAdmin, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAdmin reports whether the request passed AdminAuth.
func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, ok := ctx.Value(ctxAdmin).(bool)
	return ok && v
}
