package controllers

import (
	"context"
	"net/http"

	"github.com/avillareal/marketpay-backend/api/responses"
	"github.com/avillareal/marketpay-backend/pkg/config"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

const envHeader = "X-MarketPay-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every backing dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				healthy = false
				checks[name] = "unavailable"
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+name, err)
				}
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}

// ReadinessDeps builds the dependency map HealthReady walks.
func ReadinessDeps(dbP, redisP pinger) map[string]pinger {
	deps := map[string]pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisP != nil {
		deps["redis"] = redisP
	}
	return deps
}
