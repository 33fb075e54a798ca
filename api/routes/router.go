package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avillareal/marketpay-backend/api/controllers"
	ordercontrollers "github.com/avillareal/marketpay-backend/api/controllers/orders"
	paymentcontrollers "github.com/avillareal/marketpay-backend/api/controllers/payments"
	webhookcontrollers "github.com/avillareal/marketpay-backend/api/controllers/webhooks"
	"github.com/avillareal/marketpay-backend/api/middleware"
	"github.com/avillareal/marketpay-backend/internal/notifications"
	"github.com/avillareal/marketpay-backend/internal/orders"
	paymentsvc "github.com/avillareal/marketpay-backend/internal/payments"
	gatewaywebhook "github.com/avillareal/marketpay-backend/internal/webhooks/gateway"
	"github.com/avillareal/marketpay-backend/pkg/config"
	"github.com/avillareal/marketpay-backend/pkg/db"
	"github.com/avillareal/marketpay-backend/pkg/logger"
	"github.com/avillareal/marketpay-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	paymentsService paymentsvc.Service,
	ordersService orders.Service,
	notificationsService notifications.Service,
	webhookService *gatewaywebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbClient, redisClient)))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(webhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Get("/{orderId}/payment", paymentcontrollers.GetIntentByOrder(paymentsService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.CreateIntent(paymentsService, logg))
			r.Get("/installment-options", paymentcontrollers.InstallmentOptions(paymentsService, logg))
			r.Route("/{intentId}", func(r chi.Router) {
				r.Get("/", paymentcontrollers.GetIntent(paymentsService, logg))
				r.Get("/events", paymentcontrollers.ListIntentEvents(paymentsService, logg))
				r.Post("/authorize", paymentcontrollers.AuthorizeIntent(paymentsService, logg))
				r.Post("/capture", paymentcontrollers.CaptureIntent(paymentsService, logg))
				r.Post("/cancel", paymentcontrollers.CancelIntent(paymentsService, logg))
				r.Post("/fail", paymentcontrollers.FailIntent(paymentsService, logg))
				r.Post("/3ds/confirm", paymentcontrollers.ConfirmThreeDS(paymentsService, logg))
				r.Post("/refund", paymentcontrollers.RefundIntent(paymentsService, logg))

				if !cfg.App.IsProd() && cfg.Payments.AllowSimulation {
					r.Post("/simulate/success", paymentcontrollers.SimulateSuccess(paymentsService, logg))
					r.Post("/simulate/fail", paymentcontrollers.SimulateFail(paymentsService, logg))
				}
			})
		})

		r.Get("/cards/bin/{bin}", paymentcontrollers.CheckBin(paymentsService, logg))

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/notifications", controllers.ListNotifications(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin, logg))
		r.Post("/payments/{intentId}/mark-received", paymentcontrollers.MarkReceived(paymentsService, logg))
	})

	return r
}
