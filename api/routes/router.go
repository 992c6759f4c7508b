package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amaykorade/zakapay-hackathon/api/controllers"
	webhookcontrollers "github.com/amaykorade/zakapay-hackathon/api/controllers/webhooks"
	"github.com/amaykorade/zakapay-hackathon/api/middleware"
	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	pkgredis "github.com/amaykorade/zakapay-hackathon/pkg/redis"
)

type redisClient interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// Params groups everything the router mounts. Stripe and Square webhook
// routes are only mounted when their service is set.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          redisClient
	Metrics        requestObserver
	MetricsHandler http.Handler
	Readiness      []controllers.Dependency

	Collections controllers.CollectionService
	Payments    controllers.PaymentService
	Payouts     controllers.PayoutService

	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeSigner  webhookcontrollers.StripeSigner
	StripeGuard   webhookcontrollers.ReplayGuard
	SquareWebhook webhookcontrollers.SquareWebhookService
	SquareSigner  webhookcontrollers.SquareSigner
	SquareGuard   webhookcontrollers.ReplayGuard
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness...))
	})
	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	payerLookup := middleware.NewRateLimitPolicy(
		"payer-lookup",
		cfg.RateLimit.PayerLookupWindow,
		cfg.RateLimit.PayerLookupLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(p.Redis, cfg.Eventing.RequestIdempotencyTTL, logg))

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", controllers.CreateCollection(p.Collections, logg))
			r.Get("/", controllers.ListCollections(p.Collections, logg))
			r.Get("/{collectionId}", controllers.GetCollection(p.Collections, logg))
		})

		r.With(middleware.RateLimit(payerLookup, p.Redis, logg)).
			Get("/payers/{slug}", controllers.PayerBySlug(p.Collections, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout", controllers.CreateCheckout(p.Payments, logg))
			r.Post("/multi-card", controllers.CreateMultiCardPayment(p.Payments, logg))
			r.Post("/multi-card/{paymentId}/process", controllers.ProcessMultiCardPayment(p.Payments, logg))
			r.Post("/cancel", controllers.CancelPayment(p.Collections, logg))
		})

		r.Get("/payouts", controllers.ListPayouts(p.Payouts, logg))

		r.Route("/webhooks", func(r chi.Router) {
			if p.StripeWebhook != nil {
				r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeSigner, p.StripeGuard, logg))
			}
			if p.SquareWebhook != nil {
				r.Post("/square", webhookcontrollers.SquareWebhook(p.SquareWebhook, p.SquareSigner, p.SquareGuard, logg))
			}
		})
	})

	return r
}
