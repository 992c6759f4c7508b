package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amaykorade/zakapay-hackathon/api/controllers"
	"github.com/amaykorade/zakapay-hackathon/api/routes"
	"github.com/amaykorade/zakapay-hackathon/internal/collections"
	"github.com/amaykorade/zakapay-hackathon/internal/paymentmethods"
	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/internal/payouts"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/internal/slugs"
	"github.com/amaykorade/zakapay-hackathon/internal/users"
	"github.com/amaykorade/zakapay-hackathon/internal/webhooks"
	squarewebhook "github.com/amaykorade/zakapay-hackathon/internal/webhooks/square"
	stripewebhook "github.com/amaykorade/zakapay-hackathon/internal/webhooks/stripe"
	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
	"github.com/amaykorade/zakapay-hackathon/pkg/migrate"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/redis"
	"github.com/amaykorade/zakapay-hackathon/pkg/square"
	pkgstripe "github.com/amaykorade/zakapay-hackathon/pkg/stripe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	recon, err := reconciler.New(reconciler.ServiceParams{
		Repo:    reconciler.NewRepository(dbClient.DB()),
		Outbox:  outboxService,
		Metrics: paymentMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	methods, err := paymentmethods.NewService(paymentmethods.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	var (
		adapters     []providers.Adapter
		checkout     providers.CheckoutCreator
		stripeClient *pkgstripe.Client
		squareClient *square.Client
	)
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
		stripeAdapter, err := providers.NewStripeAdapter(providers.StripeParams{
			PaymentIntents: providers.NewStripePaymentIntents(stripeClient),
			Checkout:       providers.NewStripeCheckoutSessions(stripeClient),
			BaseURL:        cfg.App.BaseURL(),
			Logger:         logg,
		})
		if err != nil {
			return err
		}
		adapters = append(adapters, stripeAdapter)
		checkout = stripeAdapter
	} else {
		logg.Warn(ctx, "stripe not configured; checkout and stripe allocations disabled")
	}
	if cfg.Square.Enabled() {
		squareClient, err = square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return err
		}
		squareAdapter, err := providers.NewSquareAdapter(squareClient)
		if err != nil {
			return err
		}
		adapters = append(adapters, squareAdapter)
	}

	registry := providers.NewRegistry(adapters...)
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:       payments.NewRepository(dbClient.DB()),
		Methods:    methods,
		Reconciler: recon,
		Providers:  registry,
		Checkout:   checkout,
		Outbox:     outboxService,
		TxRunner:   dbClient,
		Metrics:    paymentMetrics,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	collectionsRepo := collections.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	userService, err := users.NewService(usersRepo)
	if err != nil {
		return err
	}
	issuer, err := slugs.NewIssuer(slugs.IssuerParams{Store: collectionsRepo})
	if err != nil {
		return err
	}
	collectionService, err := collections.NewService(collections.ServiceParams{
		Repo:       collectionsRepo,
		Users:      userService,
		Slugs:      issuer,
		Payments:   paymentService,
		Reconciler: recon,
		Outbox:     outboxService,
		TxRunner:   dbClient,
		Logger:     logg,
		BaseURL:    cfg.App.BaseURL(),
	})
	if err != nil {
		return err
	}
	payoutService, err := payouts.NewService(payouts.NewRepository(dbClient.DB()), usersRepo)
	if err != nil {
		return err
	}

	params := routes.Params{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.Handler(),
		Readiness: []controllers.Dependency{
			{Name: "postgres", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
		},
		Collections: collectionService,
		Payments:    paymentService,
		Payouts:     payoutService,
	}
	if !cfg.FeatureFlags.UseSQLite {
		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			return err
		}
		schema, err := migrate.NewRunner(sqlDB, migrate.Embedded(), logg)
		if err != nil {
			return err
		}
		params.Readiness = append(params.Readiness, controllers.Dependency{Name: "schema", Pinger: schema})
	}

	if stripeClient != nil {
		svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Checkout:    paymentService,
			Allocations: paymentService,
			Metrics:     paymentMetrics,
			Logger:      logg,
		})
		if err != nil {
			return err
		}
		guard, err := webhooks.NewReplayGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "stripe-webhook")
		if err != nil {
			return err
		}
		params.StripeWebhook, params.StripeSigner, params.StripeGuard = svc, stripeClient, guard
	}
	if squareClient != nil {
		svc, err := squarewebhook.NewService(squarewebhook.ServiceParams{
			Allocations: paymentService,
			Metrics:     paymentMetrics,
			Logger:      logg,
		})
		if err != nil {
			return err
		}
		guard, err := webhooks.NewReplayGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, "square-webhook")
		if err != nil {
			return err
		}
		params.SquareWebhook, params.SquareSigner, params.SquareGuard = svc, squareClient, guard
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  id,
		"providers": registry.Providers(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
