package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/amaykorade/zakapay-hackathon/internal/cron"
	"github.com/amaykorade/zakapay-hackathon/internal/paymentmethods"
	"github.com/amaykorade/zakapay-hackathon/internal/payments"
	"github.com/amaykorade/zakapay-hackathon/internal/providers"
	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/metrics"
	"github.com/amaykorade/zakapay-hackathon/pkg/migrate"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
	"github.com/amaykorade/zakapay-hackathon/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	recon, err := reconciler.New(reconciler.ServiceParams{
		Repo:    reconciler.NewRepository(dbClient.DB()),
		Outbox:  outboxService,
		Metrics: paymentMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}
	methods, err := paymentmethods.NewService(paymentmethods.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create payment method service", err)
		os.Exit(1)
	}
	// Drift repair only transitions payers; it never calls a provider.
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:       payments.NewRepository(dbClient.DB()),
		Methods:    methods,
		Reconciler: recon,
		Providers:  providers.NewRegistry(),
		Outbox:     outboxService,
		TxRunner:   dbClient,
		Metrics:    paymentMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	driftJob, err := cron.NewPayerDriftJob(cron.PayerDriftJobParams{
		Logger:   logg,
		Repairer: paymentService,
		Limit:    cfg.Cron.DriftRepairLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payer drift job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Outbox:    outboxRepo,
		DLQ:       outbox.NewDLQRepository(dbClient.DB()),
		Retention: cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(driftJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	if *once {
		result, err := service.RunOnce(ctx)
		if err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		if len(result.Failed) > 0 {
			logg.Warn(logg.WithField(ctx, "failed_jobs", result.Failed), "cron cycle finished with failures")
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
