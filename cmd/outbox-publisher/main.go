package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/instance"
	"github.com/angelmondragon/shopora-backend/pkg/kafka"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/migrate"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/registry"
)

const (
	serviceName            = "outbox-publisher"
	metricsShutdownTimeout = 5 * time.Second
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"instance":    instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	kafkaClient, err := kafka.NewClient(ctx, cfg.Kafka, logg)
	if err != nil {
		return fmt.Errorf("bootstrap kafka: %w", err)
	}
	defer closeQuietly(ctx, logg, "kafka client", kafkaClient)

	eventRegistry, err := registry.NewEventRegistry(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}
	// Writers are created eagerly so a bad topic config shows up at boot.
	topics := eventRegistry.Topics()
	for _, topic := range topics {
		kafkaClient.Writer(topic)
	}
	logg.Info(logg.WithField(ctx, "topics", topics), "kafka writers ready")

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Broker:     kafkaClient,
		Repository: outbox.NewRepository(),
		Registry:   eventRegistry,
		PublisherFactory: func(topic string) publisher {
			if w := kafkaClient.Writer(topic); w != nil {
				return w
			}
			return nil
		},
		Metrics: metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	stopMetrics := serveMetrics(ctx, logg, cfg.Outbox.MetricsAddr)
	defer stopMetrics()

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveMetrics exposes the default prometheus registry and returns a shutdown func.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server failed", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "metrics server shutdown incomplete")
		}
	}
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logg.Error(context.WithoutCancel(ctx), "error closing "+name, err)
	}
}
