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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopora-backend/api/routes"
	"github.com/angelmondragon/shopora-backend/internal/auth"
	"github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/internal/orders"
	products "github.com/angelmondragon/shopora-backend/internal/products"
	"github.com/angelmondragon/shopora-backend/internal/users"
	"github.com/angelmondragon/shopora-backend/pkg/auth/session"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/migrate"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
	"github.com/angelmondragon/shopora-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	policy, err := pricing.PolicyFromConfig(cfg.Pricing)
	if err != nil {
		return err
	}

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := buildServices(cfg, logg, dbClient, sessionManager, policy, reg)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, policy, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessionManager *session.Manager,
	policy pricing.Policy,
	reg prometheus.Registerer,
) (routes.Services, error) {
	gormDB := dbClient.DB()
	productRepo := products.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)

	productService, err := products.NewService(productRepo, dbClient, cfg.Catalog)
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(cartRepo, productRepo, policy, metrics.NewCartMetrics(reg), logg)
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:           orders.NewRepository(gormDB),
		Carts:          cartRepo,
		Inventory:      orders.NewInventory(productRepo),
		Tx:             dbClient,
		Outbox:         outbox.NewService(outbox.NewRepository(), logg),
		Policy:         policy,
		DecrementStock: cfg.FeatureFlags.DecrementStockOnOrder,
		Metrics:        metrics.NewOrderMetrics(reg),
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	usersService, err := users.NewService(userRepo, cfg.Password, logg)
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Carts:          cartService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		MergeOnLogin:   cfg.FeatureFlags.MergeGuestCartOnLogin,
		Logger:         logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:     authService,
		Cart:     cartService,
		Products: productService,
		Orders:   ordersService,
		Users:    usersService,
	}, nil
}
