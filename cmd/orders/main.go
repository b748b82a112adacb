package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nearbuy/nearbuy-orders-service/internal/clients"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/events"
	"github.com/nearbuy/nearbuy-orders-service/internal/handlers"
	"github.com/nearbuy/nearbuy-orders-service/internal/metrics"
	"github.com/nearbuy/nearbuy-orders-service/internal/providers"
	"github.com/nearbuy/nearbuy-orders-service/internal/repository"
	"github.com/nearbuy/nearbuy-orders-service/internal/server"
	"github.com/nearbuy/nearbuy-orders-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("service", "orders-service"))
	slog.SetDefault(logger)

	logger.Info("starting orders-service", slog.Int("port", cfg.Server.Port))

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient := repository.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	orderStore := repository.NewPostgresOrderStore(db, logger)
	orderCache := repository.NewRedisOrderCache(redisClient, cfg.Redis, logger)
	rateLimiter := repository.NewRedisRateLimiter(redisClient, cfg.RateLimit, logger)

	registry := providers.NewRegistry(
		providers.NewUPIProvider(cfg.UPI),
		providers.NewRazorpayProvider(cfg.Razorpay, logger),
		providers.NewCashfreeProvider(cfg.Cashfree, logger),
	)

	listingClient := clients.NewHTTPListingClient(cfg.ListingService, logger)
	userClient := clients.NewHTTPUserClient(cfg.UserService, logger)
	notificationClient := clients.NewHTTPNotificationClient(cfg.NotificationService, logger)

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer eventPublisher.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	orderService := service.NewOrderService(service.Deps{
		Store:     orderStore,
		Cache:     orderCache,
		Limiter:   rateLimiter,
		Providers: registry,
		Listings:  listingClient,
		Users:     userClient,
		Notifier:  notificationClient,
		Publisher: eventPublisher,
		Metrics:   m,
		Logger:    logger,
	})

	h := handlers.NewHandlers(orderService, registry, db, m, logger)
	srv := server.New(h, cfg)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", slog.Any("error", err))
	}
	logger.Info("server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
