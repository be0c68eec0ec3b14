/**
 * @description
 * This is the main entry point for the billing-service.
 * It initializes and wires together all the components of the application:
 * configuration, database connection, plan catalog, Polar API client,
 * RabbitMQ producer, repository, service, and the HTTP router. Finally, it
 * starts the HTTP server to listen for incoming requests.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/tradedeck/billing-service/internal/api"
	"github.com/tradedeck/billing-service/internal/app"
	"github.com/tradedeck/billing-service/internal/catalog"
	"github.com/tradedeck/billing-service/internal/config"
	"github.com/tradedeck/billing-service/internal/polar"
	"github.com/tradedeck/billing-service/internal/store"
	"github.com/tradedeck/billing-service/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolCfg.MaxConns = 50
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Use simple protocol so the service works behind PgBouncer transaction
	// pooling without prepared-statement cache errors.
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewRepository(dbpool)
	if err := repository.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Build the immutable plan catalog from configuration.
	planCatalog, err := catalog.New(cfg.Plans)
	if err != nil {
		logger.Error("invalid plan catalog", "error", err)
		os.Exit(1)
	}

	// Event publishing is optional: without a broker URL the service still
	// reconciles webhooks, it just does not fan updates out.
	var publisher app.Publisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
		logger.Info("RabbitMQ producer connected")
	} else {
		logger.Warn("RABBITMQ_URL not set, entitlement events will not be published")
	}

	// Initialize application layers
	polarClient := polar.NewClient(cfg.PolarAccessToken, cfg.PolarOrganizationID)
	service := app.NewService(repository, planCatalog, publisher)

	// Warm the paywall product cache and refresh it hourly.
	productCache := app.NewProductCache(polarClient)
	if err := productCache.Refresh(ctx); err != nil {
		logger.Warn("initial product cache refresh failed", "error", err)
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer refreshCancel()
		if err := productCache.Refresh(refreshCtx); err != nil {
			logger.Warn("product cache refresh failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule product cache refresh", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, polarClient, productCache, cfg.PolarWebhookSecret)
	router := api.NewRouter(handler, cfg.ClerkJWKSURL)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
