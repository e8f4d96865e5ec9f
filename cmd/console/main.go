package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nowaiting/clinic-console/internal/adapters/cache"
	"github.com/nowaiting/clinic-console/internal/adapters/database"
	"github.com/nowaiting/clinic-console/internal/adapters/feed"
	"github.com/nowaiting/clinic-console/internal/api/handlers"
	"github.com/nowaiting/clinic-console/internal/api/routes"
	"github.com/nowaiting/clinic-console/internal/application/services"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/ledgerapi"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/postgres"
	"github.com/nowaiting/clinic-console/internal/infrastructure/clients/redis"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	"github.com/nowaiting/clinic-console/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger("clinic-console", cfg.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Primary store
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	// Change feed and cache share one Redis connection
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize Redis client: %v", err)
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis client initialized")

	changeFeed := feed.NewRedisChangeFeed(redisClient)
	cacheProvider := cache.NewRedisAdapter(redisClient)

	// Secondary ledger
	ledger := ledgerapi.NewClient(cfg.Ledger.BaseURL, cfg.Ledger.Timeout)

	// Adapters
	queueRepo := database.NewQueueAdapter(pgClient, changeFeed)
	pointerRepo := database.NewOrderPointerAdapter(pgClient, changeFeed)
	failureLog := database.NewReconciliationLogAdapter(pgClient)

	// Services
	dispatcher := services.NewDispatcher(failureLog)
	pointerService := services.NewOrderPointerService(pointerRepo)
	settingsService := services.NewSettingsService(ledger, cacheProvider)
	reconciliationService := services.NewReconciliationService(ledger, dispatcher)
	visitService := services.NewVisitService(queueRepo, pointerService, reconciliationService, settingsService)
	paymentService := services.NewPaymentService(queueRepo, ledger, dispatcher)

	// Handlers and routes
	queueHandler := handlers.NewQueueHandler(visitService, paymentService, pointerService, settingsService)
	streamHandler := handlers.NewStreamHandler(changeFeed, queueRepo, metrics)

	router := routes.NewRouter(queueHandler, streamHandler, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: event stream connections stay open all day.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	// Let in-flight ledger pushes finish before tearing the feed down.
	dispatcher.Wait()

	if err := changeFeed.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing change feed")
	}

	logger.Info().Msg("server stopped")
}
