package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"streambet/api"
	"streambet/auth"
	"streambet/config"
	"streambet/database"
	"streambet/events"
	"streambet/fanout"
	"streambet/infrastructure"
	"streambet/observability"
	"streambet/ratelimit"
	"streambet/repository"
	"streambet/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	logrus "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting streambet...")

	cfg := config.Get()
	configureLogging(cfg)

	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Println("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Rate limiter counters
	log.Println("Connecting to redis...")
	var limiter service.RateLimiter
	redisClient, err := ratelimit.Connect(ctx, cfg.RedisURL)
	switch {
	case err == nil:
		defer redisClient.Close()
		limiter = ratelimit.NewFixedWindowLimiter(redisClient, cfg.RateLimitFailOpen)
		log.Println("Rate limiter initialized successfully")
	case cfg.RateLimitFailOpen:
		logrus.WithError(err).Warn("Redis unavailable, running without rate limits")
	default:
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// External event stream
	natsClient, err := startEventBridge(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close()
	}

	log.Println("Initializing services...")
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTExpire)
	verifier := auth.NewTelegramVerifier(cfg.BotToken, cfg.TelegramAuthMaxAge)
	services := api.Services{
		Auth:    service.NewAuthService(uowFactory, verifier, tokens, cfg),
		Users:   service.NewUserService(uowFactory, cfg),
		Wallets: service.NewWalletService(uowFactory),
		Markets: service.NewMarketService(uowFactory),
		Betting: service.NewBettingService(uowFactory, limiter),
		Chat:    service.NewChatService(uowFactory, limiter),
	}
	log.Println("Services initialized successfully")

	if _, err := services.Users.SeedAdmins(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to seed configured admins")
	}

	registry := fanout.NewRegistry()
	fanout.Subscribe(eventBus, registry)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	metrics.Subscribe(eventBus)

	checks := map[string]observability.HealthFunc{"postgres": db.HealthCheck}
	if redisClient != nil {
		checks["redis"] = redisHealth(redisClient)
	}
	if natsClient != nil {
		checks["nats"] = func(context.Context) error {
			if !natsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	metricsServer := observability.StartMetricsServer(cfg.MetricsAddr, observability.NewMetricsHandler(prometheus.DefaultGatherer, checks))

	httpServer := api.NewServer(services, tokens, registry, metrics, cfg).NewHTTPServer(cfg.HTTPAddr)
	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Printf("API listening on %s in %s mode...", cfg.HTTPAddr, cfg.Environment)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics server: %v", err)
	}

	log.Println("Shutdown completed")
	return nil
}

// startEventBridge connects to NATS and forwards domain events to JetStream.
// It returns a nil client when NATS is disabled.
func startEventBridge(ctx context.Context, cfg *config.Config, bus *events.Bus) (*infrastructure.NATSClient, error) {
	if !cfg.NATSEnabled {
		infrastructure.BridgeEvents(bus, infrastructure.NewNoopEventPublisher())
		return nil, nil
	}

	log.Println("Connecting to NATS...")
	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureDomainEventStream(mapper); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	infrastructure.BridgeEvents(bus, infrastructure.NewNATSEventPublisher(client, mapper))
	log.Println("Event bridge to NATS started")
	return client, nil
}

func redisHealth(client *redis.Client) observability.HealthFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
