package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/bridge"
	"github.com/biorbit/biorbit/internal/config"
	"github.com/biorbit/biorbit/internal/logger"
	"github.com/biorbit/biorbit/internal/providers/jetstream"
	"github.com/biorbit/biorbit/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadEventBridgeConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "event-bridge",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Biorbit event bridge")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	// Connect the event subscriber
	subscriber, err := jetstream.NewSubscriber(jetstream.SubscriberConfig{
		Config: jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		},
		ConsumerName:   cfg.NATS.ConsumerName,
		AckWaitTimeout: cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect event subscriber", zap.Error(err))
	}
	defer subscriber.Close()
	logger.InfoCtx(ctx, "Connected to NATS",
		zap.String("stream", cfg.NATS.StreamName),
		zap.String("consumer", cfg.NATS.ConsumerName),
	)

	// Build the bridge
	b := bridge.NewBridge(bridge.Config{
		WorkerPoolSize:       cfg.Worker.WorkerPoolSize,
		WorkerQueueSize:      cfg.Worker.WorkerQueueSize,
		DeliveryTimeout:      cfg.Webhook.DeliveryTimeout,
		RetryInitialInterval: cfg.Webhook.RetryInitialInterval,
		RetryMaxInterval:     cfg.Webhook.RetryMaxInterval,
	}, subscriber, dataStore, adapter.NewHTTPClient(cfg.Webhook.DeliveryTimeout), adapter.NewJSON(), adapter.NewClock())
	defer b.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := b.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "bridge"))
		cancel()
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("Event bridge stopped")
}
