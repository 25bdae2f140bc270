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
	"github.com/biorbit/biorbit/internal/api/middleware"
	"github.com/biorbit/biorbit/internal/api/server"
	"github.com/biorbit/biorbit/internal/config"
	"github.com/biorbit/biorbit/internal/contract"
	"github.com/biorbit/biorbit/internal/domain"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
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
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Biorbit API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect the event publisher
	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect event publisher", zap.Error(err))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("stream", cfg.NATS.StreamName))

	// Build the registry contract and seed roles and parameters
	contractCfg, err := buildContractConfig(cfg.Contract)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid contract configuration", zap.Error(err))
	}
	registry := contract.New(contractCfg, dataStore, publisher, adapter.NewClock())
	if err := registry.Bootstrap(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to bootstrap registry", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Registry bootstrapped",
		zap.String("registry", contractCfg.RegistryAddress.String()),
		zap.String("deployer", contractCfg.Deployer.String()),
	)

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, registry, dataStore)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}

// buildContractConfig validates the configured addresses and seed parameters
func buildContractConfig(cfg config.ContractConfig) (contract.Config, error) {
	registryAddr, err := domain.ParseAddress(cfg.RegistryAddress)
	if err != nil {
		return contract.Config{}, fmt.Errorf("registry_address: %w", err)
	}
	deployer, err := domain.ParseAddress(cfg.Deployer)
	if err != nil {
		return contract.Config{}, fmt.Errorf("deployer: %w", err)
	}

	var relay domain.Address
	if cfg.RelayAddress != "" {
		relay, err = domain.ParseAddress(cfg.RelayAddress)
		if err != nil {
			return contract.Config{}, fmt.Errorf("relay_address: %w", err)
		}
	}

	donation, err := domain.NewAmount(cfg.InitialDonation)
	if err != nil {
		return contract.Config{}, fmt.Errorf("initial_donation: %w", err)
	}
	price, err := domain.NewAmount(cfg.InitialPrice)
	if err != nil {
		return contract.Config{}, fmt.Errorf("initial_price: %w", err)
	}

	return contract.Config{
		RegistryAddress: registryAddr,
		RelayAddress:    relay,
		Deployer:        deployer,
		InitialDonation: donation,
		InitialPrice:    price,
	}, nil
}
