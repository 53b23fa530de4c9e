package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcoot/numerus/internal/api"
	"github.com/mcoot/numerus/internal/config"
	"github.com/mcoot/numerus/internal/factory"
)

func main() {
	configPath := flag.String("config", os.Getenv("NUMERUS_CONFIG"), "Path to a YAML config file")
	flag.Parse()

	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
	}
	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisCfg := cfg.RedisStorage()
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		pgCfg := cfg.PostgresStorage()
		factoryCfg.PostgresConfig = &pgCfg
	}
	if cfg.BrokerType() == config.BrokerNATS {
		natsCfg := cfg.NATSBroker()
		factoryCfg.NATSConfig = &natsCfg
	}

	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:  logger,
		Backend: app.Service,
		APIKey:  cfg.Server.APIKey,
	})
	server := api.NewServer(router, cfg.HTTPServer(), logger)

	go cleanupHubs(ctx, app, cfg.Server.HubCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("broker", cfg.BrokerType()),
		slog.Bool("api_key", cfg.Server.APIKey != ""))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// End open feeds so streaming handlers return
		app.Service.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func cleanupHubs(ctx context.Context, app *factory.App, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.Service.Hubs().CleanupEmptyHubs()
		}
	}
}
