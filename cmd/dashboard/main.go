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

	"github.com/rickgao/dexscan-data/internal/api"
	"github.com/rickgao/dexscan-data/internal/config"
	"github.com/rickgao/dexscan-data/internal/engine"
	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/stream"
	"github.com/rickgao/dexscan-data/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty = environment only)")
	flag.Parse()

	// Best-effort .env load before anything reads the environment.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dashboard data core",
		"version", version.Version,
		"commit", version.Commit,
	)

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	} else {
		cfg = config.FromEnv()
	}

	logger.Info("configuration loaded",
		"rest_url", cfg.API.RestURL,
		"ws_url", cfg.Stream.WSURL,
		"flush_interval", cfg.Merge.FlushInterval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// REST client
	apiClient := api.NewClient(
		cfg.API.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Streaming transport
	clientCfg := stream.DefaultClientConfig()
	clientCfg.URL = cfg.Stream.WSURL
	clientCfg.WriteTimeout = cfg.Stream.WriteTimeout
	clientCfg.BufferSize = cfg.Stream.BufferSize

	transport := stream.NewTransport(
		cfg.Stream,
		stream.WebSocketDialer(clientCfg, logger),
		logger,
	)

	// View parameters
	params := model.ScannerParams{
		RankBy:           cfg.Scanner.RankBy,
		Order:            cfg.Scanner.Order,
		Chain:            cfg.Scanner.Chain,
		MinVolume24h:     cfg.Scanner.MinVolume24h,
		MaxAgeHours:      cfg.Scanner.MaxAgeHours,
		MinMarketCap:     cfg.Scanner.MinMarketCap,
		ExcludeHoneypots: cfg.Scanner.ExcludeHoneypots,
	}

	// Control loop
	ctrl := engine.New(cfg.Merge, apiClient, transport, params, logger)
	if err := ctrl.Start(ctx); err != nil {
		logger.Error("failed to start controller", "error", err)
		os.Exit(1)
	}

	// Periodic status line until shutdown.
	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := ctrl.Stop(shutdownCtx); err != nil {
				logger.Warn("controller stop", "error", err)
			}
			return

		case <-statusTicker.C:
			status := ctrl.ConnectionStatus()
			logger.Info("status",
				"state", status.State.String(),
				"countdown", status.Countdown,
				"rows", ctrl.Collection().Len(),
				"subscriptions", ctrl.Registry().Count(),
			)
		}
	}
}
