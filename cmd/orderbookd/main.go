// Command orderbookd is the entry point for the order book ingestion
// service. It loads configuration, validates it, wires dependencies, sets
// up signal handling, and runs the ingestion supervisor until shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/orderbookcore/internal/config"
)

func main() {
	configPath := flag.String("config", "orderbookd.toml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("orderbookd starting",
		slog.String("run_id", deps.RunID),
		slog.String("config", *configPath),
		slog.String("storage_backend", cfg.Storage.Backend),
	)

	if err := deps.Supervisor.Run(ctx); err != nil {
		logger.Error("orderbookd exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("orderbookd stopped", slog.String("run_id", deps.RunID))
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
