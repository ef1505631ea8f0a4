package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symptom-kbs-mcp-server/internal/api"
	"github.com/symptom-kbs-mcp-server/internal/app"
	"github.com/symptom-kbs-mcp-server/internal/config"
	"github.com/symptom-kbs-mcp-server/internal/logging"
)

var version = "dev"

func main() {
	// KBS_CONFIG_FILE names an explicit config file; otherwise the usual
	// locations are searched.
	configManager, err := config.NewManagerFromFile(os.Getenv("KBS_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithField("version", version).Infof("Starting Symptom KBS API on %s:%d", cfg.Server.Host, cfg.Server.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble knowledge service")
	}
	defer application.Close()

	application.Start(ctx, cfg)

	server := api.NewServer(cfg.Server, application.Service, logger, version)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
