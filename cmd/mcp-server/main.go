package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symptom-kbs-mcp-server/internal/app"
	"github.com/symptom-kbs-mcp-server/internal/config"
	"github.com/symptom-kbs-mcp-server/internal/logging"
	"github.com/symptom-kbs-mcp-server/internal/mcp"
	"github.com/symptom-kbs-mcp-server/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI("full").Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	configManager, err := config.NewManagerFromFile(os.Getenv("KBS_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	// stdout carries the protocol on stdio; logging.New writes to stderr
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble knowledge service")
	}
	defer application.Close()

	application.Start(ctx, cfg)

	server := mcp.NewServer(cfg.MCP, application.Service, logger)
	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		application.Close()
		os.Exit(1)
	}

	logger.Info("Symptom KBS MCP Server stopped")
}
