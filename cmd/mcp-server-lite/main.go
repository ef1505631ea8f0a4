// Package main is the self-contained MCP server: a local or remote knowledge
// document, an in-memory result cache and SQLite search history.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symptom-kbs-mcp-server/internal/config"
	"github.com/symptom-kbs-mcp-server/internal/mcp"
	"github.com/symptom-kbs-mcp-server/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI("lite").Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	cfg := config.LoadLiteConfig()

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		server.Close()
		log.Fatalf("MCP server failed: %v", err)
	}
}
