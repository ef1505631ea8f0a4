// Package config provides configuration management for the servers and CLI.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and reads only environment variables.
type LiteConfig struct {
	// Data storage
	DataDir       string // Base directory for the history database
	KnowledgePath string // Knowledge document (JSON or YAML)
	KnowledgeURL  string // Optional read-only remote document, wins over KnowledgePath

	// Cache settings
	KnowledgeTTL  time.Duration // Snapshot cache TTL
	CacheMaxItems int           // Maximum diagnosis results kept in memory
	CacheTTL      time.Duration // Diagnosis result TTL

	// Behaviour
	Watch          bool // Invalidate the snapshot when the knowledge file changes
	HistoryEnabled bool // Record searches in SQLite

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".symptom-kbs")

	return &LiteConfig{
		DataDir:        dataDir,
		KnowledgePath:  filepath.Join(dataDir, "knowledge_base.json"),
		KnowledgeTTL:   5 * time.Minute,
		CacheMaxItems:  1000,
		CacheTTL:       10 * time.Minute,
		Watch:          true,
		HistoryEnabled: true,
		Transport:      "stdio",
		HTTPPort:       8081,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory; the default knowledge path follows it
	if v := os.Getenv("KBS_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.KnowledgePath = filepath.Join(v, "knowledge_base.json")
	}
	if v := os.Getenv("KBS_KNOWLEDGE_PATH"); v != "" {
		cfg.KnowledgePath = v
	}
	cfg.KnowledgeURL = os.Getenv("KBS_KNOWLEDGE_URL")

	// Cache settings
	if v := os.Getenv("KBS_KNOWLEDGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.KnowledgeTTL = d
		}
	}
	if v := os.Getenv("KBS_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("KBS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("KBS_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch = b
		}
	}
	if v := os.Getenv("KBS_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HistoryEnabled = b
		}
	}

	// Transport
	if v := os.Getenv("KBS_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("KBS_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("KBS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KBS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the search history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
