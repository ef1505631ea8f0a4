package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "knowledge_base.json"), cfg.KnowledgePath)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.KnowledgeTTL)
	assert.True(t, cfg.Watch)
	assert.True(t, cfg.HistoryEnabled)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.KnowledgeURL)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("KBS_DATA_DIR", "/tmp/test-kbs")
	t.Setenv("KBS_CACHE_MAX_ITEMS", "500")
	t.Setenv("KBS_CACHE_TTL", "12h")
	t.Setenv("KBS_KNOWLEDGE_TTL", "30s")
	t.Setenv("KBS_WATCH", "false")
	t.Setenv("KBS_HISTORY", "0")
	t.Setenv("KBS_TRANSPORT", "http")
	t.Setenv("KBS_HTTP_PORT", "9090")
	t.Setenv("KBS_LOG_LEVEL", "debug")
	t.Setenv("KBS_KNOWLEDGE_URL", "https://example.org/kb.json")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-kbs", cfg.DataDir)
	assert.Equal(t, "/tmp/test-kbs/knowledge_base.json", cfg.KnowledgePath)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.KnowledgeTTL)
	assert.False(t, cfg.Watch)
	assert.False(t, cfg.HistoryEnabled)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://example.org/kb.json", cfg.KnowledgeURL)
}

func TestLoadLiteConfig_ExplicitKnowledgePath(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("KBS_DATA_DIR", "/tmp/test-kbs")
	t.Setenv("KBS_KNOWLEDGE_PATH", "/srv/kb.yaml")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/srv/kb.yaml", cfg.KnowledgePath)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("KBS_CACHE_MAX_ITEMS", "-3")
	t.Setenv("KBS_CACHE_TTL", "soon")
	t.Setenv("KBS_WATCH", "maybe")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.Watch)
}

func TestLiteConfig_HistoryDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.symptom-kbs"}

	assert.Equal(t, "/home/user/.symptom-kbs/history.db", cfg.HistoryDBPath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "kbs")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"KBS_DATA_DIR",
		"KBS_KNOWLEDGE_PATH",
		"KBS_KNOWLEDGE_URL",
		"KBS_KNOWLEDGE_TTL",
		"KBS_CACHE_MAX_ITEMS",
		"KBS_CACHE_TTL",
		"KBS_WATCH",
		"KBS_HISTORY",
		"KBS_TRANSPORT",
		"KBS_HTTP_PORT",
		"KBS_LOG_LEVEL",
		"KBS_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
