package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/testutil"
)

func TestNewResultCache(t *testing.T) {
	c, err := NewResultCache(domain.CacheConfig{Backend: "memory", MaxItems: 10, DefaultTTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)

	c, err = NewResultCache(domain.CacheConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Equal(t, cache.Noop{}, c)

	_, err = NewResultCache(domain.CacheConfig{Backend: "memcached"})
	assert.ErrorContains(t, err, "invalid cache backend")

	_, err = NewResultCache(domain.CacheConfig{Backend: "redis", RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestNewHistory(t *testing.T) {
	h, err := NewHistory(domain.HistoryConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "h.db")}, "", testutil.QuietLogger())
	require.NoError(t, err)
	assert.IsType(t, &history.SQLiteStore{}, h)
	require.NoError(t, h.Close())

	h, err = NewHistory(domain.HistoryConfig{Driver: "none"}, "", testutil.QuietLogger())
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = NewHistory(domain.HistoryConfig{Driver: "mongo"}, "", testutil.QuietLogger())
	assert.ErrorContains(t, err, "invalid history driver")
}

func TestNew_FileSource(t *testing.T) {
	dir := t.TempDir()
	cfg := &domain.Config{
		Knowledge: domain.KnowledgeConfig{
			Path:     testutil.WriteKnowledgeFile(t, testutil.KnowledgeDocument),
			CacheTTL: time.Minute,
			Watch:    true,
		},
		History: domain.HistoryConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "history.db")},
		Cache:   domain.CacheConfig{Backend: "memory", MaxItems: 100, DefaultTTL: time.Minute},
	}

	a, err := New(context.Background(), cfg, testutil.QuietLogger())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx, cfg)

	assert.Equal(t, domain.StatusValid, a.Service.Status().Status)
	assert.True(t, a.Service.Writable())
	assert.Nil(t, a.DB)

	d, err := a.Service.Diagnose(ctx, []string{"fever", "cough"})
	require.NoError(t, err)
	assert.Equal(t, "influenza", d.Results[0].DiseaseID)

	summary, err := a.Service.RecentSearches(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Total)
}

func TestNew_URLSourceIsReadOnly(t *testing.T) {
	cfg := &domain.Config{
		Knowledge: domain.KnowledgeConfig{URL: "http://127.0.0.1:1/kb.json", HTTPTimeout: time.Second},
		History:   domain.HistoryConfig{Driver: "none"},
		Cache:     domain.CacheConfig{Backend: "none"},
	}

	a, err := New(context.Background(), cfg, testutil.QuietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Service.Writable())
	assert.Equal(t, "url:http://127.0.0.1:1/kb.json", a.Service.SourceKey())
}

func TestNew_InvalidHistoryDriver(t *testing.T) {
	cfg := &domain.Config{
		Knowledge: domain.KnowledgeConfig{Path: "kb.json"},
		History:   domain.HistoryConfig{Driver: "mongo"},
		Cache:     domain.CacheConfig{Backend: "none"},
	}

	_, err := New(context.Background(), cfg, testutil.QuietLogger())

	assert.Error(t, err)
}
