package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

var sampleResults = []domain.InferenceResult{
	{
		DiseaseID:       "influenza",
		DiseaseName:     "Influenza",
		Confidence:      0.4,
		MatchedSymptoms: []string{"fever"},
		FiredRules:      []domain.FiredRule{{RuleID: "R1", MatchedSymptoms: []string{"fever"}, RuleConfidence: 0.4}},
		Explanation:     "Rule 'R1' fired: symptoms [fever] matched (confidence 40%).",
	},
}

func TestDiagnosisKey(t *testing.T) {
	loaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := DiagnosisKey("file:/kb.json", loaded, []string{"Fever", "cough"})
	b := DiagnosisKey("file:/kb.json", loaded, []string{"cough!", "fever", "FEVER"})
	c := DiagnosisKey("file:/kb.json", loaded.Add(time.Second), []string{"fever", "cough"})
	d := DiagnosisKey("file:/other.json", loaded, []string{"fever", "cough"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "diagnosis:")
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", sampleResults))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sampleResults, got)

	require.NoError(t, c.Set(ctx, "b", nil))
	require.NoError(t, c.Set(ctx, "c", nil))
	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok, "least recently used entry is evicted")

	require.NoError(t, c.Purge(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", sampleResults))
	time.Sleep(60 * time.Millisecond)

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestNewMemoryCache_InvalidSize(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c ResultCache = Noop{}
	require.NoError(t, c.Set(context.Background(), "a", sampleResults))

	_, ok, err := c.Get(context.Background(), "a")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(domain.CacheConfig{RedisURL: redisURL, DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Purge(ctx))

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", sampleResults))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sampleResults, got)

	require.NoError(t, c.Purge(ctx))
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not a url"})
	assert.Error(t, err)
}
