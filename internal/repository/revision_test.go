package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/symptom-kbs-mcp-server/internal/database"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	config := database.Config{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: testPassword,
		MaxConns: 4,
		SSLMode:  "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	runner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	require.NoError(t, err)
	t.Cleanup(func() { runner.Close() })
	require.NoError(t, runner.Up())

	return db
}

func newRepo(t *testing.T) *RevisionRepository {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewRevisionRepository(setupTestDB(t).Pool, logger)
}

func TestRevisionRepository_AppendAndLatest(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := repo.Append(ctx, "1.0", []byte(`{"a":1}`), "initial")
	require.NoError(t, err)
	second, err := repo.Append(ctx, "1.1", []byte(`{"a":2}`), "")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.1", latest.Version)
	assert.JSONEq(t, `{"a":2}`, string(latest.Document))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "initial", got.Comment)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	deleted, err := repo.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRevisionSource_SaveAndLoad(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	store := knowledge.NewStore(logger, knowledge.StoreOptions{})
	src := NewRevisionSource(repo, "test")

	kb := &domain.KnowledgeBase{
		Metadata: domain.Metadata{Version: "2.0", LastUpdated: "2026-03-01"},
		Facts:    &domain.Facts{Symptoms: []string{"fever"}},
		Diseases: []domain.Disease{{ID: "flu", Name: "Flu", Symptoms: []string{"fever"}}},
		Rules:    []domain.Rule{{ID: "R1", IfSymptoms: []string{"fever"}, ThenDiseaseID: "flu", Confidence: 0.6}},
	}
	require.NoError(t, store.Save(ctx, src, kb))

	loaded, err := store.Load(ctx, src, true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", loaded.Metadata.Version)
	assert.Equal(t, domain.StatusValid, store.Status().Status)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.0", latest.Version)
	assert.Equal(t, "test", latest.Comment)
}
