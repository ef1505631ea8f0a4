package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/testutil"
)

func newTestService(t *testing.T, opts ...Option) (*KnowledgeService, string) {
	t.Helper()
	path := testutil.WriteKnowledgeFile(t, testutil.KnowledgeDocument)
	logger := testutil.QuietLogger()
	store := knowledge.NewStore(logger, knowledge.StoreOptions{CacheTTL: time.Minute})
	svc := NewKnowledgeService(logger, knowledge.NewFileSource(path), store, opts...)
	t.Cleanup(func() { svc.Close() })
	return svc, path
}

// readOnlySource serves a fixed document and cannot be written.
type readOnlySource struct{ data string }

func (r readOnlySource) Key() string              { return "memory:test" }
func (r readOnlySource) Format() knowledge.Format { return knowledge.FormatJSON }
func (r readOnlySource) Read(context.Context) ([]byte, error) {
	return []byte(r.data), nil
}

func TestDiagnose_RanksAndExplains(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.Diagnose(context.Background(), []string{"Fever", " cough "})

	require.NoError(t, err)
	assert.Equal(t, []string{"Fever", "cough"}, d.Symptoms)
	assert.Equal(t, "1.0", d.KnowledgeVersion)
	require.NotEmpty(t, d.Results)
	assert.Equal(t, "influenza", d.Results[0].DiseaseID)
	assert.Equal(t, 0.8, d.Results[0].Confidence)
	assert.False(t, d.Cached)
	assert.Equal(t, domain.StatusValid, svc.Status().Status)
}

func TestDiagnose_UsesResultCache(t *testing.T) {
	results, err := cache.NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	svc, _ := newTestService(t, WithResultCache(results))
	ctx := context.Background()

	first, err := svc.Diagnose(ctx, []string{"fever", "cough"})
	require.NoError(t, err)
	second, err := svc.Diagnose(ctx, []string{"COUGH", "fever"})
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, results.Len())

	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.Zero(t, results.Len())
}

// onLogMessage runs fn the first time the logger emits message.
type onLogMessage struct {
	message string
	once    sync.Once
	fn      func()
}

func (h *onLogMessage) Levels() []logrus.Level { return logrus.AllLevels }

func (h *onLogMessage) Fire(entry *logrus.Entry) error {
	if entry.Message == h.message {
		h.once.Do(h.fn)
	}
	return nil
}

func TestDiagnose_CacheKeyFollowsComputedSnapshot(t *testing.T) {
	results, err := cache.NewMemoryCache(10, time.Minute)
	require.NoError(t, err)

	path := testutil.WriteKnowledgeFile(t, testutil.KnowledgeDocument)
	logger := testutil.QuietLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := knowledge.NewStore(logger, knowledge.StoreOptions{CacheTTL: time.Minute})
	svc := NewKnowledgeService(logger, knowledge.NewFileSource(path), store, WithResultCache(results))
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)

	// An edit lands after the query picked up its snapshot but before it
	// stored its results.
	edited := strings.Replace(testutil.KnowledgeDocument, `"confidence": 0.8`, `"confidence": 0.5`, 1)
	logger.AddHook(&onLogMessage{
		message: "Knowledge base served from cache",
		fn: func() {
			time.Sleep(time.Millisecond)
			require.NoError(t, os.WriteFile(path, []byte(edited), 0644))
			_, err := svc.Reload(ctx)
			require.NoError(t, err)
		},
	})

	first, err := svc.Diagnose(ctx, []string{"fever", "cough"})
	require.NoError(t, err)
	assert.Equal(t, 0.8, first.Results[0].Confidence)

	second, err := svc.Diagnose(ctx, []string{"fever", "cough"})
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, 0.5, second.Results[0].Confidence)
}

func TestDiagnose_RecordsHistory(t *testing.T) {
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	svc, _ := newTestService(t, WithHistory(store))
	ctx := context.Background()

	_, err = svc.Diagnose(ctx, []string{"sneezing", "runny nose"})
	require.NoError(t, err)
	_, err = svc.Diagnose(ctx, []string{"  "})
	require.NoError(t, err)

	summary, err := svc.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Total)
	require.Len(t, summary.Recent, 1)
	assert.Equal(t, "common_cold", summary.Recent[0].TopDiseaseID)
	assert.Equal(t, 0.6, summary.Recent[0].TopConfidence)
	assert.Equal(t, []history.DiseaseCount{{DiseaseID: "common_cold", Count: 1}}, summary.TopDiseases)
}

func TestRecentSearches_WithoutHistory(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.RecentSearches(context.Background(), 5)

	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Recent)
}

func TestDiagnose_InvalidDocument(t *testing.T) {
	path := testutil.WriteKnowledgeFile(t, `{"metadata": {"version": "1", "last_updated": "x"}, "diseases": []}`)
	svc := NewKnowledgeService(testutil.QuietLogger(), knowledge.NewFileSource(path), nil)

	_, err := svc.Diagnose(context.Background(), []string{"fever"})

	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Errors, "missing top-level key: rules")
	assert.Equal(t, domain.StatusInvalidSchema, svc.Status().Status)
}

func TestRankConditions(t *testing.T) {
	svc, _ := newTestService(t)

	matches, err := svc.RankConditions(context.Background(), []string{"cough", "sneezing"})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "common_cold", matches[0].Disease.ID)
}

func TestQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	symptoms, err := svc.Symptoms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cough", "fatigue", "fever", "muscle aches", "runny nose", "sneezing"}, symptoms)

	registered, err := svc.RegisteredSymptoms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cough", "fever", "runny nose", "sneezing"}, registered)

	d, err := svc.Disease(ctx, "influenza")
	require.NoError(t, err)
	assert.Equal(t, "Influenza", d.Name)

	_, err = svc.Disease(ctx, "plague")
	assert.True(t, IsNotFound(err))

	_, err = svc.Rule(ctx, "R9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := svc.SearchDiseases(ctx, "cold", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "common_cold", found[0].ID)

	found, err = svc.SearchDiseases(ctx, "", "aches")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "influenza", found[0].ID)

	all, err := svc.SearchDiseases(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddDisease_PersistsToSource(t *testing.T) {
	svc, path := newTestService(t)
	ctx := context.Background()

	d, err := svc.AddDisease(ctx, knowledge.DiseaseInput{
		Name:     "Strep Throat",
		Symptoms: []string{"sore throat", "fever"},
	})
	require.NoError(t, err)
	assert.Equal(t, "strep_throat", d.ID)

	// a fresh store reading the file sees the new disease
	fresh := knowledge.NewStore(testutil.QuietLogger(), knowledge.StoreOptions{})
	kb, err := fresh.Load(ctx, knowledge.NewFileSource(path), false)
	require.NoError(t, err)
	_, ok := knowledge.DiseaseByID(kb, "strep_throat")
	assert.True(t, ok)
}

func TestAddRule_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddRule(ctx, knowledge.RuleInput{ThenDiseaseID: "influenza", Confidence: 0.5})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "if_symptoms", vErr.Field)

	_, err = svc.AddRule(ctx, knowledge.RuleInput{IfSymptoms: []string{"fever"}, ThenDiseaseID: "influenza", Confidence: 1.5})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "confidence", vErr.Field)

	r, err := svc.AddRule(ctx, knowledge.RuleInput{IfSymptoms: []string{"fatigue"}, ThenDiseaseID: "influenza", Confidence: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "R3", r.ID)
}

func TestUpdateAndDeleteRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.UpdateRule(ctx, "R1", knowledge.RuleInput{IfSymptoms: []string{"fever"}, ThenDiseaseID: "influenza", Confidence: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"fever"}, r.IfSymptoms)

	_, err = svc.UpdateRule(ctx, "R9", knowledge.RuleInput{IfSymptoms: []string{"fever"}, ThenDiseaseID: "influenza"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.DeleteRule(ctx, "R2"))
	rules, err := svc.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestDeleteDisease_LeavesDanglingRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.DeleteDisease(ctx, "influenza"))

	status := svc.Status()
	assert.Equal(t, domain.StatusConsistencyWarnings, status.Status)
	require.Len(t, status.Warnings, 1)
	assert.Contains(t, status.Warnings[0], `rule R1 references unknown disease "influenza"`)

	assert.ErrorIs(t, svc.DeleteDisease(ctx, "influenza"), domain.ErrNotFound)
}

func TestRenameSymptom_PropagatesAndPersists(t *testing.T) {
	svc, path := newTestService(t)
	ctx := context.Background()

	changed, err := svc.RenameSymptom(ctx, "Cough", "dry cough")
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"cough"`)

	flu, err := svc.Disease(ctx, "influenza")
	require.NoError(t, err)
	assert.Contains(t, flu.Symptoms, "dry cough")

	changed, err = svc.RenameSymptom(ctx, "dry cough", "DRY COUGH!")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = svc.RenameSymptom(ctx, "fever", " ")
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSymptomRegistry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddSymptom(ctx, "Fatigue")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.AddSymptom(ctx, "fatigue")
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, svc.DeleteSymptom(ctx, "sneezing"))
	assert.ErrorIs(t, svc.DeleteSymptom(ctx, "sneezing"), domain.ErrNotFound)

	cold, err := svc.Disease(ctx, "common_cold")
	require.NoError(t, err)
	assert.Equal(t, []string{"runny nose", "cough"}, cold.Symptoms)
}

func TestMutations_ReadOnlySource(t *testing.T) {
	svc := NewKnowledgeService(testutil.QuietLogger(), readOnlySource{data: testutil.KnowledgeDocument}, nil)
	ctx := context.Background()

	assert.False(t, svc.Writable())
	_, err := svc.AddDisease(ctx, knowledge.DiseaseInput{Name: "Measles"})
	assert.True(t, errors.Is(err, domain.ErrReadOnlySource))

	d, err := svc.Diagnose(ctx, []string{"fever"})
	require.NoError(t, err)
	assert.Equal(t, 0.4, d.Results[0].Confidence)
}

func TestReload_PicksUpExternalEdits(t *testing.T) {
	svc, path := newTestService(t)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	status, err := svc.Reload(ctx)

	var malformed *domain.MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, domain.StatusError, status.Status)
}

func TestValidate(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.Validate([]byte(testutil.KnowledgeDocument), knowledge.FormatJSON)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, domain.StatusValid, report.Status)

	report, err = svc.Validate([]byte(`{"metadata": {}, "diseases": [], "rules": []}`), knowledge.FormatJSON)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, domain.StatusInvalidSchema, report.Status)
	assert.NotEmpty(t, report.Errors)

	_, err = svc.Validate([]byte(`[`), knowledge.FormatJSON)
	var malformed *domain.MalformedSourceError
	assert.ErrorAs(t, err, &malformed)
}

func TestWatch_InvalidatesOnChange(t *testing.T) {
	svc, path := newTestService(t)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Watch(ctx))

	updated := []byte(`{"metadata": {"version": "2.0", "last_updated": "2026-03-01"}, "diseases": [], "rules": []}`)
	require.NoError(t, os.WriteFile(path, updated, 0644))

	assert.Eventually(t, func() bool {
		kb, err := svc.Snapshot(ctx)
		return err == nil && kb.Metadata.Version == "2.0"
	}, 3*time.Second, 50*time.Millisecond)
}
