package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/service"
	"github.com/symptom-kbs-mcp-server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, document string) http.Handler {
	t.Helper()
	logger := testutil.QuietLogger()
	path := testutil.WriteKnowledgeFile(t, document)
	store := knowledge.NewStore(logger, knowledge.StoreOptions{CacheTTL: time.Minute})
	svc := service.NewKnowledgeService(logger, knowledge.NewFileSource(path), store)
	t.Cleanup(func() { svc.Close() })

	return NewServer(domain.ServerConfig{Port: 8080}, svc, logger, "test").Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestHealthAndStatus(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	w = do(t, h, http.MethodPost, "/api/v1/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status domain.LoadStatus
	decode(t, do(t, h, http.MethodGet, "/api/v1/status", nil), &status)
	assert.Equal(t, domain.StatusValid, status.Status)
	assert.Equal(t, "1.0", status.Version)
}

func TestReady(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var e domain.ServiceError
	decode(t, w, &e)
	assert.Equal(t, domain.ErrNotLoaded, e.Code)
	assert.Equal(t, string(domain.StatusNotLoaded), e.Details)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/reload", nil).Code)

	w = do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDiagnose(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodPost, "/api/v1/diagnose", gin.H{"symptoms": []string{"fever"}})
	require.Equal(t, http.StatusOK, w.Code)

	var d service.Diagnosis
	decode(t, w, &d)
	require.Len(t, d.Results, 1)
	assert.Equal(t, "influenza", d.Results[0].DiseaseID)
	assert.Equal(t, 0.4, d.Results[0].Confidence)
	assert.Equal(t, "Rule 'R1' fired: symptoms [fever] matched (confidence 40%).", d.Results[0].Explanation)

	w = do(t, h, http.MethodPost, "/api/v1/diagnose", gin.H{"other": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiagnose_InvalidKnowledgeBase(t *testing.T) {
	h := newTestServer(t, `{"metadata": {"version": "1", "last_updated": "x"}, "diseases": []}`)

	w := do(t, h, http.MethodPost, "/api/v1/diagnose", gin.H{"symptoms": []string{"fever"}})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Code   string   `json:"code"`
		Errors []string `json:"errors"`
	}
	decode(t, w, &body)
	assert.Equal(t, domain.ErrInvalidSchema, body.Code)
	assert.Equal(t, []string{"missing top-level key: rules"}, body.Errors)

	health := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, health.Code)
}

func TestConditions(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodPost, "/api/v1/conditions", gin.H{"symptoms": []string{"sneezing"}})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Conditions []domain.ConditionMatch `json:"conditions"`
	}
	decode(t, w, &body)
	require.Len(t, body.Conditions, 1)
	assert.Equal(t, "common_cold", body.Conditions[0].Disease.ID)
}

func TestDiseaseLifecycle(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodPost, "/api/v1/diseases", knowledge.DiseaseInput{Name: "Measles", Symptoms: []string{"rash", "fever"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Disease
	decode(t, w, &created)
	assert.Equal(t, "measles", created.ID)

	w = do(t, h, http.MethodGet, "/api/v1/diseases?symptom=rash", nil)
	var list struct {
		Diseases []domain.Disease `json:"diseases"`
	}
	decode(t, w, &list)
	require.Len(t, list.Diseases, 1)
	assert.Equal(t, "measles", list.Diseases[0].ID)

	w = do(t, h, http.MethodPut, "/api/v1/diseases/measles", knowledge.DiseaseInput{Name: "Measles", Description: "Rubeola"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Disease
	decode(t, w, &updated)
	assert.Equal(t, "Rubeola", updated.Description)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/diseases/measles", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/diseases/measles", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/diseases", knowledge.DiseaseInput{}).Code)
}

func TestRuleLifecycle(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodPost, "/api/v1/rules", knowledge.RuleInput{
		Name: "flu fatigue", IfSymptoms: []string{"fatigue"}, ThenDiseaseID: "influenza", Confidence: 0.3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rule domain.Rule
	decode(t, w, &rule)
	assert.Equal(t, "flu_fatigue", rule.ID)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/rules/flu_fatigue", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/v1/rules/R9", knowledge.RuleInput{
		IfSymptoms: []string{"fever"}, ThenDiseaseID: "influenza", Confidence: 0.1,
	}).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/rules/R2", nil).Code)

	var list struct {
		Rules []domain.Rule `json:"rules"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/v1/rules", nil), &list)
	assert.Len(t, list.Rules, 2)
}

func TestSymptomEndpoints(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodPost, "/api/v1/symptoms", gin.H{"name": "Fatigue"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/symptoms/cough", gin.H{"new_name": "dry cough"})
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Symptoms []string `json:"symptoms"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/v1/symptoms?registered=true", nil), &list)
	assert.Equal(t, []string{"Fatigue", "dry cough", "fever", "runny nose", "sneezing"}, list.Symptoms)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/v1/symptoms/sneezing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/v1/symptoms/sneezing", nil).Code)
}

func TestValidateEndpoint(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate?format=yaml", bytes.NewBufferString("metadata: {version: '1', last_updated: '2026'}\ndiseases: []\n"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var report service.ValidationReport
	decode(t, w, &report)
	assert.Equal(t, []string{"missing top-level key: rules"}, report.Errors)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewBufferString("{"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryWithoutStore(t *testing.T) {
	h := newTestServer(t, testutil.KnowledgeDocument)

	w := do(t, h, http.MethodGet, "/api/v1/history?limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var summary service.HistorySummary
	decode(t, w, &summary)
	assert.Zero(t, summary.Total)
}
