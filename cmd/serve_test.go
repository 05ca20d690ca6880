package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog-ai/nutrilog/internal/analyzer"
	"github.com/nutrilog-ai/nutrilog/internal/cache"
	"github.com/nutrilog-ai/nutrilog/internal/model"
	"github.com/nutrilog-ai/nutrilog/internal/provider"
)

type fakeProvider struct {
	name        model.ProviderID
	result      *model.NutritionResult
	err         error
	suggestions []model.FoodSuggestion
}

func (f *fakeProvider) Name() model.ProviderID { return f.name }

func (f *fakeProvider) Analyze(context.Context, provider.Request) (*model.NutritionResult, error) {
	return f.result, f.err
}

func (f *fakeProvider) Suggest(context.Context, string, int) ([]model.FoodSuggestion, error) {
	return f.suggestions, f.err
}

func newTestServer(t *testing.T, p provider.Provider) http.Handler {
	t.Helper()
	st, err := cache.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	a := analyzer.New(st, provider.NewChain([]provider.Provider{p}))
	return newRouter(a, st, []string{"*"}, 1<<20)
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		name: model.ProviderAnthropic,
		result: &model.NutritionResult{
			Name:        "Idli",
			Calories:    39,
			HealthScore: model.HealthExcellent,
			Confidence:  model.ConfidenceHigh,
		},
		suggestions: []model.FoodSuggestion{{Name: "Idli", Calories: 39}},
	}
}

func TestServe_Health(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServe_Analyze_Success(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	body := strings.NewReader(`{"text":"idli"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var out analyzer.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.False(t, out.CacheHit)
	assert.Equal(t, "Idli", out.Result.Name)

	// Repeat query is served from cache.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"idli"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.CacheHit)
}

func TestServe_Analyze_EmptyRequest(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var out analyzer.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, analyzer.ErrInvalidInput, out.ErrorKind)
}

func TestServe_Analyze_BadJSON(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{not json`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_Analyze_BadImageEncoding(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"image_base64":"!!!not-base64!!!"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_Analyze_ProvidersDown(t *testing.T) {
	h := newTestServer(t, &fakeProvider{name: model.ProviderAnthropic, err: eris.New("down")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"idli"}`)))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var out analyzer.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, analyzer.ErrAnalysisUnavailable, out.ErrorKind)
}

func TestServe_Suggestions(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suggestions?q=id", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var suggestions []model.FoodSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Idli", suggestions[0].Name)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/suggestions", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_SimilarAndStats(t *testing.T) {
	h := newTestServer(t, healthyProvider())

	// Seed the cache through the analyze endpoint.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"idli"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/similar?q=idli", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []model.CachedRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Entries)
}
