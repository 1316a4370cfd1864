package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/seekrai/internal/analyzer"
	"github.com/jonathan/seekrai/internal/batch"
	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/jobsource"
	"github.com/jonathan/seekrai/internal/llm"
	"github.com/jonathan/seekrai/internal/pipeline"
	"github.com/jonathan/seekrai/internal/progress"
	"github.com/jonathan/seekrai/internal/redact"
	"github.com/jonathan/seekrai/internal/types"
)

// cannedLLM answers every operation with a fixed, valid response.
type cannedLLM struct{}

func (cannedLLM) GenerateJSON(_ context.Context, operation, _ string, _ llm.ModelTier) (string, error) {
	switch operation {
	case analyzer.OpExtractKeywords:
		return `{"technical_skills": ["Go"], "job_titles": ["Engineer"], "industries": [],
			"specializations": [], "experience_level": "senior", "years_experience": "5",
			"location_preferences": []}`, nil
	case analyzer.OpGenerateSearchTerms:
		return `{"primary_search_terms": ["engineer"], "location": "Remote",
			"combined_search_string": "engineer remote"}`, nil
	default:
		return `{"similarity_score": 6, "key_matches": ["Go"], "explanation": "fit"}`, nil
	}
}

func (cannedLLM) GetModel(llm.ModelTier) string { return "stub" }
func (cannedLLM) Close() error                  { return nil }

type staticSource struct{ postings []types.JobPosting }

func (s staticSource) Search(_ context.Context, _ jobsource.Query, p jobsource.Progress) (*jobsource.SearchResult, error) {
	if p != nil {
		p("stubboard", len(s.postings), 1, 1)
	}
	return &jobsource.SearchResult{Postings: s.postings}, nil
}

func newTestServer(t *testing.T) (*Server, cache.Store) {
	t.Helper()

	store, err := cache.NewFileStore(t.TempDir(), 0, nil)
	require.NoError(t, err)

	tracker := progress.NewTracker(time.Minute, nil)
	t.Cleanup(tracker.Stop)

	source := staticSource{postings: []types.JobPosting{
		{Title: "Engineer", Company: "Acme", URL: "https://example.com/1", Description: "Go"},
	}}
	p := pipeline.New(
		redact.New(nil),
		analyzer.New(cannedLLM{}, store, nil),
		source,
		batch.New(cannedLLM{}, store, nil, batch.Options{Delay: 0}),
		tracker, 5, nil,
	)
	runner := pipeline.NewRunner(p, tracker, nil)
	t.Cleanup(runner.Stop)

	return New(Config{Port: 0}, runner, tracker, store, nil), store
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCreateAndPollAnalysis(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	w := postJSON(t, handler, "/analyses", map[string]any{
		"resume":         "Jane Smith\njane@example.com\nGo engineer",
		"results_wanted": 1,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var created CreateAnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.JobID)

	var status pipeline.JobStatus
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/analyses/"+created.JobID, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		return status.Progress.Phase == progress.PhaseComplete
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, status.Result)
	assert.Equal(t, 1, status.Result.Returned)
	assert.Equal(t, 100, status.Progress.Percent)
}

func TestCreateAnalysisValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postJSON(t, srv.Handler(), "/analyses", map[string]any{"results_wanted": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Resume")

	w = postJSON(t, srv.Handler(), "/analyses", map[string]any{
		"resume": "text", "results_wanted": 500,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnalysisNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/analyses/unknown-id", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCacheEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	handler := srv.Handler()
	ctx := context.Background()

	store.Put(ctx, "abc123", map[string]string{"hello": "world"})
	store.Put(ctx, "def456", map[string]string{"other": "entry"})

	// GET /cache lists stats and entries
	req := httptest.NewRequest(http.MethodGet, "/cache", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		Stats   cache.Stats       `json:"stats"`
		Entries []cache.EntryInfo `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 2, info.Stats.EntryCount)
	assert.Len(t, info.Entries, 2)

	// POST /cache/purge removes nothing while entries are fresh
	req = httptest.NewRequest(http.MethodPost, "/cache/purge", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries_removed": 0}`, w.Body.String())

	// DELETE /cache wipes everything
	req = httptest.NewRequest(http.MethodDelete, "/cache", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cleared cache.ClearStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleared))
	assert.Equal(t, 2, cleared.EntriesRemoved)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntryCount)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/analyses", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
