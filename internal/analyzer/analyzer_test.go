package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/llm"
	"github.com/jonathan/seekrai/internal/types"
)

var keywordFixture = types.KeywordSet{
	TechnicalSkills: []string{"Go"},
	JobTitles:       []string{"Backend Engineer"},
	ExperienceLevel: "senior",
}

// stubClient returns canned responses and counts completion calls.
type stubClient struct {
	responses map[string]string
	err       error
	calls     int
}

func (s *stubClient) GenerateJSON(_ context.Context, operation, _ string, _ llm.ModelTier) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.responses[operation], nil
}

func (s *stubClient) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubClient) Close() error                  { return nil }

const keywordResponse = `{
	"technical_skills": ["Go", "Kubernetes", "PostgreSQL"],
	"soft_skills": ["communication"],
	"job_titles": ["Backend Engineer", "Platform Engineer"],
	"industries": ["fintech"],
	"specializations": ["distributed systems"],
	"experience_level": "senior",
	"years_experience": "8",
	"location_preferences": ["Remote"]
}`

const searchTermsResponse = `{
	"primary_search_terms": ["backend engineer golang"],
	"secondary_search_terms": ["platform engineer"],
	"skill_based_terms": ["kubernetes engineer"],
	"location": "Remote",
	"combined_search_string": "backend engineer golang remote"
}`

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), 0, nil)
	require.NoError(t, err)
	return store
}

func TestExtractKeywords(t *testing.T) {
	client := &stubClient{responses: map[string]string{OpExtractKeywords: keywordResponse}}
	a := New(client, newTestStore(t), nil)

	keywords, err := a.ExtractKeywords(context.Background(), "redacted resume text")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, keywords.TechnicalSkills)
	assert.Equal(t, "senior", keywords.ExperienceLevel)
	assert.Equal(t, 1, client.calls)
}

func TestExtractKeywordsCacheHit(t *testing.T) {
	client := &stubClient{responses: map[string]string{OpExtractKeywords: keywordResponse}}
	a := New(client, newTestStore(t), nil)
	ctx := context.Background()

	first, err := a.ExtractKeywords(ctx, "same resume")
	require.NoError(t, err)
	second, err := a.ExtractKeywords(ctx, "same resume")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls, "second call must be served from cache")

	// Whitespace-only differences address the same entry
	_, err = a.ExtractKeywords(ctx, "  same \n\t resume  ")
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)

	// Different content misses
	_, err = a.ExtractKeywords(ctx, "different resume")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestExtractKeywordsProseWrappedJSON(t *testing.T) {
	client := &stubClient{responses: map[string]string{
		OpExtractKeywords: "Sure, here is the extraction:\n" + keywordResponse + "\nLet me know if you need more.",
	}}
	a := New(client, newTestStore(t), nil)

	keywords, err := a.ExtractKeywords(context.Background(), "resume")
	require.NoError(t, err)
	assert.Contains(t, keywords.TechnicalSkills, "Go")
}

func TestExtractKeywordsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I could not process that resume."},
		{"schema violation", `{"technical_skills": "Go", "job_titles": []}`},
		{"missing required", `{"soft_skills": ["teamwork"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{responses: map[string]string{OpExtractKeywords: tt.response}}
			a := New(client, newTestStore(t), nil)

			_, err := a.ExtractKeywords(context.Background(), "resume")
			require.Error(t, err)
			assert.True(t, llm.IsMalformed(err))
		})
	}
}

func TestExtractKeywordsServiceError(t *testing.T) {
	client := &stubClient{err: &llm.ServiceError{Operation: OpExtractKeywords, Attempts: 3, Cause: errors.New("timeout")}}
	a := New(client, newTestStore(t), nil)

	_, err := a.ExtractKeywords(context.Background(), "resume")
	require.Error(t, err)
	assert.True(t, llm.IsUnavailable(err))
}

func TestGenerateSearchTerms(t *testing.T) {
	client := &stubClient{responses: map[string]string{
		OpExtractKeywords:     keywordResponse,
		OpGenerateSearchTerms: searchTermsResponse,
	}}
	a := New(client, newTestStore(t), nil)
	ctx := context.Background()

	keywords, err := a.ExtractKeywords(ctx, "resume")
	require.NoError(t, err)

	terms, err := a.GenerateSearchTerms(ctx, keywords, "Staff Engineer", "Austin, TX")
	require.NoError(t, err)
	assert.Equal(t, "backend engineer golang", terms.PrimaryTerm())
	assert.Equal(t, "Remote", terms.Location)

	// Same inputs hit the cache
	_, err = a.GenerateSearchTerms(ctx, keywords, "Staff Engineer", "Austin, TX")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)

	// Different targeting is a distinct entry
	_, err = a.GenerateSearchTerms(ctx, keywords, "Staff Engineer", "Denver, CO")
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestGenerateSearchTermsEmptyPrimary(t *testing.T) {
	client := &stubClient{responses: map[string]string{
		OpGenerateSearchTerms: `{"primary_search_terms": [], "location": "Remote"}`,
	}}
	a := New(client, newTestStore(t), nil)

	_, err := a.GenerateSearchTerms(context.Background(), &keywordFixture, "", "")
	require.Error(t, err)
	assert.True(t, llm.IsMalformed(err))
}
