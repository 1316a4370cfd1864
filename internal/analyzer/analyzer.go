// Package analyzer turns redacted resume text into structured keywords and
// job-search terms via the completion service, memoizing both operations in
// the content cache.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/llm"
	"github.com/jonathan/seekrai/internal/prompts"
	"github.com/jonathan/seekrai/internal/types"
)

// Operation names used for cache addressing and error reporting.
const (
	OpExtractKeywords     = "extract_keywords"
	OpGenerateSearchTerms = "generate_search_terms"
)

// keywordSchema gates keyword responses before they enter the pipeline. The
// model occasionally returns the right keys with the wrong shapes.
const keywordSchema = `{
  "type": "object",
  "required": ["technical_skills", "job_titles"],
  "properties": {
    "technical_skills": {"type": "array", "items": {"type": "string"}},
    "soft_skills": {"type": "array", "items": {"type": "string"}},
    "job_titles": {"type": "array", "items": {"type": "string"}},
    "industries": {"type": "array", "items": {"type": "string"}},
    "specializations": {"type": "array", "items": {"type": "string"}},
    "experience_level": {"type": "string"},
    "years_experience": {"type": "string"},
    "location_preferences": {"type": "array", "items": {"type": "string"}}
  }
}`

// Analyzer performs the resume-side completion calls.
type Analyzer struct {
	client llm.Client
	store  cache.Store
	logger *zap.Logger
}

// New creates an Analyzer. A nil store disables caching.
func New(client llm.Client, store cache.Store, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, store: store, logger: logger}
}

// ExtractKeywords returns the structured keyword set for a redacted resume.
// Identical resume content yields a cache hit and no completion call.
func (a *Analyzer) ExtractKeywords(ctx context.Context, redactedResume string) (*types.KeywordSet, error) {
	key := cache.Key(OpExtractKeywords, redactedResume, nil)

	var keywords types.KeywordSet
	if a.store != nil && a.store.Get(ctx, key, &keywords) {
		a.logger.Info("keyword extraction served from cache", zap.String("key", key))
		return &keywords, nil
	}

	prompt, err := prompts.Render(prompts.AnalysisFile, prompts.KeyKeywordExtraction, map[string]string{
		"ResumeContent": redactedResume,
	})
	if err != nil {
		return nil, err
	}

	raw, err := a.client.GenerateJSON(ctx, OpExtractKeywords, prompt, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	doc, err := recoverJSON(raw)
	if err != nil {
		return nil, &llm.MalformedError{Operation: OpExtractKeywords, Raw: raw, Cause: err}
	}
	if err := validateKeywords(doc); err != nil {
		return nil, &llm.MalformedError{Operation: OpExtractKeywords, Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(doc), &keywords); err != nil {
		return nil, &llm.MalformedError{Operation: OpExtractKeywords, Raw: raw, Cause: err}
	}

	if a.store != nil {
		a.store.Put(ctx, key, keywords)
	}
	a.logger.Info("keywords extracted",
		zap.Int("technical_skills", len(keywords.TechnicalSkills)),
		zap.Int("job_titles", len(keywords.JobTitles)),
	)
	return &keywords, nil
}

// GenerateSearchTerms derives job-search terms from an extracted keyword set.
// The desired position and target location participate in the cache key so
// different targeting produces distinct entries.
func (a *Analyzer) GenerateSearchTerms(ctx context.Context, keywords *types.KeywordSet, desiredPosition, targetLocation string) (*types.SearchTerms, error) {
	keywordJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}

	key := cache.Key(OpGenerateSearchTerms, string(keywordJSON), map[string]string{
		"position": desiredPosition,
		"location": targetLocation,
	})

	var terms types.SearchTerms
	if a.store != nil && a.store.Get(ctx, key, &terms) {
		a.logger.Info("search terms served from cache", zap.String("key", key))
		return &terms, nil
	}

	locationText := "Location: flexible/remote preferred"
	if targetLocation != "" {
		locationText = "Target location: " + targetLocation
	}
	positionText := "Position: based on resume analysis"
	if desiredPosition != "" {
		positionText = "Desired position: " + desiredPosition
	}

	pretty, err := json.MarshalIndent(keywords, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	prompt, err := prompts.Render(prompts.AnalysisFile, prompts.KeySearchTerms, map[string]string{
		"LocationText": locationText,
		"PositionText": positionText,
		"Keywords":     string(pretty),
	})
	if err != nil {
		return nil, err
	}

	raw, err := a.client.GenerateJSON(ctx, OpGenerateSearchTerms, prompt, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	doc, err := recoverJSON(raw)
	if err != nil {
		return nil, &llm.MalformedError{Operation: OpGenerateSearchTerms, Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(doc), &terms); err != nil {
		return nil, &llm.MalformedError{Operation: OpGenerateSearchTerms, Raw: raw, Cause: err}
	}
	if len(terms.Primary) == 0 {
		return nil, &llm.MalformedError{
			Operation: OpGenerateSearchTerms,
			Raw:       raw,
			Cause:     fmt.Errorf("no primary search terms in response"),
		}
	}

	if a.store != nil {
		a.store.Put(ctx, key, terms)
	}
	a.logger.Info("search terms generated",
		zap.Int("primary", len(terms.Primary)),
		zap.String("location", terms.Location),
	)
	return &terms, nil
}

// recoverJSON returns a parseable JSON document from raw model output, falling
// back to brace scanning when the response carries surrounding prose.
func recoverJSON(raw string) (string, error) {
	if json.Valid([]byte(raw)) {
		return raw, nil
	}
	return llm.ExtractJSONObject(raw)
}

func validateKeywords(doc string) error {
	schemaLoader := gojsonschema.NewStringLoader(keywordSchema)
	documentLoader := gojsonschema.NewStringLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed during load: %w", err)
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if field == "" {
		field = "(root)"
	}
	return fmt.Errorf("keyword response invalid at %s: %s (%d violation(s))",
		field, first.Description(), len(result.Errors()))
}
