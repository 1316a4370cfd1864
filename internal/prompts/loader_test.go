package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	prompt, err := Get(AnalysisFile, KeyKeywordExtraction)
	require.NoError(t, err)
	assert.Contains(t, prompt, "technical_skills")
	assert.Contains(t, prompt, "{{.ResumeContent}}")

	_, err = Get(AnalysisFile, "nonexistent")
	assert.Error(t, err)

	_, err = Get("missing.json", KeyKeywordExtraction)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	rendered, err := Render(AnalysisFile, KeyKeywordExtraction, map[string]string{
		"ResumeContent": "Senior Go developer with Kubernetes experience",
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "Senior Go developer with Kubernetes experience")
	assert.NotContains(t, rendered, "{{.ResumeContent}}")
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}}, you are {{.Role}}", map[string]string{
		"Name": "Ada",
		"Role": "an engineer",
	})
	assert.Equal(t, "Hello Ada, you are an engineer", out)

	// Missing keys are left intact
	out = Format("Value: {{.Missing}}", map[string]string{})
	assert.Equal(t, "Value: {{.Missing}}", out)
}

func TestPostingAnalysisPrompt(t *testing.T) {
	prompt := MustGet(AnalysisFile, KeyPostingAnalysis)
	for _, field := range []string{
		"similarity_score", "key_matches", "missing_requirements",
		"salary_min_extracted", "salary_max_extracted", "salary_confidence",
	} {
		assert.Contains(t, prompt, field)
	}
}
