package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `John Doe
john.doe@example.com | (555) 123-4567
123 Main Street, Springfield, IL 62704
https://johndoe.dev
https://github.com/johndoe
https://linkedin.com/in/johndoe

Senior Software Engineer with 10 years of experience in Go and
distributed systems. Reach me at john.doe@example.com.`

func TestRedact(t *testing.T) {
	out := New(nil).Redact(sampleResume)

	assert.NotContains(t, out.Text, "john.doe@example.com")
	assert.NotContains(t, out.Text, "123-4567")
	assert.NotContains(t, out.Text, "Main Street")
	assert.NotContains(t, out.Text, "johndoe.dev")
	assert.NotContains(t, out.Text, "John Doe")

	// Professional profiles survive
	assert.Contains(t, out.Text, "github.com/johndoe")
	assert.Contains(t, out.Text, "linkedin.com/in/johndoe")

	// Non-PII content is untouched
	assert.Contains(t, out.Text, "Senior Software Engineer with 10 years")

	assert.Equal(t, 2, out.Report.Emails)
	assert.GreaterOrEqual(t, out.Report.Phones, 1)
	assert.GreaterOrEqual(t, out.Report.Addresses, 1)
	assert.Equal(t, 1, out.Report.PersonalURLs)
	assert.True(t, out.Report.NameRemoved)
	assert.Equal(t, []string{"email", "phone", "address", "personal_url", "name"},
		out.Report.Categories())
}

func TestRedactIdempotent(t *testing.T) {
	r := New(nil)
	once := r.Redact(sampleResume)
	twice := r.Redact(once.Text)

	assert.Equal(t, once.Text, twice.Text, "redacting redacted text changes nothing")
	assert.Empty(t, twice.Report.Categories())
}

func TestRedactDeterministic(t *testing.T) {
	r := New(nil)
	assert.Equal(t, r.Redact(sampleResume), r.Redact(sampleResume))
}

func TestRedactNoPII(t *testing.T) {
	text := "Experienced backend developer.\nSkills include Go, SQL, and Kubernetes."
	out := New(nil).Redact(text)

	assert.Equal(t, text, out.Text)
	assert.Empty(t, out.Report.Categories())
	assert.Equal(t, "no PII detected", out.Report.Summary())
}

func TestRedactPhoneFormats(t *testing.T) {
	for _, phone := range []string{
		"555-123-4567",
		"555.123.4567",
		"555 123 4567",
		"+1-555-123-4567",
	} {
		out := New(nil).Redact("Contact\n\nCall " + phone + " today.")
		assert.NotContains(t, out.Text, phone, "phone %q should be removed", phone)
		assert.Contains(t, out.Text, "[PHONE_REDACTED]")
	}
}

func TestRedactCustomDomains(t *testing.T) {
	r := New([]string{"example.org"})
	out := r.Redact("Links\n\nhttps://example.org/profile and https://github.com/someone")

	assert.Contains(t, out.Text, "example.org/profile")
	assert.NotContains(t, out.Text, "github.com/someone",
		"custom allow-list replaces the default, it does not extend it")
}

func TestNameHeuristic(t *testing.T) {
	tests := []struct {
		firstLine string
		redacted  bool
	}{
		{"Jane Smith", true},
		{"Mary Anne Jones", true},
		{"RESUME", false},
		{"Senior Software Engineer II", false},
		{"curriculum vitae", false},
		{"Jane", false},
		{"A Very Long Heading That Goes On And On Well Past Fifty", false},
	}

	for _, tt := range tests {
		out := New(nil).Redact(tt.firstLine + "\n\nBody text here.")
		got := strings.HasPrefix(out.Text, "[NAME_REDACTED]")
		if tt.redacted {
			assert.True(t, got, "expected %q to be treated as a name", tt.firstLine)
		} else {
			assert.False(t, got, "expected %q to be kept", tt.firstLine)
		}
	}
}

func TestNilRedactor(t *testing.T) {
	var r *Redactor
	out := r.Redact("Profile\n\nemail me: someone@example.com")
	require.NotContains(t, out.Text, "someone@example.com")
}
