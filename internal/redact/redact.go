// Package redact removes personally identifiable information from resume text
// before it is sent to any external service.
package redact

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Replacement markers. None of them re-match any detection pattern, which is
// what makes redaction idempotent.
const (
	emailMarker   = "[EMAIL_REDACTED]"
	phoneMarker   = "[PHONE_REDACTED]"
	addressMarker = "[ADDRESS_REDACTED]"
	websiteMarker = "[WEBSITE_REDACTED]"
	nameMarker    = "[NAME_REDACTED]"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
		regexp.MustCompile(`\+1[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	}

	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl)\b[^\n]*`),
		regexp.MustCompile(`\b[A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`),
	}

	urlPattern = regexp.MustCompile(`https?://(?:www\.)?[A-Za-z0-9.-]+\.[A-Za-z]{2,}(?:/\S*)?`)
)

// DefaultProfessionalDomains lists domains whose URLs survive redaction.
// Profile links on these sites are part of a candidate's professional identity
// rather than contact information.
var DefaultProfessionalDomains = []string{
	"linkedin.com",
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"stackoverflow.com",
	"medium.com",
}

// Report records what was removed, by category.
type Report struct {
	Emails       int
	Phones       int
	Addresses    int
	PersonalURLs int
	NameRemoved  bool
}

// Categories returns the names of the categories that had at least one
// redaction, in detection order.
func (r Report) Categories() []string {
	var cats []string
	if r.Emails > 0 {
		cats = append(cats, "email")
	}
	if r.Phones > 0 {
		cats = append(cats, "phone")
	}
	if r.Addresses > 0 {
		cats = append(cats, "address")
	}
	if r.PersonalURLs > 0 {
		cats = append(cats, "personal_url")
	}
	if r.NameRemoved {
		cats = append(cats, "name")
	}
	return cats
}

// Summary renders a human-readable account of the redaction for the caller.
func (r Report) Summary() string {
	var parts []string
	if r.Emails > 0 {
		parts = append(parts, fmt.Sprintf("%d email(s)", r.Emails))
	}
	if r.Phones > 0 {
		parts = append(parts, fmt.Sprintf("%d phone number(s)", r.Phones))
	}
	if r.Addresses > 0 {
		parts = append(parts, fmt.Sprintf("%d address(es)", r.Addresses))
	}
	if r.PersonalURLs > 0 {
		parts = append(parts, fmt.Sprintf("%d personal website(s)", r.PersonalURLs))
	}
	if r.NameRemoved {
		parts = append(parts, "name")
	}
	if len(parts) == 0 {
		return "no PII detected"
	}
	return strings.Join(parts, ", ")
}

// RedactedText is the output of Redact. The original text is intentionally
// not retained here.
type RedactedText struct {
	Text   string
	Report Report
}

// Redactor applies the PII patterns. The zero value uses the default
// professional-domain allow-list.
type Redactor struct {
	professionalDomains []string
}

// New returns a Redactor preserving URLs on the given domains. An empty list
// falls back to DefaultProfessionalDomains.
func New(professionalDomains []string) *Redactor {
	if len(professionalDomains) == 0 {
		professionalDomains = DefaultProfessionalDomains
	}
	return &Redactor{professionalDomains: professionalDomains}
}

// Redact removes emails, phone numbers, street addresses, personal URLs and
// the candidate's name (best effort) from text. It never fails: anything a
// pattern does not match passes through unchanged and the report simply omits
// that category.
func (rd *Redactor) Redact(text string) RedactedText {
	r := rd
	if r == nil {
		r = New(nil)
	}

	var report Report

	text, report.Emails = replaceAll(text, emailPattern, emailMarker)
	for _, p := range phonePatterns {
		var n int
		text, n = replaceAll(text, p, phoneMarker)
		report.Phones += n
	}
	for _, p := range addressPatterns {
		var n int
		text, n = replaceAll(text, p, addressMarker)
		report.Addresses += n
	}
	text, report.PersonalURLs = r.redactPersonalURLs(text)
	text, report.NameRemoved = redactCandidateName(text)

	return RedactedText{Text: text, Report: report}
}

func replaceAll(text string, pattern *regexp.Regexp, marker string) (string, int) {
	count := len(pattern.FindAllStringIndex(text, -1))
	if count == 0 {
		return text, 0
	}
	return pattern.ReplaceAllString(text, marker), count
}

func (rd *Redactor) redactPersonalURLs(text string) (string, int) {
	urls := urlPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return text, 0
	}

	redacted := 0
	for _, u := range urls {
		if rd.isProfessional(u) {
			continue
		}
		text = strings.ReplaceAll(text, u, websiteMarker)
		redacted++
	}
	return text, redacted
}

func (rd *Redactor) isProfessional(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range rd.professionalDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// redactCandidateName replaces the first non-empty line when it looks like a
// person's name: two or three title-case alphabetic words under 50 characters.
// A best-effort heuristic, deliberately conservative so headings like
// "Senior Software Engineer II" are left alone.
func redactCandidateName(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if looksLikeName(trimmed) {
			lines[i] = nameMarker
			return strings.Join(lines, "\n"), true
		}
		return text, false
	}
	return text, false
}

func looksLikeName(line string) bool {
	if len(line) >= 50 {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		if !isTitleCaseWord(w) {
			return false
		}
	}
	return true
}

func isTitleCaseWord(w string) bool {
	for i, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if i > 0 && !unicode.IsLower(r) {
			return false
		}
	}
	return w != ""
}
