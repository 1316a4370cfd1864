// Package types defines the shared data model for the resume-to-job analysis pipeline.
package types

// JobPosting represents one scraped job posting. The base fields come from the
// job source; Analysis is populated only when the posting was successfully
// scored against the resume.
type JobPosting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	SalaryText  string `json:"salary_text,omitempty"`
	URL         string `json:"job_url"`
	Site        string `json:"site"`
	DatePosted  string `json:"date_posted,omitempty"`

	Analysis *JobAnalysis `json:"analysis,omitempty"`
}

// Scored reports whether the posting carries a similarity score.
func (p *JobPosting) Scored() bool {
	return p.Analysis != nil
}

// JobAnalysis holds the enrichment fields produced by the completion service
// for a single posting. Salary fields are omitted entirely when the posting
// contains no extractable salary information.
type JobAnalysis struct {
	SimilarityScore     float64  `json:"similarity_score"`
	KeyMatches          []string `json:"key_matches"`
	MissingRequirements []string `json:"missing_requirements,omitempty"`
	Explanation         string   `json:"explanation"`
	SalaryMin           *float64 `json:"salary_min_extracted,omitempty"`
	SalaryMax           *float64 `json:"salary_max_extracted,omitempty"`
	SalaryConfidence    *float64 `json:"salary_confidence,omitempty"`
}

// KeywordSet is the structured extraction result for a resume.
type KeywordSet struct {
	TechnicalSkills []string `json:"technical_skills"`
	SoftSkills      []string `json:"soft_skills,omitempty"`
	JobTitles       []string `json:"job_titles"`
	Industries      []string `json:"industries"`
	Specializations []string `json:"specializations"`
	ExperienceLevel string   `json:"experience_level"`
	YearsExperience string   `json:"years_experience"`
	Locations       []string `json:"location_preferences"`
}

// SearchTerms is the generated job-search query set derived from a KeywordSet.
type SearchTerms struct {
	Primary   []string `json:"primary_search_terms"`
	Secondary []string `json:"secondary_search_terms"`
	Skills    []string `json:"skill_based_terms"`
	Location  string   `json:"location"`
	Combined  string   `json:"combined_search_string"`
}

// PrimaryTerm returns the first primary search term, biased toward the desired
// position when one was supplied and is not already part of the term.
func (s *SearchTerms) PrimaryTerm() string {
	if len(s.Primary) == 0 {
		return ""
	}
	return s.Primary[0]
}

// Result is the final outcome of a pipeline invocation.
type Result struct {
	Postings []JobPosting `json:"jobs"`

	SearchTerm string `json:"search_term"`
	Location   string `json:"location"`

	Requested      int `json:"results_wanted"`
	Scraped        int `json:"initial_scraped_count"`
	Returned       int `json:"final_returned_count"`
	AnalyzedCount  int `json:"analyzed_count"`
	SalaryCount    int `json:"salary_extracted_count"`

	// Advisory carries a human-readable note for partial outcomes, for
	// example a job source failure that left a reduced posting set.
	Advisory string `json:"advisory,omitempty"`

	// RedactedCategories lists the PII categories removed from the resume
	// before it left the process.
	RedactedCategories []string `json:"redacted_categories,omitempty"`
}

// Partial reports whether the result is degraded: some postings unscored or
// fewer postings returned than requested.
func (r *Result) Partial() bool {
	return r.AnalyzedCount < r.Returned || r.Returned < r.Requested
}
