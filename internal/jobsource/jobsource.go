// Package jobsource abstracts where job postings come from. The pipeline only
// sees the Source interface; the HTTP board adapter is one implementation.
package jobsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/seekrai/internal/types"
)

// Query describes one posting search.
type Query struct {
	// Terms are tried as the search string; the first term is primary.
	Terms    []string
	Location string
	// Count is the number of postings wanted. Fewer may come back.
	Count int
	// HoursOld restricts postings to a recency window. Zero means no limit.
	HoursOld int
}

// Term returns the effective search string.
func (q Query) Term() string {
	if len(q.Terms) == 0 {
		return ""
	}
	return q.Terms[0]
}

// Progress is invoked as each site finishes, with the postings found there
// and how many of the configured sites have been queried so far.
type Progress func(site string, found, done, total int)

// SearchResult carries the postings plus which sites failed, so callers can
// surface a partial-results advisory without treating the search as an error.
type SearchResult struct {
	Postings    []types.JobPosting
	FailedSites []string
}

// Advisory returns a human-readable note for partial outcomes, or "" when the
// search was complete.
func (r *SearchResult) Advisory() string {
	if len(r.FailedSites) == 0 {
		return ""
	}
	return fmt.Sprintf("results may be incomplete: %s unavailable",
		strings.Join(r.FailedSites, ", "))
}

// Source is the job-board boundary. An error means no usable postings at all;
// partial failures are reported through SearchResult.FailedSites instead.
type Source interface {
	Search(ctx context.Context, q Query, progress Progress) (*SearchResult, error)
}
