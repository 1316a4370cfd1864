// Package pipeline orchestrates the resume-to-job analysis flow:
// redact, extract keywords, generate search terms, scrape, analyze, rank.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/analyzer"
	"github.com/jonathan/seekrai/internal/batch"
	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/jobsource"
	"github.com/jonathan/seekrai/internal/progress"
	"github.com/jonathan/seekrai/internal/redact"
	"github.com/jonathan/seekrai/internal/types"
)

// Request describes one analysis run.
type Request struct {
	Resume          string `json:"resume" validate:"required"`
	DesiredPosition string `json:"desired_position"`
	TargetLocation  string `json:"target_location"`
	ResultsWanted   int    `json:"results_wanted" validate:"gte=0,lte=100"`
	HoursOld        int    `json:"hours_old" validate:"gte=0"`
}

// DefaultResultsWanted applies when a request does not say how many postings
// it wants.
const DefaultResultsWanted = 20

// Pipeline wires the stages together. Construct with New and run with Run;
// progress reporting flows through the injected Tracker.
type Pipeline struct {
	redactor *redact.Redactor
	analyzer *analyzer.Analyzer
	source   jobsource.Source
	engine   *batch.Engine
	tracker  *progress.Tracker
	logger   *zap.Logger

	batchSize int
}

// New assembles a Pipeline. batchSize must match the engine's option so batch
// totals reported to the tracker line up.
func New(redactor *redact.Redactor, an *analyzer.Analyzer, source jobsource.Source, engine *batch.Engine, tracker *progress.Tracker, batchSize int, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = batch.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		redactor:  redactor,
		analyzer:  an,
		source:    source,
		engine:    engine,
		tracker:   tracker,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Run executes the full flow for one request. The returned Result is non-nil
// exactly when the run reached the end, possibly with partial analysis; an
// error means the run failed before any postings could be returned.
func (p *Pipeline) Run(ctx context.Context, jobID string, req Request) (*types.Result, error) {
	if req.ResultsWanted <= 0 {
		req.ResultsWanted = DefaultResultsWanted
	}

	p.tracker.Register(jobID)

	result, err := p.run(ctx, jobID, req)
	if err != nil {
		p.tracker.Fail(jobID, err.Error())
		return nil, err
	}
	p.tracker.Complete(jobID, summarize(result))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, jobID string, req Request) (*types.Result, error) {
	// Redaction happens before the resume leaves the process; everything
	// downstream sees only the redacted text.
	redacted := p.redactor.Redact(req.Resume)
	resumeDigest := cache.Key("resume", redacted.Text, nil)
	p.logger.Info("resume redacted",
		zap.String("job_id", jobID),
		zap.Strings("categories", redacted.Report.Categories()),
	)

	keywords, err := p.analyzer.ExtractKeywords(ctx, redacted.Text)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction: %w", err)
	}

	terms, err := p.analyzer.GenerateSearchTerms(ctx, keywords, req.DesiredPosition, req.TargetLocation)
	if err != nil {
		return nil, fmt.Errorf("search term generation: %w", err)
	}

	searchTerm := effectiveTerm(terms.PrimaryTerm(), req.DesiredPosition)
	location := req.TargetLocation
	if location == "" {
		location = terms.Location
	}

	p.tracker.StartScraping(jobID)
	search, err := p.source.Search(ctx, jobsource.Query{
		Terms:    append([]string{searchTerm}, terms.Secondary...),
		Location: location,
		Count:    req.ResultsWanted,
		HoursOld: req.HoursOld,
	}, func(site string, found, done, total int) {
		p.tracker.Scraping(jobID, site, found, done, total)
	})
	if err != nil {
		return nil, fmt.Errorf("job search: %w", err)
	}

	result := &types.Result{
		SearchTerm:         searchTerm,
		Location:           location,
		Requested:          req.ResultsWanted,
		Scraped:            len(search.Postings),
		Advisory:           search.Advisory(),
		RedactedCategories: redacted.Report.Categories(),
	}

	// No postings is a successful, empty outcome.
	if len(search.Postings) == 0 {
		result.Postings = []types.JobPosting{}
		return result, nil
	}

	totalBatches := int(math.Ceil(float64(len(search.Postings)) / float64(p.batchSize)))
	p.tracker.StartAnalyzing(jobID, totalBatches, p.batchSize)

	analyzed := p.engine.Analyze(ctx, search.Postings, keywords, resumeDigest,
		func(done, _ int) {
			if done > 0 {
				p.tracker.BatchDone(jobID)
			}
		})

	result.Postings = analyzed
	result.Returned = len(analyzed)
	for _, posting := range analyzed {
		if !posting.Scored() {
			continue
		}
		result.AnalyzedCount++
		if posting.Analysis.SalaryMin != nil || posting.Analysis.SalaryMax != nil {
			result.SalaryCount++
		}
	}

	if result.AnalyzedCount < result.Returned {
		note := fmt.Sprintf("%d of %d postings could not be analyzed",
			result.Returned-result.AnalyzedCount, result.Returned)
		if result.Advisory != "" {
			result.Advisory += "; " + note
		} else {
			result.Advisory = note
		}
	}

	p.logger.Info("analysis run finished",
		zap.String("job_id", jobID),
		zap.Int("returned", result.Returned),
		zap.Int("analyzed", result.AnalyzedCount),
		zap.Int("with_salary", result.SalaryCount),
	)
	return result, nil
}

// effectiveTerm biases the search toward the desired position when the
// generated term does not already mention it.
func effectiveTerm(primary, desiredPosition string) string {
	if desiredPosition == "" {
		return primary
	}
	if primary == "" {
		return desiredPosition
	}
	if strings.Contains(strings.ToLower(primary), strings.ToLower(desiredPosition)) {
		return primary
	}
	return desiredPosition + " " + primary
}

func summarize(r *types.Result) string {
	if r.Returned == 0 {
		return "no matching jobs found"
	}
	return fmt.Sprintf("%d jobs returned, %d analyzed, %d with salary data",
		r.Returned, r.AnalyzedCount, r.SalaryCount)
}
