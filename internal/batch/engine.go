// Package batch scores job postings against a resume profile in rate-limited
// batches. The batch is the unit of concurrency and pacing; completion calls
// and cache entries are per posting.
package batch

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/llm"
	"github.com/jonathan/seekrai/internal/logger"
	"github.com/jonathan/seekrai/internal/prompts"
	"github.com/jonathan/seekrai/internal/types"
)

// OpAnalyzePosting is the cache operation name for per-posting analysis.
const OpAnalyzePosting = "analyze_posting"

// Defaults for batch pacing.
const (
	DefaultBatchSize   = 5
	DefaultConcurrency = 3
	DefaultDelay       = 500 * time.Millisecond
)

// Truncation limits keep prompts and stored analyses bounded.
const (
	maxDescriptionChars = 1000
	maxExplanationChars = 500
	maxMatchChars       = 100
)

// Options tunes the engine. Zero values fall back to the defaults.
type Options struct {
	BatchSize   int
	Concurrency int
	// Delay is the pause between consecutive completion calls within a batch.
	Delay time.Duration
}

// ProgressFunc receives completed and total batch counts as analysis advances.
type ProgressFunc func(completedBatches, totalBatches int)

// Engine runs per-posting analysis over batches of postings.
type Engine struct {
	client llm.Client
	store  cache.Store
	logger *zap.Logger
	opts   Options
	sleep  func(time.Duration)
}

// New creates an Engine. A nil store disables caching.
func New(client llm.Client, store cache.Store, log *zap.Logger, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Delay < 0 {
		opts.Delay = DefaultDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{client: client, store: store, logger: log, opts: opts, sleep: time.Sleep}
}

// Analyze scores every posting against the keyword profile and returns the
// full set ordered by descending similarity with unscored postings last. No
// posting is ever dropped: a posting whose analysis fails comes back with a
// nil Analysis.
func (e *Engine) Analyze(ctx context.Context, postings []types.JobPosting, keywords *types.KeywordSet, resumeDigest string, progress ProgressFunc) []types.JobPosting {
	if len(postings) == 0 {
		return postings
	}

	out := make([]types.JobPosting, len(postings))
	copy(out, postings)

	batches := partition(len(out), e.opts.BatchSize)
	total := len(batches)
	if progress != nil {
		progress(0, total)
	}

	profile, err := json.MarshalIndent(keywords, "", "  ")
	if err != nil {
		e.logger.Error("marshal keyword profile", zap.Error(err))
		return out
	}

	sem := semaphore.NewWeighted(int64(e.opts.Concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for _, b := range batches {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer sem.Release(1)

			for i := start; i < end; i++ {
				if i > start && e.opts.Delay > 0 {
					e.sleep(e.opts.Delay)
				}
				e.analyzePosting(ctx, &out[i], string(profile), resumeDigest)
			}

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			e.logger.Debug("analysis batch finished",
				zap.Int("completed", done),
				zap.Int("total", total),
			)
			if progress != nil {
				progress(done, total)
			}
		}(b.start, b.end)
	}
	wg.Wait()

	rank(out)
	return out
}

// analyzePosting fills in posting.Analysis, leaving it nil on failure.
func (e *Engine) analyzePosting(ctx context.Context, posting *types.JobPosting, profile, resumeDigest string) {
	key := cache.Key(OpAnalyzePosting,
		strings.Join([]string{posting.Title, posting.Company, posting.URL}, "\n"),
		map[string]string{"resume": resumeDigest},
	)

	var analysis types.JobAnalysis
	if e.store != nil && e.store.Get(ctx, key, &analysis) {
		posting.Analysis = &analysis
		return
	}

	prompt, err := prompts.Render(prompts.AnalysisFile, prompts.KeyPostingAnalysis, map[string]string{
		"Keywords":    profile,
		"Title":       posting.Title,
		"Company":     posting.Company,
		"Location":    posting.Location,
		"SalaryText":  posting.SalaryText,
		"Description": logger.Truncate(posting.Description, maxDescriptionChars),
	})
	if err != nil {
		e.logger.Error("render analysis prompt", zap.Error(err))
		return
	}

	raw, err := e.client.GenerateJSON(ctx, OpAnalyzePosting, prompt, llm.TierLite)
	if err != nil {
		e.logger.Warn("posting analysis unavailable",
			zap.String("title", posting.Title),
			zap.String("site", posting.Site),
			zap.Error(err),
		)
		return
	}

	doc := raw
	if !json.Valid([]byte(doc)) {
		if doc, err = llm.ExtractJSONObject(raw); err != nil {
			e.logger.Warn("posting analysis malformed",
				zap.String("title", posting.Title),
				zap.Error(err),
			)
			return
		}
	}
	if err := json.Unmarshal([]byte(doc), &analysis); err != nil {
		e.logger.Warn("posting analysis malformed",
			zap.String("title", posting.Title),
			zap.Error(err),
		)
		return
	}

	sanitize(&analysis)
	posting.Analysis = &analysis
	if e.store != nil {
		e.store.Put(ctx, key, analysis)
	}
}

// sanitize clamps scores into range and trims oversized text fields.
func sanitize(a *types.JobAnalysis) {
	a.SimilarityScore = clamp(a.SimilarityScore, 0, 10)
	a.Explanation = logger.Truncate(a.Explanation, maxExplanationChars)
	for i, m := range a.KeyMatches {
		a.KeyMatches[i] = logger.Truncate(m, maxMatchChars)
	}
	for i, m := range a.MissingRequirements {
		a.MissingRequirements[i] = logger.Truncate(m, maxMatchChars)
	}

	// Salary is all or nothing: without extracted bounds the confidence
	// means nothing.
	if a.SalaryMin == nil && a.SalaryMax == nil {
		a.SalaryConfidence = nil
		return
	}
	if a.SalaryConfidence != nil {
		c := clamp(*a.SalaryConfidence, 0, 1)
		a.SalaryConfidence = &c
	}
}

// rank orders postings by descending similarity, stable, with unscored
// postings after all scored ones.
func rank(postings []types.JobPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		pi, pj := postings[i], postings[j]
		switch {
		case pi.Scored() && !pj.Scored():
			return true
		case !pi.Scored():
			return false
		default:
			return pi.Analysis.SimilarityScore > pj.Analysis.SimilarityScore
		}
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type span struct{ start, end int }

func partition(n, size int) []span {
	var spans []span
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, span{start, end})
	}
	return spans
}
