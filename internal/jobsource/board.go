package jobsource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; SeekrAI/1.0)"
)

// Board describes one HTML job board: how to build a search URL and which
// selectors pull posting fields out of a result card.
type Board struct {
	Name      string
	SearchURL string // base URL; query parameters are appended

	CardSelector     string
	TitleSelector    string
	CompanySelector  string
	LocationSelector string
	DescSelector     string
	SalarySelector   string
	LinkSelector     string
	DateSelector     string
}

// DefaultBoards returns the board descriptors queried when none are configured.
func DefaultBoards() []Board {
	return []Board{
		{
			Name:             "indeed",
			SearchURL:        "https://www.indeed.com/jobs",
			CardSelector:     ".job_seen_beacon, .jobCard",
			TitleSelector:    ".jobTitle",
			CompanySelector:  "[data-testid='company-name'], .companyName",
			LocationSelector: "[data-testid='text-location'], .companyLocation",
			DescSelector:     ".job-snippet",
			SalarySelector:   ".salary-snippet, [data-testid='attribute_snippet_testid']",
			LinkSelector:     "a",
			DateSelector:     ".date",
		},
		{
			Name:             "ziprecruiter",
			SearchURL:        "https://www.ziprecruiter.com/jobs-search",
			CardSelector:     ".job_result, article.job-card",
			TitleSelector:    ".job_title, h2",
			CompanySelector:  ".hiring_company, .company-name",
			LocationSelector: ".location",
			DescSelector:     ".job_snippet, .job-description",
			SalarySelector:   ".salary, .perks",
			LinkSelector:     "a",
			DateSelector:     "time",
		},
	}
}

// BoardSource searches HTML job boards over HTTP. A failing board is recorded
// in the result rather than failing the whole search.
type BoardSource struct {
	boards    []Board
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewBoardSource builds a source over the given boards; nil boards uses
// DefaultBoards.
func NewBoardSource(boards []Board, logger *zap.Logger) *BoardSource {
	if boards == nil {
		boards = DefaultBoards()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardSource{
		boards:    boards,
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		logger:    logger,
	}
}

// Search implements Source. Boards are queried in order until Count postings
// are collected; postings are deduplicated by URL.
func (s *BoardSource) Search(ctx context.Context, q Query, progress Progress) (*SearchResult, error) {
	result := &SearchResult{}
	seen := make(map[string]bool)

	for idx, board := range s.boards {
		if len(result.Postings) >= q.Count && q.Count > 0 {
			break
		}

		postings, err := s.searchBoard(ctx, board, q)
		if err != nil {
			s.logger.Warn("job board unavailable",
				zap.String("site", board.Name),
				zap.Error(err),
			)
			result.FailedSites = append(result.FailedSites, board.Name)
			if progress != nil {
				progress(board.Name, 0, idx+1, len(s.boards))
			}
			continue
		}

		added := 0
		for _, p := range postings {
			if p.URL != "" && seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			result.Postings = append(result.Postings, p)
			added++
			if q.Count > 0 && len(result.Postings) >= q.Count {
				break
			}
		}

		s.logger.Info("job board searched",
			zap.String("site", board.Name),
			zap.Int("found", added),
		)
		if progress != nil {
			progress(board.Name, added, idx+1, len(s.boards))
		}
	}

	if len(result.Postings) == 0 && len(result.FailedSites) == len(s.boards) {
		return nil, fmt.Errorf("all job boards unavailable: %s",
			strings.Join(result.FailedSites, ", "))
	}
	return result, nil
}

func (s *BoardSource) searchBoard(ctx context.Context, board Board, q Query) ([]types.JobPosting, error) {
	params := url.Values{}
	params.Set("q", q.Term())
	if q.Location != "" {
		params.Set("l", q.Location)
	}
	if q.HoursOld > 0 {
		params.Set("fromage", strconv.Itoa((q.HoursOld+23)/24))
	}

	reqURL := board.SearchURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", board.Name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var postings []types.JobPosting
	doc.Find(board.CardSelector).Each(func(_ int, card *goquery.Selection) {
		posting := types.JobPosting{
			Title:       cardText(card, board.TitleSelector),
			Company:     cardText(card, board.CompanySelector),
			Location:    cardText(card, board.LocationSelector),
			Description: cardText(card, board.DescSelector),
			SalaryText:  cardText(card, board.SalarySelector),
			DatePosted:  cardText(card, board.DateSelector),
			Site:        board.Name,
		}
		if href, ok := card.Find(board.LinkSelector).First().Attr("href"); ok {
			posting.URL = absoluteURL(board.SearchURL, href)
		}
		if posting.Title == "" {
			return
		}
		postings = append(postings, posting)
	})

	return postings, nil
}

func cardText(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(card.Find(selector).First().Text())
}

// absoluteURL resolves href against the board's base URL.
func absoluteURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
