package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agorino/catalog-service/internal/metrics"
	"github.com/agorino/catalog-service/internal/rewrite"
)

const (
	// MaxCandidates bounds the candidate set the engine ranks in memory
	MaxCandidates = 1000
	// MaxPerPage is the pagination ceiling
	MaxPerPage = 100
	// DefaultPerPage applies when the caller gives no page size
	DefaultPerPage = 20

	categoryDistributionTopK = 6
)

// Limits bounds the candidate volume and pagination of one engine.
// Zero fields fall back to the package defaults.
type Limits struct {
	MaxCandidates  int
	DefaultPerPage int
	MaxPerPage     int
}

func (l Limits) withDefaults() Limits {
	if l.MaxCandidates <= 0 {
		l.MaxCandidates = MaxCandidates
	}
	if l.DefaultPerPage <= 0 {
		l.DefaultPerPage = DefaultPerPage
	}
	if l.MaxPerPage <= 0 {
		l.MaxPerPage = MaxPerPage
	}
	return l
}

// Engine executes filtered, ranked, grouped searches over a
// CandidateSource. It is stateless; every invocation returns a
// well-formed response even when the source fails.
type Engine struct {
	source   CandidateSource
	rewriter *rewrite.Rewriter
	limits   Limits
}

// NewEngine creates a search engine with the default limits. rewriter
// may be nil, which disables query rewriting.
func NewEngine(source CandidateSource, rewriter *rewrite.Rewriter) *Engine {
	return NewEngineWithLimits(source, rewriter, Limits{})
}

// NewEngineWithLimits creates a search engine with configured limits
func NewEngineWithLimits(source CandidateSource, rewriter *rewrite.Rewriter, limits Limits) *Engine {
	return &Engine{source: source, rewriter: rewriter, limits: limits.withDefaults()}
}

// Search runs one search invocation. Never returns an error: source
// failures degrade to an empty fallback response.
func (e *Engine) Search(ctx context.Context, req Request) Response {
	start := time.Now()
	e.normalizeRequest(&req)

	query := strings.TrimSpace(req.Filters.Query)
	corrected := query
	if query != "" && e.rewriter != nil {
		rewritten := e.rewriter.Rewrite(ctx, query)
		if rewritten.Corrected != "" {
			corrected = rewritten.Corrected
		}
		req.Filters.Query = corrected
	}

	req.Filters.MaxCandidates = e.limits.MaxCandidates
	candidates, err := e.source.Candidates(ctx, req.Filters)
	if err != nil {
		log.Error().
			Str("component", "search").
			Str("query", query).
			Err(err).
			Msg("Candidate query failed, returning fallback")
		metrics.ObserveSearch(time.Since(start), req.Mode, true)
		return fallbackResponse(req, start)
	}

	var resp Response
	switch req.Mode {
	case "categories":
		resp = e.categorySearch(candidates, req)
	case "flat":
		resp = e.flatSearch(candidates, req, corrected)
	default:
		resp = e.aggregatedSearch(candidates, req, corrected)
	}

	if len(corrected) >= 2 {
		resp.CategoryDistribution = categoryDistribution(candidates)
	}
	if !strings.EqualFold(corrected, query) {
		resp.CorrectedQuery = corrected
	}
	resp.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000
	metrics.ObserveSearch(time.Since(start), req.Mode, false)
	return resp
}

// aggregatedSearch collapses listings by grouping key and ranks groups
func (e *Engine) aggregatedSearch(candidates []Listing, req Request, query string) Response {
	groups := buildGroups(candidates)

	if req.Sort == "relevance" && query != "" {
		for i := range groups {
			groups[i].score = Score(groups[i].Title, query)
		}
	}
	sortGroups(groups, req.Sort)

	total := len(groups)
	pageGroups := paginate(groups, req.Page, req.PerPage)
	if pageGroups == nil {
		pageGroups = []Group{}
	}

	return Response{
		Groups:     pageGroups,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages(total, req.PerPage),
		SearchType: "aggregated",
	}
}

// flatSearch ranks one row per listing
func (e *Engine) flatSearch(candidates []Listing, req Request, query string) Response {
	scores := make(map[int64]float64, len(candidates))
	if req.Sort == "relevance" && query != "" {
		for i := range candidates {
			scores[candidates[i].ID] = Score(candidates[i].Title, query)
		}
	}
	sortListings(candidates, req.Sort, scores)

	total := len(candidates)
	page := paginate(candidates, req.Page, req.PerPage)
	if page == nil {
		page = []Listing{}
	}

	return Response{
		Listings:   page,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages(total, req.PerPage),
		SearchType: "flat",
	}
}

// categorySearch returns category buckets with product counts
func (e *Engine) categorySearch(candidates []Listing, req Request) Response {
	buckets := categoryBuckets(candidates)

	total := len(buckets)
	page := paginate(buckets, req.Page, req.PerPage)
	if page == nil {
		page = []CategoryBucket{}
	}

	return Response{
		Categories: page,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages(total, req.PerPage),
		SearchType: "categories",
	}
}

func sortGroups(groups []Group, mode string) {
	less := func(a, b *Group) bool {
		switch mode {
		case "price_asc":
			if c := compareFloat(a.MinPrice, b.MinPrice, true); c != 0 {
				return c < 0
			}
			return a.availRatio > b.availRatio
		case "price_desc":
			if c := compareFloat(a.MinPrice, b.MinPrice, false); c != 0 {
				return c > 0
			}
			return a.availRatio > b.availRatio
		case "availability":
			if a.availRatio != b.availRatio {
				return a.availRatio > b.availRatio
			}
			return compareFloat(a.MinPrice, b.MinPrice, true) < 0
		case "newest":
			if !a.newest.Equal(b.newest) {
				return a.newest.After(b.newest)
			}
			return compareFloat(a.MinPrice, b.MinPrice, true) < 0
		default: // relevance
			if a.score != b.score {
				return a.score > b.score
			}
			if a.availRatio != b.availRatio {
				return a.availRatio > b.availRatio
			}
			if c := compareFloat(a.MinPrice, b.MinPrice, true); c != 0 {
				return c < 0
			}
			return a.ShopCount > b.ShopCount
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return less(&groups[i], &groups[j])
	})
}

func sortListings(listings []Listing, mode string, scores map[int64]float64) {
	less := func(a, b *Listing) bool {
		switch mode {
		case "price_asc":
			if c := compareFloat(a.Price, b.Price, true); c != 0 {
				return c < 0
			}
			return a.Availability && !b.Availability
		case "price_desc":
			if c := compareFloat(a.Price, b.Price, false); c != 0 {
				return c > 0
			}
			return a.Availability && !b.Availability
		case "availability":
			if a.Availability != b.Availability {
				return a.Availability
			}
			return compareFloat(a.Price, b.Price, true) < 0
		case "newest":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return compareFloat(a.Price, b.Price, true) < 0
		default: // relevance
			sa, sb := scores[a.ID], scores[b.ID]
			if sa != sb {
				return sa > sb
			}
			if a.Availability != b.Availability {
				return a.Availability
			}
			return compareFloat(a.Price, b.Price, true) < 0
		}
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return less(&listings[i], &listings[j])
	})
}

// categoryDistribution returns the top-K categories among the matched
// candidates, each with a representative image. Best-effort only.
func categoryDistribution(candidates []Listing) []CategoryBucket {
	buckets := categoryBuckets(candidates)
	if len(buckets) > categoryDistributionTopK {
		buckets = buckets[:categoryDistributionTopK]
	}
	return buckets
}

func categoryBuckets(candidates []Listing) []CategoryBucket {
	counts := make(map[string]*CategoryBucket)
	var order []string
	for i := range candidates {
		l := &candidates[i]
		if l.CategoryName == nil || *l.CategoryName == "" {
			continue
		}
		name := *l.CategoryName
		b, ok := counts[name]
		if !ok {
			b = &CategoryBucket{Name: name}
			counts[name] = b
			order = append(order, name)
		}
		b.Count++
		if b.Image == nil && l.ImageURL != nil {
			b.Image = l.ImageURL
		}
	}

	buckets := make([]CategoryBucket, 0, len(order))
	for _, name := range order {
		buckets = append(buckets, *counts[name])
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Name < buckets[j].Name
	})
	return buckets
}

// compareFloat orders optional floats; nilLast pushes missing prices to
// the end under both ascending and descending order.
func compareFloat(a, b *float64, nilLast bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if nilLast {
			return 1
		}
		return -1
	case b == nil:
		if nilLast {
			return -1
		}
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func paginate[T any](items []T, page, perPage int) []T {
	startIdx := (page - 1) * perPage
	if startIdx >= len(items) {
		return nil
	}
	endIdx := startIdx + perPage
	if endIdx > len(items) {
		endIdx = len(items)
	}
	return items[startIdx:endIdx]
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

func (e *Engine) normalizeRequest(req *Request) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = e.limits.DefaultPerPage
	}
	if req.PerPage > e.limits.MaxPerPage {
		req.PerPage = e.limits.MaxPerPage
	}
	if req.Sort == "" {
		req.Sort = "relevance"
	}
	if req.Mode == "" || req.Mode == "all" || req.Mode == "products" {
		req.Mode = "aggregated"
	}
}

func fallbackResponse(req Request, start time.Time) Response {
	return Response{
		Groups:          []Group{},
		Total:           0,
		Page:            req.Page,
		PerPage:         req.PerPage,
		TotalPages:      0,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		SearchType:      "fallback",
	}
}
