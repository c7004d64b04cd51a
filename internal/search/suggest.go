package search

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agorino/catalog-service/internal/rewrite"
)

const (
	// DefaultSuggestionLimit applies when the caller gives no limit
	DefaultSuggestionLimit = 10
	// fuzzyThreshold is the minimum token similarity for the fuzzy pass
	fuzzyThreshold = 0.6
)

// Suggester serves autocomplete from a single bounded store query.
type Suggester struct {
	source SuggestionSource
}

// NewSuggester creates a Suggester over the given source
func NewSuggester(source SuggestionSource) *Suggester {
	return &Suggester{source: source}
}

// Suggest returns up to limit suggestions for q, deduplicated
// case-insensitively. A typo-dictionary correction always comes first.
// Degrades to whatever it has on store errors, never fails.
func (s *Suggester) Suggest(ctx context.Context, q string, limit int, fuzzy bool) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}
	}
	if limit <= 0 || limit > 50 {
		limit = DefaultSuggestionLimit
	}

	var out []string
	seen := make(map[string]bool)
	add := func(text string) bool {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" || seen[key] {
			return len(out) < limit
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(text))
		return len(out) < limit
	}

	corrected, hasCorrection := rewrite.CorrectTypo(q)
	if hasCorrection {
		add(corrected)
	}

	lookup := q
	if hasCorrection {
		lookup = corrected
	}

	rows, err := s.source.SuggestionRows(ctx, lookup, limit*2)
	if err != nil {
		log.Warn().
			Str("component", "search").
			Str("query", q).
			Err(err).
			Msg("Suggestion query failed")
		if out == nil {
			return []string{}
		}
		return out
	}

	// Titles first, then brands, then categories; popular first within
	// each kind.
	kindRank := map[string]int{"title": 0, "brand": 1, "category": 2}
	sort.SliceStable(rows, func(i, j int) bool {
		if kindRank[rows[i].Kind] != kindRank[rows[j].Kind] {
			return kindRank[rows[i].Kind] < kindRank[rows[j].Kind]
		}
		return rows[i].Weight > rows[j].Weight
	})

	for _, row := range rows {
		if !add(row.Text) {
			return out
		}
	}

	// The exact lookup is a substring filter, so misspellings miss it
	// entirely. Broaden to a short prefix and keep only fuzzy matches.
	if fuzzy && len(out) < limit {
		broad := lookup
		if len(broad) > 2 {
			broad = broad[:2]
		}
		broadRows, err := s.source.SuggestionRows(ctx, broad, limit*4)
		if err == nil {
			for _, row := range broadRows {
				if fuzzyMatch(lookup, row.Text) {
					if !add(row.Text) {
						return out
					}
				}
			}
		}
	}

	if out == nil {
		return []string{}
	}
	return out
}

// fuzzyMatch reports whether any token of candidate is at least 60%
// similar to any token of the query.
func fuzzyMatch(query, candidate string) bool {
	for _, qt := range strings.Fields(strings.ToLower(query)) {
		for _, ct := range strings.Fields(strings.ToLower(candidate)) {
			if tokenSimilarity(qt, ct) >= fuzzyThreshold {
				return true
			}
		}
	}
	return false
}

// tokenSimilarity is a normalized edit-distance ratio in [0,1]
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(prev[lb])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
