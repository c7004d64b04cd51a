package rewrite

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Result is the structured interpretation of a user query
type Result struct {
	Corrected    string   `json:"corrected_query"`
	Brands       []string `json:"brands"`
	Categories   []string `json:"categories"`
	ProductTerms []string `json:"product_terms"`
	Attributes   []string `json:"attributes"`
	Confidence   float64  `json:"confidence"`
	Source       string   `json:"source"` // typo, pattern, llm, fallback
}

// Rewriter corrects misspellings and extracts brand/category intent.
// Tiers: typo dictionary, token patterns, optional LLM. It never fails;
// any internal error degrades to the original query at confidence 0.5.
type Rewriter struct {
	llm LLMClient

	mu   sync.RWMutex
	memo map[string]Result
}

// New creates a Rewriter. llm may be nil, which disables the LLM tier.
func New(llm LLMClient) *Rewriter {
	return &Rewriter{
		llm:  llm,
		memo: make(map[string]Result),
	}
}

// Rewrite interprets q. Always returns a usable result.
func (r *Rewriter) Rewrite(ctx context.Context, q string) Result {
	normalized := strings.ToLower(strings.TrimSpace(q))
	if normalized == "" {
		return fallbackResult(q)
	}

	// Fast path: the whole query is a known typo
	if canonical, ok := typoDictionary[normalized]; ok {
		return typoResult(canonical)
	}

	patternRes := r.patternRewrite(normalized)

	if r.llm != nil {
		if res, ok := r.llmRewrite(ctx, normalized); ok {
			return res
		}
	}

	return patternRes
}

// patternRewrite corrects per-token typos and buckets tokens into
// brands, categories and product terms.
func (r *Rewriter) patternRewrite(normalized string) Result {
	res := Result{
		Confidence: 0.7,
		Source:     "pattern",
	}

	tokens := strings.Fields(normalized)
	corrected := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if canonical, ok := typoDictionary[tok]; ok {
			tok = canonical
		}
		corrected = append(corrected, tok)

		switch {
		case brandSet[tok]:
			res.Brands = append(res.Brands, tok)
		case categorySet[tok]:
			res.Categories = append(res.Categories, tok)
		default:
			res.ProductTerms = append(res.ProductTerms, tok)
		}
	}

	// Multi-word categories ("washing machine")
	joined := strings.Join(corrected, " ")
	for _, cat := range knownCategories {
		if strings.Contains(cat, " ") && strings.Contains(joined, cat) {
			res.Categories = append(res.Categories, cat)
		}
	}

	res.Corrected = joined
	if res.Corrected == "" {
		res.Corrected = normalized
	}
	return res
}

// llmRewrite consults the LLM tier, memoizing results for the process
// lifetime. Returns ok=false on any failure so the caller falls back.
func (r *Rewriter) llmRewrite(ctx context.Context, normalized string) (Result, bool) {
	r.mu.RLock()
	cached, ok := r.memo[normalized]
	r.mu.RUnlock()
	if ok {
		return cached, true
	}

	res, err := r.llm.Interpret(ctx, normalized)
	if err != nil {
		log.Debug().
			Str("component", "rewrite").
			Str("query", normalized).
			Err(err).
			Msg("LLM rewrite failed, using pattern tier")
		return Result{}, false
	}

	if res.Corrected == "" {
		res.Corrected = normalized
	}
	res.Source = "llm"
	if res.Confidence == 0 {
		res.Confidence = 0.9
	}

	r.mu.Lock()
	r.memo[normalized] = res
	r.mu.Unlock()
	return res, true
}

// CorrectTypo returns the canonical form of q when the typo dictionary
// knows it. Used by the suggestion service's correction-first ordering.
func CorrectTypo(q string) (string, bool) {
	canonical, ok := typoDictionary[strings.ToLower(strings.TrimSpace(q))]
	return canonical, ok
}

func typoResult(canonical string) Result {
	res := Result{
		Corrected:  canonical,
		Confidence: 1.0,
		Source:     "typo",
	}
	switch {
	case brandSet[canonical]:
		res.Brands = []string{canonical}
	case categorySet[canonical]:
		res.Categories = []string{canonical}
	default:
		res.ProductTerms = []string{canonical}
	}
	return res
}

func fallbackResult(original string) Result {
	return Result{
		Corrected:  original,
		Confidence: 0.5,
		Source:     "fallback",
	}
}
