package search

import (
	"context"
	"time"
)

// Listing is one merchant's product row as seen by the search engine.
// The store materializes these from its candidate query.
type Listing struct {
	ID           int64     `json:"id"`
	MerchantID   int64     `json:"shop_id"`
	MerchantName string    `json:"shop"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	EAN          *string   `json:"ean,omitempty"`
	MPN          *string   `json:"mpn,omitempty"`
	SKU          *string   `json:"sku,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	DiscountPct  *float64  `json:"discount_pct,omitempty"`
	Availability bool      `json:"availability"`
	StockQty     *int      `json:"stock_qty,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	ProductURL   *string   `json:"product_url,omitempty"`
	BrandID      *int64    `json:"brand_id,omitempty"`
	BrandName    *string   `json:"brand,omitempty"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// SearchText is the persisted match text; carried for the external
	// index mirror, never serialized in responses.
	SearchText string `json:"-"`
}

// Filters is the closed filter set applied by the candidate query.
// Query carries the rewritten query text; tokenization happens store-side
// for matching and engine-side for scoring.
type Filters struct {
	Query         string
	Brands        []string
	Categories    []string
	MinPrice      *float64
	MaxPrice      *float64
	Availability  *bool
	EAN           string
	MPN           string
	Shops         []string
	MaxCandidates int
}

// CandidateSource returns up to Filters.MaxCandidates listings matching
// the filters. The engine does all grouping, scoring and pagination.
type CandidateSource interface {
	Candidates(ctx context.Context, f Filters) ([]Listing, error)
}

// SuggestionRow is one autocomplete candidate from the store, with its
// origin and a popularity weight.
type SuggestionRow struct {
	Text   string
	Kind   string // title, brand, category
	Weight int
}

// SuggestionSource returns autocomplete candidates for a query prefix.
type SuggestionSource interface {
	SuggestionRows(ctx context.Context, q string, limit int) ([]SuggestionRow, error)
}

// CategoryBucket is one entry of the category distribution.
type CategoryBucket struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Image *string `json:"image,omitempty"`
}

// Group is one aggregated result row: every listing sharing a grouping key.
type Group struct {
	Title              string   `json:"title"`
	Description        *string  `json:"description,omitempty"`
	ImageURL           *string  `json:"image_url,omitempty"`
	Brand              *string  `json:"brand,omitempty"`
	Category           *string  `json:"category,omitempty"`
	EAN                *string  `json:"ean,omitempty"`
	MPN                *string  `json:"mpn,omitempty"`
	MinPrice           *float64 `json:"min_price,omitempty"`
	MaxPrice           *float64 `json:"max_price,omitempty"`
	AvgPrice           *float64 `json:"avg_price,omitempty"`
	BestAvailablePrice *float64 `json:"best_available_price,omitempty"`
	PriceVariation     *float64 `json:"price_variation,omitempty"`
	ShopCount          int      `json:"total_shops"`
	AvailableShops     int      `json:"available_in_shops"`
	ShopNames          []string `json:"shop_names"`
	ProductIDs         []int64  `json:"product_ids"`

	score          float64
	groupKey       string
	availRatio     float64
	newest         time.Time
	availShopNames []string
}

// Request is one search invocation.
type Request struct {
	Filters Filters
	Sort    string // relevance, price_asc, price_desc, availability, newest
	Mode    string // aggregated, flat, categories
	Page    int
	PerPage int
}

// Response is the search payload. Exactly one of Groups / Listings /
// Categories is populated depending on the mode.
type Response struct {
	Groups               []Group          `json:"products,omitempty"`
	Listings             []Listing        `json:"listings,omitempty"`
	Categories           []CategoryBucket `json:"categories,omitempty"`
	Total                int              `json:"total"`
	Page                 int              `json:"page"`
	PerPage              int              `json:"per_page"`
	TotalPages           int              `json:"total_pages"`
	ExecutionTimeMs      float64          `json:"execution_time_ms"`
	SearchType           string           `json:"search_type"`
	CorrectedQuery       string           `json:"corrected_query,omitempty"`
	CategoryDistribution []CategoryBucket `json:"category_distribution,omitempty"`
}
