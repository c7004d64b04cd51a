package database

import "time"

// SyncStatus enumerates the lifecycle of a merchant feed sync
const (
	SyncStatusPending = "pending"
	SyncStatusRunning = "running"
	SyncStatusOK      = "ok"
	SyncStatusError   = "error"
)

// Merchant represents a feed source (a shop)
type Merchant struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	FeedURL    string     `json:"feed_url"`
	Enabled    bool       `json:"enabled"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus string     `json:"sync_status"`
	LastError  *string    `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Brand represents a product brand, unique by normalized name
type Brand struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

// Category represents a node in the category tree
type Category struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Path           []string `json:"path"`
	Level          int      `json:"level"`
	ParentID       *int64   `json:"parent_id,omitempty"`
}

// Product is one listing of one merchant
type Product struct {
	ID                  int64             `json:"id"`
	MerchantID          int64             `json:"merchant_id"`
	MerchantProductCode string            `json:"merchant_product_code"`
	Title               string            `json:"title"`
	Description         *string           `json:"description,omitempty"`
	EAN                 *string           `json:"ean,omitempty"`
	MPN                 *string           `json:"mpn,omitempty"`
	SKU                 *string           `json:"sku,omitempty"`
	Price               *float64          `json:"price,omitempty"`
	OriginalPrice       *float64          `json:"original_price,omitempty"`
	DiscountPct         *float64          `json:"discount_pct,omitempty"`
	Availability        bool              `json:"availability"`
	StockQty            *int              `json:"stock_qty,omitempty"`
	ImageURL            *string           `json:"image_url,omitempty"`
	AdditionalImages    []string          `json:"additional_images,omitempty"`
	ProductURL          *string           `json:"product_url,omitempty"`
	Specifications      map[string]string `json:"specifications,omitempty"`
	SearchText          string            `json:"-"`
	BrandID             *int64            `json:"brand_id,omitempty"`
	CategoryID          *int64            `json:"category_id,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ProductVariant is a color/size variation of a product
type ProductVariant struct {
	ID         int64    `json:"id"`
	ProductID  int64    `json:"product_id"`
	VariantKey string   `json:"variant_key"`
	Color      *string  `json:"color,omitempty"`
	Size       *string  `json:"size,omitempty"`
	PriceDelta *float64 `json:"price_delta,omitempty"`
	StockQty   *int     `json:"stock_qty,omitempty"`
}

// ProductDetail is a product joined with its merchant, brand and category names
type ProductDetail struct {
	Product
	MerchantName string           `json:"shop"`
	BrandName    *string          `json:"brand,omitempty"`
	CategoryName *string          `json:"category,omitempty"`
	Variants     []ProductVariant `json:"variants"`
}

// ComparisonEntry is one shop's offer for a product, deduplicated by shop
type ComparisonEntry struct {
	ProductID    int64    `json:"product_id"`
	MerchantID   int64    `json:"shop_id"`
	MerchantName string   `json:"shop"`
	Price        *float64 `json:"price,omitempty"`
	Availability bool     `json:"availability"`
	ProductURL   *string  `json:"product_url,omitempty"`
}

// FacetEntry is a single facet bucket
type FacetEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceStats summarizes the price distribution of the catalog
type PriceStats struct {
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	AvgPrice *float64 `json:"avg_price,omitempty"`
}

// Facets is the response payload of the facets endpoint
type Facets struct {
	Brands     []FacetEntry `json:"brands"`
	Categories []FacetEntry `json:"categories"`
	Shops      []FacetEntry `json:"shops"`
	Prices     PriceStats   `json:"prices"`
}

// CatalogStats summarizes catalog counts for the admin surface
type CatalogStats struct {
	Shops      int        `json:"shops"`
	Products   int        `json:"products"`
	Brands     int        `json:"brands"`
	Categories int        `json:"categories"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
	SyncStatus *string    `json:"sync_status,omitempty"`
}
