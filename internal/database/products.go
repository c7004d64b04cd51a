package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agorino/catalog-service/internal/search"
)

// ProductUpsert is one normalized feed record ready for persistence.
type ProductUpsert struct {
	MerchantProductCode string
	Title               string
	Description         *string
	EAN                 *string
	MPN                 *string
	SKU                 *string
	Price               *float64
	OriginalPrice       *float64
	DiscountPct         *float64
	Availability        bool
	StockQty            *int
	ImageURL            *string
	AdditionalImages    []string
	ProductURL          *string
	Specifications      map[string]string
	SearchText          string
	BrandID             *int64
	CategoryID          *int64
	Variants            []VariantUpsert
}

// VariantUpsert is a color/size variation attached to a ProductUpsert.
type VariantUpsert struct {
	Key   string
	Color *string
	Size  *string
}

const upsertProductSQL = `
	INSERT INTO products (
		merchant_id, merchant_product_code, title, description, ean, mpn, sku,
		price, original_price, discount_pct, availability, stock_qty,
		image_url, additional_images, product_url, specifications, search_text,
		brand_id, category_id, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW())
	ON CONFLICT (merchant_id, merchant_product_code) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		ean = EXCLUDED.ean,
		mpn = EXCLUDED.mpn,
		sku = EXCLUDED.sku,
		price = EXCLUDED.price,
		original_price = EXCLUDED.original_price,
		discount_pct = EXCLUDED.discount_pct,
		availability = EXCLUDED.availability,
		stock_qty = EXCLUDED.stock_qty,
		image_url = EXCLUDED.image_url,
		additional_images = EXCLUDED.additional_images,
		product_url = EXCLUDED.product_url,
		specifications = EXCLUDED.specifications,
		search_text = EXCLUDED.search_text,
		brand_id = EXCLUDED.brand_id,
		category_id = EXCLUDED.category_id,
		updated_at = NOW()
	RETURNING id, (xmax = 0) AS inserted`

// UpsertProductBatch writes one batch of products inside a single
// transaction. Returns the inserted and updated counts.
func UpsertProductBatch(ctx context.Context, merchantID int64, items []ProductUpsert) (inserted, updated int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	tx, err := Pool().Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, item := range items {
		specs := item.Specifications
		if specs == nil {
			specs = map[string]string{}
		}
		images := item.AdditionalImages
		if images == nil {
			images = []string{}
		}
		batch.Queue(upsertProductSQL,
			merchantID, item.MerchantProductCode, item.Title, item.Description,
			item.EAN, item.MPN, item.SKU,
			item.Price, item.OriginalPrice, item.DiscountPct,
			item.Availability, item.StockQty,
			item.ImageURL, images, item.ProductURL, specs, item.SearchText,
			item.BrandID, item.CategoryID)
	}

	results := tx.SendBatch(ctx, batch)
	productIDs := make([]int64, len(items))
	for i := range items {
		var wasInsert bool
		if err := results.QueryRow().Scan(&productIDs[i], &wasInsert); err != nil {
			results.Close()
			return 0, 0, fmt.Errorf("upsert product %q: %w", items[i].MerchantProductCode, err)
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}
	if err := results.Close(); err != nil {
		return 0, 0, fmt.Errorf("close batch: %w", err)
	}

	variantBatch := &pgx.Batch{}
	queued := 0
	for i, item := range items {
		for _, v := range item.Variants {
			variantBatch.Queue(`
				INSERT INTO product_variants (product_id, variant_key, color, size)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (product_id, variant_key) DO UPDATE SET
					color = EXCLUDED.color,
					size = EXCLUDED.size`,
				productIDs[i], v.Key, v.Color, v.Size)
			queued++
		}
	}
	if queued > 0 {
		if err := tx.SendBatch(ctx, variantBatch).Close(); err != nil {
			return 0, 0, fmt.Errorf("upsert variants: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit batch: %w", err)
	}
	return inserted, updated, nil
}

const productDetailSQL = `
	SELECT p.id, p.merchant_id, p.merchant_product_code, p.title, p.description,
	       p.ean, p.mpn, p.sku, p.price, p.original_price, p.discount_pct,
	       p.availability, p.stock_qty, p.image_url, p.additional_images,
	       p.product_url, p.specifications, p.brand_id, p.category_id,
	       p.created_at, p.updated_at,
	       m.name, b.name, c.name
	FROM products p
	JOIN merchants m ON m.id = p.merchant_id
	LEFT JOIN brands b ON b.id = p.brand_id
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProductDetail(row pgx.Row) (*ProductDetail, error) {
	var d ProductDetail
	err := row.Scan(&d.ID, &d.MerchantID, &d.MerchantProductCode, &d.Title,
		&d.Description, &d.EAN, &d.MPN, &d.SKU, &d.Price, &d.OriginalPrice,
		&d.DiscountPct, &d.Availability, &d.StockQty, &d.ImageURL,
		&d.AdditionalImages, &d.ProductURL, &d.Specifications,
		&d.BrandID, &d.CategoryID, &d.CreatedAt, &d.UpdatedAt,
		&d.MerchantName, &d.BrandName, &d.CategoryName)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loadVariants(ctx context.Context, d *ProductDetail) error {
	rows, err := Pool().Query(ctx, `
		SELECT id, product_id, variant_key, color, size, price_delta, stock_qty
		FROM product_variants WHERE product_id = $1 ORDER BY variant_key`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	d.Variants = []ProductVariant{}
	for rows.Next() {
		var v ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.VariantKey, &v.Color,
			&v.Size, &v.PriceDelta, &v.StockQty); err != nil {
			return err
		}
		d.Variants = append(d.Variants, v)
	}
	return rows.Err()
}

// GetProduct returns a product with merchant, brand, category and variants
func GetProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	d, err := scanProductDetail(Pool().QueryRow(ctx, productDetailSQL+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if err := loadVariants(ctx, d); err != nil {
		return nil, fmt.Errorf("load variants for %d: %w", id, err)
	}
	return d, nil
}

// GetProductByEAN returns the cheapest product carrying the given EAN
func GetProductByEAN(ctx context.Context, ean string) (*ProductDetail, error) {
	d, err := scanProductDetail(Pool().QueryRow(ctx,
		productDetailSQL+` WHERE p.ean = $1 ORDER BY p.price ASC NULLS LAST LIMIT 1`, ean))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product by ean %q: %w", ean, err)
	}
	if err := loadVariants(ctx, d); err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	return d, nil
}

// Comparison returns one entry per distinct shop carrying a product with
// the given EAN, keeping the cheapest offer per shop.
func Comparison(ctx context.Context, ean string) ([]ComparisonEntry, error) {
	rows, err := Pool().Query(ctx, `
		SELECT DISTINCT ON (p.merchant_id)
		       p.id, p.merchant_id, m.name, p.price, p.availability, p.product_url
		FROM products p
		JOIN merchants m ON m.id = p.merchant_id
		WHERE p.ean = $1
		ORDER BY p.merchant_id, p.price ASC NULLS LAST`, ean)
	if err != nil {
		return nil, fmt.Errorf("comparison for ean %q: %w", ean, err)
	}
	defer rows.Close()

	var entries []ComparisonEntry
	for rows.Next() {
		var e ComparisonEntry
		if err := rows.Scan(&e.ProductID, &e.MerchantID, &e.MerchantName,
			&e.Price, &e.Availability, &e.ProductURL); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SearchStore adapts the products table to the search engine's source
// interfaces. It performs coarse SQL filtering; grouping and scoring stay
// in the engine.
type SearchStore struct{}

var _ search.CandidateSource = SearchStore{}
var _ search.SuggestionSource = SearchStore{}

// Candidates returns up to f.MaxCandidates listings matching the filters
func (SearchStore) Candidates(ctx context.Context, f search.Filters) ([]search.Listing, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.EAN != "" {
		conds = append(conds, "p.ean = "+arg(f.EAN))
	}
	if f.MPN != "" {
		conds = append(conds, "p.mpn = "+arg(f.MPN))
	}
	if q := strings.TrimSpace(strings.ToLower(f.Query)); q != "" && f.EAN == "" && f.MPN == "" {
		tokens := strings.Fields(q)
		if len(tokens) > 5 {
			tokens = tokens[:5]
		}
		var tokenConds []string
		for _, tok := range tokens {
			tokenConds = append(tokenConds, "p.search_text ILIKE "+arg("%"+tok+"%"))
		}
		conds = append(conds, "("+strings.Join(tokenConds, " OR ")+")")
	}
	if brands := nonBlank(f.Brands); len(brands) > 0 {
		conds = append(conds, "LOWER(b.name) = ANY("+arg(lowered(brands))+")")
	}
	if cats := nonBlank(f.Categories); len(cats) > 0 {
		conds = append(conds, "LOWER(c.name) = ANY("+arg(lowered(cats))+")")
	}
	if shops := nonBlank(f.Shops); len(shops) > 0 {
		conds = append(conds, "LOWER(m.name) = ANY("+arg(lowered(shops))+")")
	}
	if f.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(*f.MaxPrice))
	}
	if f.Availability != nil {
		conds = append(conds, "p.availability = "+arg(*f.Availability))
	}

	query := `
		SELECT p.id, p.merchant_id, m.name, p.title, p.description,
		       p.ean, p.mpn, p.sku, p.price, p.original_price, p.discount_pct,
		       p.availability, p.stock_qty, p.image_url, p.product_url,
		       p.brand_id, b.name, p.category_id, c.name, p.created_at,
		       p.search_text
		FROM products p
		JOIN merchants m ON m.id = p.merchant_id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.MaxCandidates
	if limit <= 0 {
		limit = 1000
	}
	query += " ORDER BY p.id" + " LIMIT " + arg(limit)

	rows, err := Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query: %w", err)
	}
	defer rows.Close()

	var listings []search.Listing
	for rows.Next() {
		var l search.Listing
		if err := rows.Scan(&l.ID, &l.MerchantID, &l.MerchantName, &l.Title,
			&l.Description, &l.EAN, &l.MPN, &l.SKU, &l.Price, &l.OriginalPrice,
			&l.DiscountPct, &l.Availability, &l.StockQty, &l.ImageURL,
			&l.ProductURL, &l.BrandID, &l.BrandName, &l.CategoryID,
			&l.CategoryName, &l.CreatedAt, &l.SearchText); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// SuggestionRows returns title, brand and category autocomplete
// candidates in one bounded query.
func (SearchStore) SuggestionRows(ctx context.Context, q string, limit int) ([]search.SuggestionRow, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	rows, err := Pool().Query(ctx, `
		(SELECT title AS text, 'title' AS kind, COUNT(*)::int AS weight
		 FROM products WHERE LOWER(title) LIKE $1
		 GROUP BY title ORDER BY weight DESC, title LIMIT $2)
		UNION ALL
		(SELECT b.name, 'brand', COUNT(p.id)::int
		 FROM brands b LEFT JOIN products p ON p.brand_id = b.id
		 WHERE LOWER(b.name) LIKE $1
		 GROUP BY b.name ORDER BY 3 DESC LIMIT $2)
		UNION ALL
		(SELECT c.name, 'category', COUNT(p.id)::int
		 FROM categories c LEFT JOIN products p ON p.category_id = c.id
		 WHERE LOWER(c.name) LIKE $1
		 GROUP BY c.name ORDER BY 3 DESC LIMIT $2)`,
		pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("suggestion query: %w", err)
	}
	defer rows.Close()

	var out []search.SuggestionRow
	for rows.Next() {
		var s search.SuggestionRow
		if err := rows.Scan(&s.Text, &s.Kind, &s.Weight); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetFacets returns brand/category/shop counts plus price statistics
func GetFacets(ctx context.Context) (*Facets, error) {
	facets := &Facets{
		Brands:     []FacetEntry{},
		Categories: []FacetEntry{},
		Shops:      []FacetEntry{},
	}

	collect := func(query string, dest *[]FacetEntry) error {
		rows, err := Pool().Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e FacetEntry
			if err := rows.Scan(&e.Name, &e.Count); err != nil {
				return err
			}
			*dest = append(*dest, e)
		}
		return rows.Err()
	}

	if err := collect(`
		SELECT b.name, COUNT(p.id)::int FROM brands b
		JOIN products p ON p.brand_id = b.id
		GROUP BY b.name ORDER BY 2 DESC LIMIT 100`, &facets.Brands); err != nil {
		return nil, fmt.Errorf("brand facets: %w", err)
	}
	if err := collect(`
		SELECT c.name, COUNT(p.id)::int FROM categories c
		JOIN products p ON p.category_id = c.id
		GROUP BY c.name ORDER BY 2 DESC LIMIT 100`, &facets.Categories); err != nil {
		return nil, fmt.Errorf("category facets: %w", err)
	}
	if err := collect(`
		SELECT m.name, COUNT(p.id)::int FROM merchants m
		JOIN products p ON p.merchant_id = m.id
		GROUP BY m.name ORDER BY 2 DESC`, &facets.Shops); err != nil {
		return nil, fmt.Errorf("shop facets: %w", err)
	}

	err := Pool().QueryRow(ctx, `
		SELECT MIN(price), MAX(price), ROUND(AVG(price)::numeric, 2)::float8
		FROM products WHERE price IS NOT NULL`).
		Scan(&facets.Prices.MinPrice, &facets.Prices.MaxPrice, &facets.Prices.AvgPrice)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("price stats: %w", err)
	}
	return facets, nil
}

// GetStats returns catalog counts for the admin surface
func GetStats(ctx context.Context) (*CatalogStats, error) {
	var s CatalogStats
	err := Pool().QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM merchants)::int,
		       (SELECT COUNT(*) FROM products)::int,
		       (SELECT COUNT(*) FROM brands)::int,
		       (SELECT COUNT(*) FROM categories)::int`).
		Scan(&s.Shops, &s.Products, &s.Brands, &s.Categories)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}

	err = Pool().QueryRow(ctx, `
		SELECT last_sync_at, sync_status FROM merchants
		WHERE last_sync_at IS NOT NULL
		ORDER BY last_sync_at DESC LIMIT 1`).
		Scan(&s.LastSync, &s.SyncStatus)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("last sync: %w", err)
	}
	return &s, nil
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
