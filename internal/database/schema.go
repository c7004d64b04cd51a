package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS merchants (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		feed_url TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		last_sync_at TIMESTAMPTZ,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		path TEXT[] NOT NULL DEFAULT '{}',
		level INT NOT NULL DEFAULT 0,
		parent_id BIGINT REFERENCES categories(id),
		UNIQUE (normalized_name, path)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		merchant_id BIGINT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
		merchant_product_code TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		ean TEXT,
		mpn TEXT,
		sku TEXT,
		price DOUBLE PRECISION,
		original_price DOUBLE PRECISION,
		discount_pct DOUBLE PRECISION,
		availability BOOLEAN NOT NULL DEFAULT FALSE,
		stock_qty INT,
		image_url TEXT,
		additional_images TEXT[] NOT NULL DEFAULT '{}',
		product_url TEXT,
		specifications JSONB NOT NULL DEFAULT '{}',
		search_text TEXT NOT NULL DEFAULT '',
		brand_id BIGINT REFERENCES brands(id),
		category_id BIGINT REFERENCES categories(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (merchant_id, merchant_product_code)
	)`,
	`CREATE TABLE IF NOT EXISTS product_variants (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		variant_key TEXT NOT NULL,
		color TEXT,
		size TEXT,
		price_delta DOUBLE PRECISION,
		stock_qty INT,
		UNIQUE (product_id, variant_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_title_lower ON products (LOWER(title))`,
	`CREATE INDEX IF NOT EXISTS idx_products_description_lower ON products (LOWER(LEFT(description, 256)))`,
	`CREATE INDEX IF NOT EXISTS idx_products_title_fts ON products USING GIN (to_tsvector('simple', title))`,
	`CREATE INDEX IF NOT EXISTS idx_products_ean ON products (ean) WHERE ean IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_products_mpn ON products (mpn) WHERE mpn IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_products_price ON products (price)`,
	`CREATE INDEX IF NOT EXISTS idx_products_availability ON products (availability)`,
	`CREATE INDEX IF NOT EXISTS idx_products_brand ON products (brand_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_merchant ON products (merchant_id)`,
}

// Bootstrap creates the schema if it does not exist and runs startup
// repairs. Safe to call on every boot.
func Bootstrap(ctx context.Context) error {
	pool := Pool()

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}

	if err := mergeDuplicateCategories(ctx); err != nil {
		return fmt.Errorf("merge duplicate categories: %w", err)
	}

	return nil
}

// mergeDuplicateCategories collapses legacy category rows that share the
// same (normalized_name, path). Products are repointed at the row with
// the lowest id, the rest are removed.
func mergeDuplicateCategories(ctx context.Context) error {
	pool := Pool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT MIN(id) AS keep_id, ARRAY_AGG(id) AS all_ids
		FROM categories
		GROUP BY normalized_name, path
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return err
	}

	type dupGroup struct {
		keepID int64
		allIDs []int64
	}
	var groups []dupGroup
	for rows.Next() {
		var g dupGroup
		if err := rows.Scan(&g.keepID, &g.allIDs); err != nil {
			rows.Close()
			return err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	merged := 0
	for _, g := range groups {
		var dropIDs []int64
		for _, id := range g.allIDs {
			if id != g.keepID {
				dropIDs = append(dropIDs, id)
			}
		}
		if len(dropIDs) == 0 {
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products SET category_id = $1 WHERE category_id = ANY($2)`,
			g.keepID, dropIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE categories SET parent_id = $1 WHERE parent_id = ANY($2)`,
			g.keepID, dropIDs); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM categories WHERE id = ANY($1)`, dropIDs); err != nil {
			return err
		}
		merged += len(dropIDs)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if merged > 0 {
		log.Info().
			Str("component", "database").
			Int("merged", merged).
			Msg("Merged duplicate categories")
	}
	return nil
}
