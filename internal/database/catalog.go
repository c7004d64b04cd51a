package database

import (
	"context"
	"fmt"
	"strings"
)

// FindOrCreateBrand resolves a brand by normalized name, creating it when
// missing. Blank names resolve to no brand.
func FindOrCreateBrand(ctx context.Context, name string) (*int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}

	var id int64
	err := Pool().QueryRow(ctx, `
		INSERT INTO brands (name, normalized_name)
		VALUES ($1, $2)
		ON CONFLICT (normalized_name) DO UPDATE SET name = brands.name
		RETURNING id`,
		strings.TrimSpace(name), normalized).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("find or create brand %q: %w", name, err)
	}
	return &id, nil
}

// FindOrCreateCategory resolves a category leaf by (normalized_name, path),
// creating the row when missing. Blank leaves resolve to no category.
func FindOrCreateCategory(ctx context.Context, leaf string, path []string) (*int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(leaf))
	if normalized == "" {
		return nil, nil
	}
	if path == nil {
		path = []string{}
	}

	var id int64
	err := Pool().QueryRow(ctx, `
		INSERT INTO categories (name, normalized_name, path, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (normalized_name, path) DO UPDATE SET name = categories.name
		RETURNING id`,
		strings.TrimSpace(leaf), normalized, path, len(path)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("find or create category %q: %w", leaf, err)
	}
	return &id, nil
}
