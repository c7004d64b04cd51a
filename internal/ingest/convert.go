package ingest

import (
	"strings"

	"github.com/agorino/catalog-service/internal/database"
	"github.com/agorino/catalog-service/internal/esindex"
	"github.com/agorino/catalog-service/internal/feed"
	"github.com/agorino/catalog-service/internal/search"
)

// toUpsert maps a normalized feed record to a store upsert
func toUpsert(rec feed.Record, brandID, categoryID *int64) database.ProductUpsert {
	up := database.ProductUpsert{
		MerchantProductCode: rec.MerchantProductCode,
		Title:               rec.Title,
		Description:         rec.Description,
		EAN:                 rec.EAN,
		MPN:                 rec.MPN,
		SKU:                 rec.SKU,
		Price:               rec.Price,
		OriginalPrice:       rec.OriginalPrice,
		DiscountPct:         rec.DiscountPct,
		Availability:        rec.Availability,
		StockQty:            rec.StockQty,
		ImageURL:            rec.ImageURL,
		AdditionalImages:    rec.AdditionalImages,
		ProductURL:          rec.ProductURL,
		Specifications:      rec.Specifications,
		SearchText:          rec.SearchText,
		BrandID:             brandID,
		CategoryID:          categoryID,
	}

	if rec.Color != nil || rec.Size != nil {
		key := strings.TrimSpace(strings.ToLower(deref(rec.Color) + "/" + deref(rec.Size)))
		up.Variants = append(up.Variants, database.VariantUpsert{
			Key:   key,
			Color: rec.Color,
			Size:  rec.Size,
		})
	}
	return up
}

func toDocument(l *search.Listing) esindex.Document {
	return esindex.Document{
		ID:           l.ID,
		MerchantID:   l.MerchantID,
		MerchantName: l.MerchantName,
		Title:        l.Title,
		Description:  deref(l.Description),
		EAN:          deref(l.EAN),
		MPN:          deref(l.MPN),
		Brand:        deref(l.BrandName),
		Category:     deref(l.CategoryName),
		Price:        l.Price,
		Availability: l.Availability,
		ImageURL:     deref(l.ImageURL),
		SearchText:   l.SearchText,
	}
}

func mirrorFilters(merchantName string) search.Filters {
	return search.Filters{
		Shops:         []string{merchantName},
		MaxCandidates: 10000,
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func joinPath(path []string) string {
	return strings.Join(path, ">")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
