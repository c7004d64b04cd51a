package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorino/catalog-service/internal/feed"
	"github.com/agorino/catalog-service/internal/search"
)

func TestToDocument(t *testing.T) {
	desc := "Noise-cancelling headphones"
	ean := "5901234123457"
	brand := "Sony"
	price := 249.99

	l := search.Listing{
		ID:           42,
		MerchantID:   7,
		MerchantName: "Shop A",
		Title:        "Sony WH-1000XM5",
		Description:  &desc,
		EAN:          &ean,
		BrandName:    &brand,
		Price:        &price,
		Availability: true,
		SearchText:   "sony wh-1000xm5 sony headphones 5901234123457",
	}

	doc := toDocument(&l)
	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, int64(7), doc.MerchantID)
	assert.Equal(t, "Shop A", doc.MerchantName)
	assert.Equal(t, "Sony WH-1000XM5", doc.Title)
	assert.Equal(t, desc, doc.Description)
	assert.Equal(t, ean, doc.EAN)
	assert.Equal(t, brand, doc.Brand)
	assert.True(t, doc.Availability)
	// The folded full-text field must carry the persisted match text
	assert.Equal(t, l.SearchText, doc.SearchText)
	assert.Empty(t, doc.MPN)
	assert.Empty(t, doc.Category)
}

func TestToUpsertVariants(t *testing.T) {
	color := "Red"
	size := "42"

	rec := feed.Record{
		MerchantProductCode: "SKU-1",
		Title:               "Sneaker",
		Color:               &color,
		Size:                &size,
	}
	up := toUpsert(rec, nil, nil)
	require.Len(t, up.Variants, 1)
	assert.Equal(t, "red/42", up.Variants[0].Key)

	plain := toUpsert(feed.Record{MerchantProductCode: "SKU-2", Title: "Mug"}, nil, nil)
	assert.Empty(t, plain.Variants)
}
