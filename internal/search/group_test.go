package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(id int64, shop, title string, price *float64, available bool) Listing {
	return Listing{
		ID:           id,
		MerchantID:   id % 10,
		MerchantName: shop,
		Title:        title,
		Price:        price,
		Availability: available,
	}
}

func TestGroupKey(t *testing.T) {
	ean := "1234567890123"
	mpn := "MX-100"
	brand := int64(7)

	tests := []struct {
		name     string
		listing  Listing
		expected string
	}{
		{
			name:     "ean wins",
			listing:  Listing{Title: "Anything", EAN: &ean, MPN: &mpn},
			expected: "ean:1234567890123|b0|c0",
		},
		{
			name:     "mpn fallback",
			listing:  Listing{Title: "Anything", MPN: &mpn},
			expected: "mpn:MX-100|b0|c0",
		},
		{
			name:     "title fallback normalized",
			listing:  Listing{Title: "  Apple iPhone-15 (128GB) "},
			expected: "title:apple iphone 15 128gb|b0|c0",
		},
		{
			name:     "brand qualifies the key",
			listing:  Listing{Title: "Basic Cable", BrandID: &brand},
			expected: "title:basic cable|b7|c0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GroupKey(&tt.listing))
		})
	}

	t.Run("blank ean falls through", func(t *testing.T) {
		blank := "  "
		l := Listing{Title: "Widget", EAN: &blank}
		assert.Equal(t, "title:widget|b0|c0", GroupKey(&l))
	})
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Apple iPhone 15", "apple iphone 15"},
		{"Caffè  Latte!!", "caffe latte"},
		{"TV-55\" (4K)", "tv 55 4k"},
		{"  spaced   out  ", "spaced out"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
	}
}

func TestBuildGroupsCollapsesByEAN(t *testing.T) {
	ean := "5901234123457"
	a := listing(1, "Shop A", "Super Widget", floatPtr(10.00), true)
	a.EAN = &ean
	b := listing(2, "Shop B", "SUPER WIDGET DELUXE", floatPtr(12.50), true)
	b.EAN = &ean
	c := listing(3, "Shop C", "Widget (refurb)", floatPtr(8.00), false)
	c.EAN = &ean

	groups := buildGroups([]Listing{a, b, c})
	require.Len(t, groups, 1)
	g := groups[0]

	assert.Equal(t, "Super Widget", g.Title) // first seen wins
	assert.Equal(t, 3, g.ShopCount)
	assert.Equal(t, 2, g.AvailableShops)
	assert.ElementsMatch(t, []int64{1, 2, 3}, g.ProductIDs)

	require.NotNil(t, g.MinPrice)
	assert.Equal(t, 8.00, *g.MinPrice)
	require.NotNil(t, g.MaxPrice)
	assert.Equal(t, 12.50, *g.MaxPrice)
	require.NotNil(t, g.AvgPrice)
	assert.InDelta(t, 10.1667, *g.AvgPrice, 0.001)

	// Best available price ignores the unavailable 8.00 listing
	require.NotNil(t, g.BestAvailablePrice)
	assert.Equal(t, 10.00, *g.BestAvailablePrice)

	require.NotNil(t, g.PriceVariation)
	assert.InDelta(t, 56.25, *g.PriceVariation, 0.001)

	assert.InDelta(t, 2.0/3.0, g.availRatio, 0.001)
}

func TestBuildGroupsSeparatesDistinctProducts(t *testing.T) {
	a := listing(1, "Shop A", "Blue Mug", floatPtr(5), true)
	b := listing(2, "Shop B", "Red Mug", floatPtr(6), true)

	groups := buildGroups([]Listing{a, b})
	assert.Len(t, groups, 2)
	assert.Equal(t, "Blue Mug", groups[0].Title)
	assert.Equal(t, "Red Mug", groups[1].Title)
}

func TestBuildGroupsTitleMatchingAcrossShops(t *testing.T) {
	// No EAN/MPN: normalized titles collapse accents and punctuation
	a := listing(1, "Shop A", "Café Maker 2000", floatPtr(99), true)
	b := listing(2, "Shop B", "CAFE MAKER 2000!", floatPtr(89), true)

	groups := buildGroups([]Listing{a, b})
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].ShopCount)
}

func TestBuildGroupsShopDedupe(t *testing.T) {
	ean := "111"
	a := listing(1, "Shop A", "Thing", floatPtr(5), true)
	a.EAN = &ean
	dup := listing(2, "shop a", "Thing", floatPtr(5), true)
	dup.EAN = &ean

	groups := buildGroups([]Listing{a, dup})
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].ShopCount)
	assert.Equal(t, 1, groups[0].AvailableShops)
	assert.Len(t, groups[0].ProductIDs, 2)
}

func TestBuildGroupsAvailabilityCountedPerShop(t *testing.T) {
	// Color variants share one barcode: two available rows from the same
	// shop must not report more available shops than total shops
	ean := "555"
	red := listing(1, "Shop A", "Sneaker Red", floatPtr(60), true)
	red.EAN = &ean
	blue := listing(2, "Shop A", "Sneaker Blue", floatPtr(60), true)
	blue.EAN = &ean
	other := listing(3, "Shop B", "Sneaker", floatPtr(65), false)
	other.EAN = &ean

	groups := buildGroups([]Listing{red, blue, other})
	require.Len(t, groups, 1)
	g := groups[0]

	assert.Equal(t, 2, g.ShopCount)
	assert.Equal(t, 1, g.AvailableShops)
	assert.LessOrEqual(t, g.AvailableShops, g.ShopCount)
	assert.InDelta(t, 0.5, g.availRatio, 0.001)
}

func TestBuildGroupsNilPrices(t *testing.T) {
	ean := "222"
	a := listing(1, "Shop A", "Mystery Item", nil, true)
	a.EAN = &ean
	b := listing(2, "Shop B", "Mystery Item", floatPtr(15), false)
	b.EAN = &ean

	groups := buildGroups([]Listing{a, b})
	require.Len(t, groups, 1)
	g := groups[0]

	require.NotNil(t, g.MinPrice)
	assert.Equal(t, 15.0, *g.MinPrice)
	require.NotNil(t, g.AvgPrice)
	assert.Equal(t, 15.0, *g.AvgPrice)
	// The only available listing carries no price
	assert.Nil(t, g.BestAvailablePrice)
}

func TestBuildGroupsRepresentativeBackfill(t *testing.T) {
	ean := "333"
	img := "https://cdn.example.com/x.jpg"
	desc := "A fine product"

	a := listing(1, "Shop A", "Gadget", floatPtr(10), true)
	a.EAN = &ean
	b := listing(2, "Shop B", "Gadget", floatPtr(11), true)
	b.EAN = &ean
	b.ImageURL = &img
	b.Description = &desc

	groups := buildGroups([]Listing{a, b})
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].ImageURL)
	assert.Equal(t, img, *groups[0].ImageURL)
	require.NotNil(t, groups[0].Description)
	assert.Equal(t, desc, *groups[0].Description)
}

func TestBuildGroupsTracksNewest(t *testing.T) {
	ean := "444"
	older := listing(1, "Shop A", "Item", floatPtr(10), true)
	older.EAN = &ean
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := listing(2, "Shop B", "Item", floatPtr(11), true)
	newer.EAN = &ean
	newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	groups := buildGroups([]Listing{older, newer})
	require.Len(t, groups, 1)
	assert.Equal(t, newer.CreatedAt, groups[0].newest)
}

func floatPtr(f float64) *float64 { return &f }
