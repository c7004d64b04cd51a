package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agorino/catalog-service/internal/rewrite"
)

type fakeSource struct {
	listings []Listing
	err      error
	gotQuery string
	gotMax   int
}

func (f *fakeSource) Candidates(ctx context.Context, filters Filters) ([]Listing, error) {
	f.gotQuery = filters.Query
	f.gotMax = filters.MaxCandidates
	if f.err != nil {
		return nil, f.err
	}
	return append([]Listing(nil), f.listings...), nil
}

func catalogFixture() []Listing {
	ean := "5901234123457"
	phones := "Phones"
	cases := "Cases"

	a := listing(1, "Shop A", "Apple iPhone 15", floatPtr(899), true)
	a.EAN = &ean
	a.CategoryName = &phones
	b := listing(2, "Shop B", "Apple iPhone 15", floatPtr(879), true)
	b.EAN = &ean
	b.CategoryName = &phones
	c := listing(3, "Shop A", "iPhone 15 Silicone Case", floatPtr(49), true)
	c.CategoryName = &cases
	d := listing(4, "Shop C", "iPhone Charger Cable", nil, false)
	d.CategoryName = &cases
	return []Listing{a, b, c, d}
}

func TestSearchAggregated(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, rewrite.New(nil))

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "apple iphone 15"},
	})

	assert.Equal(t, "aggregated", resp.SearchType)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Groups, 3)

	// Both iPhone 15 listings share an EAN and collapse into one group
	top := resp.Groups[0]
	assert.Equal(t, "Apple iPhone 15", top.Title)
	assert.Equal(t, 2, top.ShopCount)
	require.NotNil(t, top.MinPrice)
	assert.Equal(t, 879.0, *top.MinPrice)

	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, DefaultPerPage, resp.PerPage)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Empty(t, resp.CorrectedQuery)
	assert.GreaterOrEqual(t, resp.ExecutionTimeMs, 0.0)
}

func TestSearchFlat(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "flat",
	})

	assert.Equal(t, "flat", resp.SearchType)
	assert.Equal(t, 4, resp.Total)
	assert.Len(t, resp.Listings, 4)
	assert.Empty(t, resp.Groups)
}

func TestSearchCategories(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "categories",
	})

	assert.Equal(t, "categories", resp.SearchType)
	require.Len(t, resp.Categories, 2)
	// Ties break alphabetically, both categories hold two listings
	assert.Equal(t, "Cases", resp.Categories[0].Name)
	assert.Equal(t, 2, resp.Categories[0].Count)
	assert.Equal(t, "Phones", resp.Categories[1].Name)
}

func TestSearchModeAliases(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	for _, mode := range []string{"", "all", "products"} {
		resp := engine.Search(context.Background(), Request{
			Filters: Filters{Query: "iphone"},
			Mode:    mode,
		})
		assert.Equal(t, "aggregated", resp.SearchType, "mode %q", mode)
	}
}

func TestSearchCorrectedQuery(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, rewrite.New(nil))

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphne"},
	})

	assert.Equal(t, "iphone", resp.CorrectedQuery)
	// The source sees the corrected query, not the raw one
	assert.Equal(t, "iphone", src.gotQuery)
}

func TestSearchSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "anything"},
	})

	assert.Equal(t, "fallback", resp.SearchType)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Groups)
	assert.Empty(t, resp.Groups)
}

func TestSearchPriceSortNilsLast(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	asc := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "flat",
		Sort:    "price_asc",
	})
	require.Len(t, asc.Listings, 4)
	assert.Equal(t, 49.0, *asc.Listings[0].Price)
	assert.Nil(t, asc.Listings[3].Price)

	desc := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "flat",
		Sort:    "price_desc",
	})
	require.Len(t, desc.Listings, 4)
	assert.Equal(t, 899.0, *desc.Listings[0].Price)
	assert.Nil(t, desc.Listings[3].Price)
}

func TestSearchAvailabilitySort(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "flat",
		Sort:    "availability",
	})
	require.Len(t, resp.Listings, 4)
	assert.False(t, resp.Listings[3].Availability)
	for _, l := range resp.Listings[:3] {
		assert.True(t, l.Availability)
	}
}

func TestSearchNewestSort(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fixtures := catalogFixture()
	for i := range fixtures {
		fixtures[i].CreatedAt = base.AddDate(0, 0, i)
	}
	src := &fakeSource{listings: fixtures}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		Mode:    "flat",
		Sort:    "newest",
	})
	require.Len(t, resp.Listings, 4)
	assert.Equal(t, int64(4), resp.Listings[0].ID)
	assert.Equal(t, int64(1), resp.Listings[3].ID)
}

func TestSearchPagination(t *testing.T) {
	var many []Listing
	for i := int64(1); i <= 25; i++ {
		many = append(many, listing(i, "Shop", "Unique Product "+string(rune('A'+i)), floatPtr(float64(i)), true))
	}
	src := &fakeSource{listings: many}
	engine := NewEngine(src, nil)

	page1 := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "product"},
		Mode:    "flat",
		Sort:    "price_asc",
		Page:    1,
		PerPage: 10,
	})
	assert.Equal(t, 25, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Len(t, page1.Listings, 10)

	page3 := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "product"},
		Mode:    "flat",
		Sort:    "price_asc",
		Page:    3,
		PerPage: 10,
	})
	assert.Len(t, page3.Listings, 5)

	// Pages never overlap
	page2 := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "product"},
		Mode:    "flat",
		Sort:    "price_asc",
		Page:    2,
		PerPage: 10,
	})
	assert.NotEqual(t, page1.Listings[9].ID, page2.Listings[0].ID)

	// Past the end yields an empty page, not an error
	beyond := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "product"},
		Mode:    "flat",
		Page:    99,
		PerPage: 10,
	})
	assert.Empty(t, beyond.Listings)
	assert.Equal(t, 25, beyond.Total)
}

func TestSearchPerPageClamped(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		PerPage: 5000,
	})
	assert.Equal(t, MaxPerPage, resp.PerPage)

	resp = engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
		PerPage: -1,
	})
	assert.Equal(t, DefaultPerPage, resp.PerPage)
}

func TestSearchConfiguredLimits(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngineWithLimits(src, nil, Limits{
		MaxCandidates:  50,
		DefaultPerPage: 2,
		MaxPerPage:     3,
	})

	resp := engine.Search(context.Background(), Request{})
	assert.Equal(t, 2, resp.PerPage)
	assert.Equal(t, 50, src.gotMax)

	resp = engine.Search(context.Background(), Request{PerPage: 10})
	assert.Equal(t, 3, resp.PerPage)

	// Zero fields keep the package defaults
	defaults := NewEngine(src, nil)
	defaults.Search(context.Background(), Request{})
	assert.Equal(t, MaxCandidates, src.gotMax)
}

func TestSearchCategoryDistribution(t *testing.T) {
	src := &fakeSource{listings: catalogFixture()}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "iphone"},
	})
	require.Len(t, resp.CategoryDistribution, 2)

	// Single-character queries skip the distribution
	short := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "i"},
	})
	assert.Empty(t, short.CategoryDistribution)
}

func TestSearchRelevanceOrdering(t *testing.T) {
	exact := listing(1, "Shop A", "Apple iPhone 15", floatPtr(899), true)
	partial := listing(2, "Shop B", "Charging Dock for iPhone and iPad", floatPtr(39), true)
	src := &fakeSource{listings: []Listing{partial, exact}}
	engine := NewEngine(src, nil)

	resp := engine.Search(context.Background(), Request{
		Filters: Filters{Query: "apple iphone 15"},
	})
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "Apple iPhone 15", resp.Groups[0].Title)
}
