package feed

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"plain decimal", "19.99", floatPtr(19.99)},
		{"decimal comma", "19,99", floatPtr(19.99)},
		{"currency symbol", "€24.50", floatPtr(24.50)},
		{"currency suffix", "24.50 EUR", floatPtr(24.50)},
		{"thousands separator", "1.234,56", floatPtr(1234.56)},
		{"thousands with dots only", "1.234.56", floatPtr(1234.56)},
		{"whitespace", "  12.00  ", floatPtr(12.00)},
		{"integer", "45", floatPtr(45)},
		{"empty", "", nil},
		{"only text", "call for price", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.expected, *got, 0.001)
			}
		})
	}
}

func TestParseAvailability(t *testing.T) {
	one := 1
	zero := 0

	tests := []struct {
		name     string
		text     string
		stockQty *int
		expected bool
	}{
		{"true literal", "true", nil, true},
		{"numeric one", "1", nil, true},
		{"yes", "YES", nil, true},
		{"in stock", "In Stock", nil, true},
		{"greek available", "Διαθέσιμο", nil, true},
		{"french", "en stock", nil, true},
		{"german", "auf lager", nil, true},
		{"out of stock", "out of stock", nil, false},
		{"false literal", "false", nil, false},
		{"empty with stock", "", &one, true},
		{"empty with zero stock", "", &zero, false},
		{"empty no stock", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseAvailability(tt.text, tt.stockQty))
		})
	}
}

func TestParseStockQty(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"numeric", "12", intPtr(12)},
		{"zero", "0", intPtr(0)},
		{"negative rejected", "-3", nil},
		{"textual available", "available", intPtr(1)},
		{"textual in stock", "In Stock", intPtr(1)},
		{"greek", "διαθέσιμο", intPtr(1)},
		{"garbage", "maybe", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStockQty(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

func TestExtractImageURLs(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		expectedMain   string
		expectedExtras int
	}{
		{"single url", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg", 0},
		{"comma separated", "https://x.com/1.jpg, https://x.com/2.jpg", "https://x.com/1.jpg", 1},
		{"pipe separated", "https://x.com/1.jpg|https://x.com/2.jpg|https://x.com/3.jpg", "https://x.com/1.jpg", 2},
		{"relative urls dropped", "/images/a.jpg, https://x.com/b.jpg", "https://x.com/b.jpg", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, extras := ExtractImageURLs(tt.input)
			require.NotNil(t, main)
			assert.Equal(t, tt.expectedMain, *main)
			assert.Len(t, extras, tt.expectedExtras)
		})
	}

	t.Run("empty input", func(t *testing.T) {
		main, extras := ExtractImageURLs("")
		assert.Nil(t, main)
		assert.Nil(t, extras)
	})

	t.Run("only invalid urls", func(t *testing.T) {
		main, extras := ExtractImageURLs("/a.jpg, b.jpg")
		assert.Nil(t, main)
		assert.Nil(t, extras)
	})
}

func TestParseCategoryPath(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		expectedLeaf string
		expectedPath []string
	}{
		{"gt separated", "Electronics > Phones > Smartphones", "Smartphones", []string{"Electronics", "Phones", "Smartphones"}},
		{"slash separated", "Home/Kitchen/Appliances", "Appliances", []string{"Home", "Kitchen", "Appliances"}},
		{"single level", "Laptops", "Laptops", []string{"Laptops"}},
		{"pipe separated", "Audio|Speakers", "Speakers", []string{"Audio", "Speakers"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf, path := ParseCategoryPath(tt.input)
			assert.Equal(t, tt.expectedLeaf, leaf)
			assert.Equal(t, tt.expectedPath, path)
		})
	}
}

func TestParseFeed(t *testing.T) {
	feedXML := `<?xml version="1.0" encoding="UTF-8"?>
<store>
  <products>
    <product>
      <name>Apple iPhone 15 128GB</name>
      <description>Latest iPhone model</description>
      <ean>0195949036873</ean>
      <sku>IPH15-128</sku>
      <price_with_vat>899,00 €</price_with_vat>
      <original_price>999.00</original_price>
      <instock>yes</instock>
      <image>https://cdn.example.com/iph15.jpg</image>
      <link>https://shop.example.com/iph15</link>
      <manufacturer>Apple</manufacturer>
      <category>Electronics &gt; Phones &gt; Smartphones</category>
      <warranty>24 months</warranty>
    </product>
    <product>
      <title>Samsung Galaxy S24</title>
      <price>749.00</price>
      <price_without_vat>604.03</price_without_vat>
      <quantity>7</quantity>
    </product>
    <product>
      <price>10.00</price>
    </product>
  </products>
</store>`

	result := Parse([]byte(feedXML))

	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, result.Dropped)
	require.Len(t, result.Records, 2)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing title")

	iphone := result.Records[0]
	assert.Equal(t, "Apple iPhone 15 128GB", iphone.Title)
	assert.Equal(t, "IPH15-128", iphone.MerchantProductCode)
	require.NotNil(t, iphone.Price)
	assert.InDelta(t, 899.00, *iphone.Price, 0.001)
	require.NotNil(t, iphone.OriginalPrice)
	assert.InDelta(t, 999.00, *iphone.OriginalPrice, 0.001)
	require.NotNil(t, iphone.DiscountPct)
	assert.InDelta(t, 10.01, *iphone.DiscountPct, 0.001)
	assert.True(t, iphone.Availability)
	require.NotNil(t, iphone.StockQty)
	assert.Equal(t, 1, *iphone.StockQty)
	assert.Equal(t, "Apple", iphone.Brand)
	assert.Equal(t, "Smartphones", iphone.Category)
	assert.Equal(t, []string{"Electronics", "Phones", "Smartphones"}, iphone.CategoryPath)
	require.NotNil(t, iphone.ImageURL)
	assert.Equal(t, "https://cdn.example.com/iph15.jpg", *iphone.ImageURL)
	assert.Equal(t, "24 months", iphone.Specifications["warranty"])

	galaxy := result.Records[1]
	assert.Equal(t, "Samsung Galaxy S24", galaxy.Title)
	// Net price overrides the VAT-inclusive one
	require.NotNil(t, galaxy.Price)
	assert.InDelta(t, 604.03, *galaxy.Price, 0.001)
	require.NotNil(t, galaxy.StockQty)
	assert.Equal(t, 7, *galaxy.StockQty)
	assert.True(t, galaxy.Availability)
	// No sku/ean/mpn: code derives from the title
	assert.Equal(t, "samsung-galaxy-s24", galaxy.MerchantProductCode)
}

func TestParseItemElements(t *testing.T) {
	feedXML := `<rss><channel>
		<item><title>Product A</title><price>5.00</price></item>
		<item><title>Product B</title><price>6.00</price></item>
	</channel></rss>`

	result := Parse([]byte(feedXML))
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Product A", result.Records[0].Title)
	assert.Equal(t, "Product B", result.Records[1].Title)
}

func TestParseDeterministic(t *testing.T) {
	feedXML := `<products>
		<product><title>A</title><price>1.00</price><color>red</color></product>
		<product><title>B</title><quantity>3</quantity></product>
	</products>`

	first := Parse([]byte(feedXML))
	second := Parse([]byte(feedXML))
	assert.Equal(t, first, second)
}

func TestParseTruncatedFeed(t *testing.T) {
	feedXML := `<products>
		<product><title>Complete</title><price>9.99</price></product>
		<product><title>Cut off`

	result := Parse([]byte(feedXML))
	// Whatever parsed before the truncation point survives
	require.NotEmpty(t, result.Records)
	assert.Equal(t, "Complete", result.Records[0].Title)
}

func TestParseInvalidXML(t *testing.T) {
	result := Parse([]byte("not xml at all"))
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.TotalRecords)
}

func TestBuildSearchText(t *testing.T) {
	longDesc := strings.Repeat("x", 300)
	rec := &Record{
		Title:       "Test Product",
		Brand:       "BrandX",
		Category:    "Widgets",
		EAN:         strPtr("1234567890123"),
		Description: &longDesc,
	}

	text := buildSearchText(rec)
	assert.Contains(t, text, "Test Product")
	assert.Contains(t, text, "BrandX")
	assert.Contains(t, text, "Widgets")
	assert.Contains(t, text, "1234567890123")
	// Description clipped to 200 chars before joining
	assert.LessOrEqual(t, len(text), 1000)
	assert.Contains(t, text, strings.Repeat("x", 200))
	assert.NotContains(t, text, strings.Repeat("x", 201))
}

func TestBuildSearchTextCap(t *testing.T) {
	rec := &Record{Title: strings.Repeat("t", 1200)}
	assert.Len(t, buildSearchText(rec), 1000)
}

func TestBuildSearchTextGreekRuneBoundaries(t *testing.T) {
	// "A" shifts every following two-byte Greek rune to an odd byte
	// offset, so a byte-indexed clip at 200 or 1000 would land mid-rune.
	desc := "A" + strings.Repeat("α", 300)
	rec := &Record{
		Title:       "Ηχείο " + strings.Repeat("β", 900),
		Description: &desc,
	}

	text := buildSearchText(rec)
	assert.True(t, utf8.ValidString(text))
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 1000)
	assert.Contains(t, text, "Ηχείο")
}

func TestClipRunes(t *testing.T) {
	assert.Equal(t, "αβγ", clipRunes("αβγ", 3))
	assert.Equal(t, "αβ", clipRunes("αβγ", 2))
	assert.Equal(t, "ab", clipRunes("abc", 2))
	assert.Equal(t, "", clipRunes("", 5))
	assert.True(t, utf8.ValidString(clipRunes(strings.Repeat("Δ", 10), 7)))
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
