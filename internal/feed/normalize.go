package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Record is one normalized product from a feed
type Record struct {
	MerchantProductCode string
	Title               string
	Description         *string
	EAN                 *string
	MPN                 *string
	SKU                 *string
	Brand               string
	Category            string
	CategoryPath        []string
	Price               *float64
	OriginalPrice       *float64
	DiscountPct         *float64
	Availability        bool
	StockQty            *int
	ImageURL            *string
	AdditionalImages    []string
	ProductURL          *string
	Color               *string
	Size                *string
	Material            *string
	Specifications      map[string]string
	SearchText          string
}

// ParseResult is the outcome of normalizing one feed document
type ParseResult struct {
	Records      []Record
	TotalRecords int
	Dropped      int
	Warnings     []string
}

// fieldCandidates maps each logical field to its candidate tag names in
// resolution order. First non-empty match wins.
var fieldCandidates = map[string][]string{
	"title":           {"title", "name", "product_name"},
	"description":     {"description", "desc", "short_description"},
	"ean":             {"ean", "ean13", "barcode"},
	"mpn":             {"mpn", "manufacturer_part_number", "part_number"},
	"sku":             {"sku", "product_code", "code"},
	"price":           {"price_with_vat", "price", "final_price", "selling_price"},
	"price_without_vat": {"price_without_vat", "price_no_vat", "net_price"},
	"original_price":  {"original_price", "list_price"},
	"availability":    {"instock", "availability", "in_stock", "stock", "available", "status"},
	"stock_qty":       {"quantity", "stock_quantity", "stock_qty", "qty", "inventory", "stock_level"},
	"image_url":       {"image", "image_url", "main_image"},
	"product_url":     {"link", "url", "product_url"},
	"brand":           {"manufacturer", "brand"},
	"category":        {"category", "categories"},
	"color":           {"color", "colour"},
	"size":            {"size", "dimensions"},
	"material":        {"material", "fabric"},
}

// mappedTags is the set of tags claimed by fieldCandidates; anything else
// lands in the specifications bag.
var mappedTags = func() map[string]bool {
	set := make(map[string]bool)
	for _, tags := range fieldCandidates {
		for _, tag := range tags {
			set[tag] = true
		}
	}
	return set
}()

var availabilityTruthy = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true,
	"available": true, "in stock": true, "instock": true,
	"διαθέσιμο": true, "disponible": true, "en stock": true,
	"auf lager": true, "disponibile": true,
}

// item is one raw feed element: ordered child tag/text pairs
type item struct {
	children []child
}

type child struct {
	tag  string
	text string
}

func (it *item) first(tags []string) string {
	for _, tag := range tags {
		for _, c := range it.children {
			if c.tag == tag && strings.TrimSpace(c.text) != "" {
				return strings.TrimSpace(c.text)
			}
		}
	}
	return ""
}

// Parse normalizes one feed document. Records missing a title are
// dropped with a warning; the parse itself never aborts mid-feed.
// Deterministic: same bytes in, same records out.
func Parse(content []byte) *ParseResult {
	result := &ParseResult{}

	decoded, err := Decode(content, DetectEncoding(content))
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("decode: %v", err))
		return result
	}

	items, err := collectItems(decoded)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("xml parse: %v", err))
		return result
	}

	result.TotalRecords = len(items)
	for i := range items {
		rec, warn := normalizeItem(&items[i], i)
		if warn != "" {
			result.Warnings = append(result.Warnings, warn)
		}
		if rec == nil {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, *rec)
	}
	return result
}

// collectItems walks the token stream gathering every <product> or
// <item> element with its direct children. Unknown surrounding
// structure is ignored.
func collectItems(content string) ([]item, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))
	decoder.Strict = false

	var items []item
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(items) > 0 {
				// Keep what we have from a truncated feed
				return items, nil
			}
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := strings.ToLower(start.Name.Local)
		if name != "product" && name != "item" {
			continue
		}

		it, err := decodeItem(decoder, start)
		if err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// decodeItem reads one product element, flattening each direct child to
// its concatenated text content.
func decodeItem(decoder *xml.Decoder, start xml.StartElement) (item, error) {
	var it item
	depth := 0
	var currentTag string
	var text bytes.Buffer

	for {
		tok, err := decoder.Token()
		if err != nil {
			return it, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				currentTag = strings.ToLower(t.Name.Local)
				text.Reset()
			}
		case xml.CharData:
			if depth >= 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return it, nil // end of the product element
			}
			if depth == 1 {
				it.children = append(it.children, child{tag: currentTag, text: text.String()})
			}
			depth--
		}
	}
}

func normalizeItem(it *item, index int) (*Record, string) {
	title := it.first(fieldCandidates["title"])
	if title == "" {
		return nil, fmt.Sprintf("record %d: missing title, dropped", index)
	}

	rec := &Record{Title: title}

	rec.Description = optional(it.first(fieldCandidates["description"]))
	rec.EAN = optional(it.first(fieldCandidates["ean"]))
	rec.MPN = optional(it.first(fieldCandidates["mpn"]))
	rec.SKU = optional(it.first(fieldCandidates["sku"]))
	rec.Brand = it.first(fieldCandidates["brand"])
	rec.Color = optional(it.first(fieldCandidates["color"]))
	rec.Size = optional(it.first(fieldCandidates["size"]))
	rec.Material = optional(it.first(fieldCandidates["material"]))
	rec.ProductURL = optional(it.first(fieldCandidates["product_url"]))

	rec.Price = ParsePrice(it.first(fieldCandidates["price"]))
	// Net price, when present and parseable, becomes the effective price
	if net := ParsePrice(it.first(fieldCandidates["price_without_vat"])); net != nil {
		rec.Price = net
	}
	rec.OriginalPrice = ParsePrice(it.first(fieldCandidates["original_price"]))
	if rec.Price != nil && rec.OriginalPrice != nil && *rec.OriginalPrice > *rec.Price {
		pct := (*rec.OriginalPrice - *rec.Price) / *rec.OriginalPrice * 100
		pct = math.Round(pct*100) / 100
		rec.DiscountPct = &pct
	}

	rec.StockQty = parseStockQty(it.first(fieldCandidates["stock_qty"]))
	rec.Availability = parseAvailability(it.first(fieldCandidates["availability"]), rec.StockQty)
	if rec.StockQty == nil && rec.Availability {
		one := 1
		rec.StockQty = &one
	}

	rec.ImageURL, rec.AdditionalImages = ExtractImageURLs(it.first(fieldCandidates["image_url"]))

	if catText := it.first(fieldCandidates["category"]); catText != "" {
		rec.Category, rec.CategoryPath = ParseCategoryPath(catText)
	}

	// Merchant product code: sku > ean > mpn > normalized title
	switch {
	case rec.SKU != nil:
		rec.MerchantProductCode = *rec.SKU
	case rec.EAN != nil:
		rec.MerchantProductCode = *rec.EAN
	case rec.MPN != nil:
		rec.MerchantProductCode = *rec.MPN
	default:
		rec.MerchantProductCode = strings.ToLower(strings.Join(strings.Fields(title), "-"))
	}

	rec.Specifications = map[string]string{}
	for _, c := range it.children {
		if !mappedTags[c.tag] && strings.TrimSpace(c.text) != "" {
			rec.Specifications[c.tag] = strings.TrimSpace(c.text)
		}
	}

	rec.SearchText = buildSearchText(rec)
	return rec, ""
}

var priceStripRe = regexp.MustCompile(`[^\d.,]`)

// ParsePrice extracts a decimal price from feed text. Strips currency
// symbols and whitespace, normalizes the decimal comma. Unparseable
// input yields nil.
func ParsePrice(text string) *float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	clean := priceStripRe.ReplaceAllString(text, "")
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return nil
	}
	// Keep only the last dot as decimal separator (1.234.56 -> 1234.56)
	if n := strings.Count(clean, "."); n > 1 {
		last := strings.LastIndex(clean, ".")
		clean = strings.ReplaceAll(clean[:last], ".", "") + clean[last:]
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseAvailability(text string, stockQty *int) bool {
	if strings.TrimSpace(text) != "" {
		return availabilityTruthy[strings.ToLower(strings.TrimSpace(text))]
	}
	if stockQty != nil {
		return *stockQty > 0
	}
	return false
}

func parseStockQty(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if qty, err := strconv.Atoi(text); err == nil {
		if qty < 0 {
			return nil
		}
		return &qty
	}
	// Textual "available"-like stock values coerce to 1
	lower := strings.ToLower(text)
	for _, word := range []string{"available", "in stock", "διαθέσιμο", "disponible"} {
		if strings.Contains(lower, word) {
			one := 1
			return &one
		}
	}
	return nil
}

var imageSeparatorRe = regexp.MustCompile(`[,;|]`)

// ExtractImageURLs splits a possibly separator-delimited image field
// into a main image and additional images, keeping only absolute URLs.
func ExtractImageURLs(text string) (*string, []string) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var valid []string
	for _, raw := range imageSeparatorRe.Split(text, -1) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
			valid = append(valid, raw)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	return &valid[0], valid[1:]
}

var categorySeparatorRe = regexp.MustCompile(`[>/\-|]`)

// ParseCategoryPath splits a path-like category string into its leaf
// name and ordered path components.
func ParseCategoryPath(text string) (string, []string) {
	var parts []string
	for _, p := range categorySeparatorRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return parts[len(parts)-1], parts
}

// buildSearchText concatenates title, brand, category, ean, mpn and the
// first 200 chars of the description, capped at 1000 chars total.
func buildSearchText(rec *Record) string {
	parts := []string{rec.Title}
	if rec.Brand != "" {
		parts = append(parts, rec.Brand)
	}
	if rec.Category != "" {
		parts = append(parts, rec.Category)
	}
	if rec.EAN != nil {
		parts = append(parts, *rec.EAN)
	}
	if rec.MPN != nil {
		parts = append(parts, *rec.MPN)
	}
	if rec.Description != nil {
		parts = append(parts, clipRunes(*rec.Description, 200))
	}

	return clipRunes(strings.Join(parts, " "), 1000)
}

// clipRunes truncates s to at most max runes. Greek feeds are multi-byte
// throughout, so clipping by bytes would split a rune and persist invalid
// UTF-8.
func clipRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
