package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agorino/catalog-service/internal/feed"
)

// GroupKey computes the runtime identifier that collapses equivalent
// products across shops: trimmed ean, else trimmed mpn, else the
// normalized title. Brand and category qualify the key to guard against
// title collisions.
func GroupKey(l *Listing) string {
	var base string
	switch {
	case l.EAN != nil && strings.TrimSpace(*l.EAN) != "":
		base = "ean:" + strings.TrimSpace(*l.EAN)
	case l.MPN != nil && strings.TrimSpace(*l.MPN) != "":
		base = "mpn:" + strings.TrimSpace(*l.MPN)
	default:
		base = "title:" + NormalizeTitle(l.Title)
	}

	brand := int64(0)
	if l.BrandID != nil {
		brand = *l.BrandID
	}
	category := int64(0)
	if l.CategoryID != nil {
		category = *l.CategoryID
	}
	return fmt.Sprintf("%s|b%d|c%d", base, brand, category)
}

// NormalizeTitle lowers a title, folds diacritics and strips everything
// but letters, digits and single spaces.
func NormalizeTitle(title string) string {
	folded := feed.FoldDiacritics(strings.ToLower(title))

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// buildGroups folds listings into aggregated groups, preserving first-
// seen group order.
func buildGroups(listings []Listing) []Group {
	index := make(map[string]int)
	var groups []Group

	for i := range listings {
		l := &listings[i]
		key := GroupKey(l)

		gi, seen := index[key]
		if !seen {
			groups = append(groups, Group{
				Title:       l.Title,
				Description: l.Description,
				ImageURL:    l.ImageURL,
				Brand:       l.BrandName,
				Category:    l.CategoryName,
				EAN:         l.EAN,
				MPN:         l.MPN,
				groupKey:    key,
			})
			gi = len(groups) - 1
			index[key] = gi
		}
		g := &groups[gi]

		g.ProductIDs = append(g.ProductIDs, l.ID)
		if !containsFold(g.ShopNames, l.MerchantName) {
			g.ShopNames = append(g.ShopNames, l.MerchantName)
		}
		g.ShopCount = len(g.ShopNames)
		if l.Availability {
			// Counted per shop, not per listing: variants from one shop
			// share the group and must not inflate the ratio
			if !containsFold(g.availShopNames, l.MerchantName) {
				g.availShopNames = append(g.availShopNames, l.MerchantName)
			}
			g.AvailableShops = len(g.availShopNames)
			if l.Price != nil && (g.BestAvailablePrice == nil || *l.Price < *g.BestAvailablePrice) {
				g.BestAvailablePrice = cloneFloat(l.Price)
			}
		}
		if l.Price != nil {
			if g.MinPrice == nil || *l.Price < *g.MinPrice {
				g.MinPrice = cloneFloat(l.Price)
			}
			if g.MaxPrice == nil || *l.Price > *g.MaxPrice {
				g.MaxPrice = cloneFloat(l.Price)
			}
		}
		if l.CreatedAt.After(g.newest) {
			g.newest = l.CreatedAt
		}
		// Prefer a representative that has an image and a description
		if g.ImageURL == nil && l.ImageURL != nil {
			g.ImageURL = l.ImageURL
		}
		if g.Description == nil && l.Description != nil {
			g.Description = l.Description
		}
	}

	for i := range groups {
		finalizeGroup(&groups[i], listings)
	}
	return groups
}

// finalizeGroup computes avg price, price variation and the
// availability ratio once all members are folded in.
func finalizeGroup(g *Group, listings []Listing) {
	memberIDs := make(map[int64]bool, len(g.ProductIDs))
	for _, id := range g.ProductIDs {
		memberIDs[id] = true
	}

	sum := 0.0
	priced := 0
	for i := range listings {
		l := &listings[i]
		if memberIDs[l.ID] && l.Price != nil {
			sum += *l.Price
			priced++
		}
	}
	if priced > 0 {
		avg := sum / float64(priced)
		g.AvgPrice = &avg
	}
	if g.MinPrice != nil && g.MaxPrice != nil && *g.MinPrice > 0 {
		variation := (*g.MaxPrice - *g.MinPrice) / *g.MinPrice * 100
		g.PriceVariation = &variation
	}
	if g.ShopCount > 0 {
		g.availRatio = float64(g.AvailableShops) / float64(g.ShopCount)
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
