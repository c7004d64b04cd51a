package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agorino/catalog-service/internal/search"
)

// SearchQuery binds the /search query parameters
type SearchQuery struct {
	Q            string   `form:"q"`
	Title        string   `form:"title"`
	Brand        string   `form:"brand"`
	Brands       []string `form:"brands"`
	Category     string   `form:"category"`
	Categories   []string `form:"categories"`
	MinPrice     *float64 `form:"min_price"`
	MaxPrice     *float64 `form:"max_price"`
	Availability *bool    `form:"availability"`
	EAN          string   `form:"ean"`
	MPN          string   `form:"mpn"`
	Shops        []string `form:"shops"`
	Sort         string   `form:"sort"`
	Page         int      `form:"page,default=1"`
	PerPage      int      `form:"per_page,default=20"`
	Type         string   `form:"type,default=all"`
}

// SearchHandler serves GET /search
type SearchHandler struct {
	engine *search.Engine
}

// NewSearchHandler creates the search handler
func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search executes a product search
// GET /search
func (h *SearchHandler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	if q.Page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if q.PerPage < 1 || q.PerPage > search.MaxPerPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "per_page must be between 1 and 100"})
		return
	}

	req := search.Request{
		Filters: buildFilters(&q),
		Sort:    q.Sort,
		Mode:    mapType(q.Type),
		Page:    q.Page,
		PerPage: q.PerPage,
	}

	resp := h.engine.Search(c.Request.Context(), req)
	if resp.Groups == nil && resp.Listings == nil && resp.Categories == nil {
		resp.Groups = []search.Group{}
	}
	c.JSON(http.StatusOK, resp)
}

func buildFilters(q *SearchQuery) search.Filters {
	query := q.Q
	if query == "" {
		query = q.Title
	}

	brands := q.Brands
	if q.Brand != "" {
		brands = append(brands, q.Brand)
	}
	categories := q.Categories
	if q.Category != "" {
		categories = append(categories, q.Category)
	}

	return search.Filters{
		Query:        strings.TrimSpace(query),
		Brands:       splitCSV(brands),
		Categories:   splitCSV(categories),
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Availability: q.Availability,
		EAN:          strings.TrimSpace(q.EAN),
		MPN:          strings.TrimSpace(q.MPN),
		Shops:        splitCSV(q.Shops),
	}
}

// splitCSV flattens repeated params that may themselves be
// comma-separated lists (?brands=a,b&brands=c)
func splitCSV(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func mapType(t string) string {
	switch t {
	case "categories":
		return "categories"
	case "products":
		return "flat"
	default:
		return "aggregated"
	}
}
