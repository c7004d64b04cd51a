package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agorino/catalog-service/internal/metrics"
	"github.com/agorino/catalog-service/internal/search"
)

// SuggestionsHandler serves GET /suggestions
type SuggestionsHandler struct {
	suggester *search.Suggester
}

// NewSuggestionsHandler creates the suggestions handler
func NewSuggestionsHandler(suggester *search.Suggester) *SuggestionsHandler {
	return &SuggestionsHandler{suggester: suggester}
}

// SuggestionsQuery binds the /suggestions query parameters
type SuggestionsQuery struct {
	Q     string `form:"q"`
	Limit int    `form:"limit,default=10"`
	Fuzzy bool   `form:"fuzzy"`
}

// Suggestions returns autocomplete entries
// GET /suggestions
func (h *SuggestionsHandler) Suggestions(c *gin.Context) {
	var q SuggestionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	start := time.Now()
	suggestions := h.suggester.Suggest(c.Request.Context(), q.Q, q.Limit, q.Fuzzy)
	metrics.ObserveSuggestion(time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"query":       q.Q,
	})
}
