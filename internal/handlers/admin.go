package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/agorino/catalog-service/internal/database"
	"github.com/agorino/catalog-service/internal/ingest"
)

// AdminHandler serves the authenticated admin surface
type AdminHandler struct {
	coordinator *ingest.Coordinator
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(coordinator *ingest.Coordinator) *AdminHandler {
	return &AdminHandler{coordinator: coordinator}
}

// ProcessFeeds triggers a sync of all enabled merchants and waits for
// the per-merchant results.
// POST /admin/process-feeds
func (h *AdminHandler) ProcessFeeds(c *gin.Context) {
	results := h.coordinator.SyncAll(c.Request.Context())
	if results == nil {
		results = []ingest.SyncResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// SyncShop triggers one merchant's sync asynchronously
// POST /admin/shops/:id/sync
func (h *AdminHandler) SyncShop(c *gin.Context) {
	shop, ok := bindShopID(c)
	if !ok {
		return
	}

	go func() {
		result := h.coordinator.SyncMerchant(context.Background(), shop)
		if result.Error != nil {
			log.Warn().
				Str("component", "handlers").
				Int64("shop_id", shop).
				Str("error", *result.Error).
				Msg("Triggered sync finished with error")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"shop_id": shop,
		"status":  "started",
	})
}

// Stats returns catalog counts and the most recent sync
// GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := database.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
