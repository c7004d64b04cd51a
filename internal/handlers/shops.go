package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agorino/catalog-service/internal/database"
)

// CreateShopRequest is the POST /shops body
type CreateShopRequest struct {
	Name    string `json:"name" binding:"required"`
	FeedURL string `json:"feed_url" binding:"required,url"`
}

// ListShops returns all merchants
// GET /shops
func ListShops(c *gin.Context) {
	shops, err := database.ListMerchants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list shops"})
		return
	}
	if shops == nil {
		shops = []database.Merchant{}
	}
	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

// CreateShop registers a merchant feed. Duplicate names are rejected.
// POST /shops
func CreateShop(c *gin.Context) {
	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and feed_url are required"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
		return
	}

	shop, err := database.CreateMerchant(c.Request.Context(), req.Name, req.FeedURL)
	if errors.Is(err, database.ErrDuplicateName) {
		c.JSON(http.StatusConflict, gin.H{"error": "a shop with this name already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create shop"})
		return
	}
	c.JSON(http.StatusCreated, shop)
}

// DeleteShop removes a merchant and all its products
// DELETE /shops/:id
func DeleteShop(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop id"})
		return
	}

	err = database.DeleteMerchant(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "shop not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete shop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
