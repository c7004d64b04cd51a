package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agorino/catalog-service/internal/database"
)

// GetProduct returns one product with its shop, brand, category and variants
// GET /product/:id
func GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := database.GetProduct(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetProductByEAN returns the cheapest product carrying an EAN
// GET /product/ean/:ean
func GetProductByEAN(c *gin.Context) {
	ean := c.Param("ean")
	if ean == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ean is required"})
		return
	}

	product, err := database.GetProductByEAN(c.Request.Context(), ean)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetComparison returns per-shop offers for the product's EAN
// GET /product/:id/comparison
func GetComparison(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := database.GetProduct(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	if product.EAN == nil || *product.EAN == "" {
		// Without an EAN the only comparable offer is the product itself
		c.JSON(http.StatusOK, gin.H{
			"product_id": product.ID,
			"entries": []database.ComparisonEntry{{
				ProductID:    product.ID,
				MerchantID:   product.MerchantID,
				MerchantName: product.MerchantName,
				Price:        product.Price,
				Availability: product.Availability,
				ProductURL:   product.ProductURL,
			}},
		})
		return
	}

	entries, err := database.Comparison(c.Request.Context(), *product.EAN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comparison"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": product.ID,
		"ean":        *product.EAN,
		"entries":    entries,
	})
}

// GetFacets returns brand/category/shop counts and price stats
// GET /facets
func GetFacets(c *gin.Context) {
	facets, err := database.GetFacets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load facets"})
		return
	}
	c.JSON(http.StatusOK, facets)
}
