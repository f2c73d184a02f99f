package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/mediahub/internal/domain"
	"github.com/timmy/mediahub/internal/service"
)

// CatalogHandler serves the public catalog read endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListPosts handles GET /api/v1/posts.
func (h *CatalogHandler) ListPosts(c *gin.Context) {
	folder := c.Query("folder")
	search := c.Query("q")
	sortBy := c.DefaultQuery("sort", domain.SortNewest)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	result, err := h.catalog.ListPosts(c.Request.Context(), folder, search, sortBy, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListCategories handles GET /api/v1/categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories := h.catalog.ListCategories(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ListLatest handles GET /api/v1/posts/latest.
func (h *CatalogHandler) ListLatest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "15"))

	posts, err := h.catalog.ListLatestAcrossCategories(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list latest posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetURL handles GET /api/v1/posts/url. It returns a time-limited access
// URL for one storage key, for playback or download.
func (h *CatalogHandler) GetURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	url, err := h.catalog.GetPresignedURL(key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// IncrementView handles POST /api/v1/posts/view.
func (h *CatalogHandler) IncrementView(c *gin.Context) {
	var body struct {
		StorageKey string `json:"storage_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storage_key is required"})
		return
	}

	if err := h.catalog.IncrementViewCount(c.Request.Context(), body.StorageKey); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
