package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/service"
)

// SearchHandler exposes the local index directly, bypassing the agent.
type SearchHandler struct {
	store *service.VectorStore
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - store: vector store service.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(store *service.VectorStore) *SearchHandler {
	return &SearchHandler{store: store}
}

// Search handles GET /api/v1/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	results, err := h.store.SemanticSearch(c.Request.Context(), query, parseK(c, 5))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Search failed: " + err.Error(),
			"kind":  string(domain.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// Recommend handles GET /api/v1/recommend.
func (h *SearchHandler) Recommend(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'title' is required",
		})
		return
	}

	results, err := h.store.Recommend(c.Request.Context(), title, parseK(c, 5))
	if err != nil {
		if domain.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Recommendation failed: " + err.Error(),
			"kind":  string(domain.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// Stats handles GET /api/v1/stats.
func (h *SearchHandler) Stats(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indexed_movies": count,
	})
}

func parseK(c *gin.Context, def int) int {
	k := def
	if raw := c.Query("k"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &k); err != nil || k <= 0 {
			k = def
		}
	}
	return k
}
