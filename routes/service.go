package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceCategoryResponse is one entry of the public catalog listing.
type ServiceCategoryResponse struct {
	Category     string `json:"category"`
	Icon         string `json:"icon"`
	ProblemCount int    `json:"problemCount"`
}

// RegisterServiceRoutes registers the service catalog routes
func (h *Handler) RegisterServiceRoutes(router *gin.RouterGroup) {
	router.GET("", h.getServices)
	router.GET("/:category/problems", h.getServiceProblems)
}

func (h *Handler) getServices(c *gin.Context) {
	responses := make([]ServiceCategoryResponse, 0, len(h.Catalog.Categories))
	for _, cat := range h.Catalog.Categories {
		responses = append(responses, ServiceCategoryResponse{
			Category:     cat.Name,
			Icon:         cat.Icon,
			ProblemCount: len(cat.Problems),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
	})
}

func (h *Handler) getServiceProblems(c *gin.Context) {
	category := c.Param("category")
	cat, ok := h.Catalog.Lookup(category)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Service category not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"category": cat.Name,
			"problems": cat.Problems,
		},
	})
}
