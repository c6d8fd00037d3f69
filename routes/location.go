package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterLocationRoutes registers all location-related routes
func (h *Handler) RegisterLocationRoutes(router *gin.RouterGroup) {
	router.GET("/pincode/:pincode", h.lookupPincode)
}

func (h *Handler) lookupPincode(c *gin.Context) {
	result, err := h.Pincodes.Resolve(c.Request.Context(), c.Param("pincode"))
	if err != nil {
		h.respondError(c, err, "Server error in pincode lookup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"source":  result.Source,
		"data":    result.Data,
	})
}
