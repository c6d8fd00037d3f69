package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
)

// RegisterProfileRoutes registers the customer profile routes
func (h *Handler) RegisterProfileRoutes(router *gin.RouterGroup) {
	router.Use(h.customerOnly())
	router.GET("", h.getCustomerProfile)
	router.POST("", h.updateCustomerProfile)
}

func (h *Handler) getCustomerProfile(c *gin.Context) {
	user, err := h.Users.Profile(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err, "Error fetching profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

func (h *Handler) updateCustomerProfile(c *gin.Context) {
	var req models.CustomerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.Users.UpdateProfile(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err, "Error updating profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"data":    user,
	})
}
