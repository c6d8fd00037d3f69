package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
)

// RegisterWorkerRoutes registers the public worker directory
func (h *Handler) RegisterWorkerRoutes(router *gin.RouterGroup) {
	router.GET("", h.listWorkers)
	router.GET("/rates/insights", h.getRateInsights)
	router.GET("/:id", h.getWorker)
}

// RegisterWorkerPortalRoutes registers the routes a signed-in worker uses
func (h *Handler) RegisterWorkerPortalRoutes(router *gin.RouterGroup) {
	router.Use(h.workerOnly())

	router.GET("/profile", h.getWorkerProfile)
	router.POST("/profile", h.updateWorkerProfile)

	bookings := router.Group("/bookings")
	{
		bookings.GET("", h.listWorkerBookings)
		bookings.PUT("/:id/respond", h.respondToBooking)
		bookings.PUT("/:id/start", h.startBooking)
		bookings.PUT("/:id/initiate-completion", h.initiateCompletion)
	}
}

func (h *Handler) listWorkers(c *gin.Context) {
	workers, err := h.Workers.List(c.Request.Context(), c.Query("category"), c.Query("pincode"))
	if err != nil {
		h.respondError(c, err, "Error fetching workers")
		return
	}
	if workers == nil {
		workers = []models.Worker{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(workers),
		"data":    workers,
	})
}

func (h *Handler) getWorker(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	worker, err := h.Workers.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Error fetching worker")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    worker,
	})
}

func (h *Handler) getRateInsights(c *gin.Context) {
	insights, err := h.Rates.Insights(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.respondError(c, err, "Error fetching rate insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    insights,
	})
}

func (h *Handler) getWorkerProfile(c *gin.Context) {
	worker, err := h.Workers.Profile(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err, "Error fetching worker profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    worker,
	})
}

func (h *Handler) updateWorkerProfile(c *gin.Context) {
	var req models.WorkerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	profile, err := h.Workers.UpdateProfile(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err, "Error updating worker profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"data":    profile.Worker,
		"pricing": profile.Pricing,
	})
}
