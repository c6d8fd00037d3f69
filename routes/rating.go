package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
)

// RegisterFeedbackRoutes registers rating and review routes
func (h *Handler) RegisterFeedbackRoutes(router *gin.RouterGroup) {
	router.POST("", h.customerOnly(), h.createFeedback)
	router.GET("/booking/:bookingId", h.customerOnly(), h.getBookingFeedback)
	router.GET("/worker/:workerId", h.listWorkerFeedback)
}

func (h *Handler) createFeedback(c *gin.Context) {
	var req models.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	feedback, err := h.Feedback.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err, "Error submitting feedback")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Feedback submitted successfully",
		"data":    feedback,
	})
}

func (h *Handler) getBookingFeedback(c *gin.Context) {
	bookingID, ok := idParam(c, "bookingId")
	if !ok {
		return
	}

	feedback, err := h.Feedback.GetByBooking(c.Request.Context(), principal(c), bookingID)
	if err != nil {
		h.respondError(c, err, "Error fetching feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    feedback,
	})
}

func (h *Handler) listWorkerFeedback(c *gin.Context) {
	workerID, ok := idParam(c, "workerId")
	if !ok {
		return
	}

	reviews, err := h.Feedback.ListForWorker(c.Request.Context(), workerID)
	if err != nil {
		h.respondError(c, err, "Error fetching feedback")
		return
	}
	if reviews == nil {
		reviews = []models.FeedbackDetails{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(reviews),
		"data":    reviews,
	})
}
