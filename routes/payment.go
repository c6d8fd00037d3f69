package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
)

// RegisterPaymentRoutes registers customer payment routes
func (h *Handler) RegisterPaymentRoutes(router *gin.RouterGroup) {
	router.Use(h.customerOnly())
	router.POST("", h.createPayment)
	router.GET("", h.listPayments)
	router.GET("/booking/:bookingId", h.getBookingPayment)
}

func (h *Handler) createPayment(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	payment, err := h.Payments.Pay(c.Request.Context(), principal(c), req)
	if err != nil {
		h.respondError(c, err, "Error processing payment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Payment processed successfully",
		"data":    payment,
	})
}

func (h *Handler) listPayments(c *gin.Context) {
	payments, err := h.Payments.ListForCustomer(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err, "Error fetching payments")
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(payments),
		"data":    payments,
	})
}

func (h *Handler) getBookingPayment(c *gin.Context) {
	bookingID, ok := idParam(c, "bookingId")
	if !ok {
		return
	}

	payment, err := h.Payments.GetByBooking(c.Request.Context(), principal(c), bookingID)
	if err != nil {
		h.respondError(c, err, "Error fetching payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}
