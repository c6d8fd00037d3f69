package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
	"snapfix-server/services"
)

// RegisterBookingRoutes registers customer booking routes. Booking detail is
// also readable by the assigned worker.
func (h *Handler) RegisterBookingRoutes(router *gin.RouterGroup) {
	router.POST("", h.customerOnly(), h.createBooking)
	router.GET("", h.customerOnly(), h.listCustomerBookings)
	router.GET("/:id", h.anyRole(), h.getBooking)
	router.PUT("/:id/status", h.customerOnly(), h.updateBookingStatus)
}

func (h *Handler) createBooking(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBookingForm)

	var req models.CreateBookingRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	scheduled, err := services.ParseScheduledDate(req.ScheduledDate)
	if err != nil {
		h.respondError(c, err, "Error creating booking")
		return
	}

	images, err := bookingImages(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid form data",
		})
		return
	}

	booking, err := h.Bookings.Create(c.Request.Context(), principal(c), services.NewBooking{
		WorkerID:        req.WorkerID,
		ServiceCategory: req.ServiceCategory,
		ProblemType:     req.ProblemType,
		Description:     req.Description,
		ScheduledDate:   scheduled,
		ScheduledTime:   req.ScheduledTime,
		Address: models.BookingAddress{
			FullAddress: req.AddressFullAddress,
			Pincode:     req.AddressPincode,
			City:        req.AddressCity,
			State:       req.AddressState,
		},
		Images: images,
	})
	if err != nil {
		h.respondError(c, err, "Error creating booking")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Booking created successfully",
		"data":    booking,
	})
}

func (h *Handler) listCustomerBookings(c *gin.Context) {
	bookings, err := h.Bookings.ListForCustomer(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err, "Error fetching bookings")
		return
	}
	writeBookingList(c, bookings)
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.Bookings.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err, "Error fetching booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

func (h *Handler) updateBookingStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	booking, err := h.Bookings.Cancel(c.Request.Context(), principal(c), id, req.Status)
	if err != nil {
		h.respondError(c, err, "Error updating booking status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking cancelled successfully",
		"data":    booking,
	})
}

func (h *Handler) listWorkerBookings(c *gin.Context) {
	bookings, err := h.Bookings.ListForWorker(c.Request.Context(), principal(c), c.Query("status"))
	if err != nil {
		h.respondError(c, err, "Error fetching bookings")
		return
	}
	writeBookingList(c, bookings)
}

func (h *Handler) respondToBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req models.RespondBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	booking, err := h.Bookings.Respond(c.Request.Context(), principal(c), id, req.WorkerStatus)
	if err != nil {
		h.respondError(c, err, "Error responding to booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking " + string(booking.Status) + " successfully",
		"data":    booking,
	})
}

func (h *Handler) startBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.Bookings.Start(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err, "Error starting booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Work started",
		"data":    booking,
	})
}

func (h *Handler) initiateCompletion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.Bookings.InitiateCompletion(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err, "Error completing booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking marked as completed",
		"data":    booking,
	})
}

func writeBookingList(c *gin.Context, bookings []models.BookingDetails) {
	if bookings == nil {
		bookings = []models.BookingDetails{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(bookings),
		"data":    bookings,
	})
}
