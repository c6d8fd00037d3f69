package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"snapfix-server/models"
	"snapfix-server/services"
)

// RegisterAuthRoutes registers customer authentication routes
func (h *Handler) RegisterAuthRoutes(router *gin.RouterGroup) {
	router.POST("/send-otp", h.OTPSendLimiter.Middleware(h.Log), h.sendOTP(models.OTPPurposeCustomer))
	router.POST("/verify-otp", h.OTPVerifyLimiter.Middleware(h.Log), h.verifyCustomerOTP)
}

// RegisterWorkerAuthRoutes registers worker authentication routes
func (h *Handler) RegisterWorkerAuthRoutes(router *gin.RouterGroup) {
	router.POST("/send-otp", h.OTPSendLimiter.Middleware(h.Log), h.sendOTP(models.OTPPurposeWorker))
	router.POST("/verify-otp", h.OTPVerifyLimiter.Middleware(h.Log), h.verifyWorkerOTP)
	router.POST("/register", h.registerWorker)
	router.POST("/login", h.loginWorker)
}

func (h *Handler) sendOTP(purpose string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SendOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondBindError(c, err)
			return
		}

		if err := h.Auth.SendOTP(c.Request.Context(), req.Phone, purpose); err != nil {
			h.respondError(c, err, "Error sending OTP")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "OTP sent successfully",
		})
	}
}

func (h *Handler) verifyCustomerOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.Auth.VerifyCustomerOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		h.respondError(c, err, "Error verifying OTP")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "OTP verified successfully",
		"token":     result.Token,
		"user":      result.User,
		"isNewUser": result.IsNew,
	})
}

func (h *Handler) verifyWorkerOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.Auth.VerifyWorkerOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		h.respondError(c, err, "Error verifying OTP")
		return
	}
	h.writeWorkerAuth(c, http.StatusOK, "OTP verified successfully", result)
}

func (h *Handler) registerWorker(c *gin.Context) {
	var req models.WorkerRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.Auth.RegisterWorker(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Error registering worker")
		return
	}
	h.writeWorkerAuth(c, http.StatusCreated, "Worker registered successfully", result)
}

func (h *Handler) loginWorker(c *gin.Context) {
	var req models.WorkerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	result, err := h.Auth.LoginWorker(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Error logging in")
		return
	}
	h.writeWorkerAuth(c, http.StatusOK, "Login successful", result)
}

func (h *Handler) writeWorkerAuth(c *gin.Context, status int, message string, result *services.AuthResult) {
	c.JSON(status, gin.H{
		"success":     true,
		"message":     message,
		"token":       result.Token,
		"worker":      result.Worker,
		"isNewWorker": result.IsNew,
	})
}
