package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/middleware"
	"snapfix-server/services"
	"snapfix-server/types"
	"snapfix-server/websocket"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	Catalog  *catalog.Catalog
	Auth     *services.AuthService
	Users    *services.UserService
	Workers  *services.WorkerService
	Rates    *services.RateInsightsService
	Bookings *services.BookingService
	Payments *services.PaymentService
	Feedback *services.FeedbackService
	Pincodes *services.PincodeService
	Hub      *websocket.Hub

	// OTPSendLimiter and OTPVerifyLimiter guard the OTP endpoints per client IP.
	OTPSendLimiter   *middleware.RateLimiter
	OTPVerifyLimiter *middleware.RateLimiter

	// UploadDir is served at /uploads when images are stored locally.
	UploadDir string

	// Production hides error details from responses.
	Production bool

	Log *zap.Logger
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, h *Handler) {
	if h.UploadDir != "" {
		router.Static("/uploads", h.UploadDir)
	}

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		h.RegisterAuthRoutes(api.Group("/auth"))
		h.RegisterWorkerAuthRoutes(api.Group("/worker-auth"))
		h.RegisterProfileRoutes(api.Group("/profile"))
		h.RegisterServiceRoutes(api.Group("/services"))
		h.RegisterWorkerRoutes(api.Group("/workers"))
		h.RegisterBookingRoutes(api.Group("/bookings"))
		h.RegisterWorkerPortalRoutes(api.Group("/worker"))
		h.RegisterPaymentRoutes(api.Group("/payments"))
		h.RegisterFeedbackRoutes(api.Group("/feedback"))
		h.RegisterLocationRoutes(api.Group("/location"))
		h.RegisterNotificationRoutes(api)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "SnapFix API is running",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) customerOnly() gin.HandlerFunc {
	return middleware.AuthMiddleware(h.Auth.JWT(), types.RoleCustomer)
}

func (h *Handler) workerOnly() gin.HandlerFunc {
	return middleware.AuthMiddleware(h.Auth.JWT(), types.RoleWorker)
}

func (h *Handler) anyRole() gin.HandlerFunc {
	return middleware.AuthMiddleware(h.Auth.JWT(), "")
}

// principal returns the authenticated caller. The auth middleware guarantees one
// is present on every route that calls this.
func principal(c *gin.Context) types.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

// respondError writes the envelope for a service error. Unexpected failures are
// logged and, outside production, their cause is echoed in "error".
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := types.HTTPStatus(err)
	body := gin.H{
		"success": false,
		"message": types.PublicMessage(err, fallback),
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("❌ "+fallback,
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		if !h.Production {
			body["error"] = err.Error()
		}
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func (h *Handler) respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": middleware.ValidationMessage(err),
	})
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}
