package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/config"
	"snapfix-server/middleware"
	"snapfix-server/models"
	"snapfix-server/repository/memstore"
	"snapfix-server/services"
	"snapfix-server/websocket"
)

const testOTP = "123456"

type acceptingSender struct{}

func (acceptingSender) Send(context.Context, string) (*services.OTPChallenge, error) {
	return &services.OTPChallenge{Provider: models.OTPProviderLocal}, nil
}

func (acceptingSender) Verify(_ context.Context, _ *models.OTPSession, code string) (bool, error) {
	return code == testOTP, nil
}

type countingDirectory struct{ calls atomic.Int32 }

func (d *countingDirectory) Lookup(_ context.Context, pincode string) (*models.PincodeData, error) {
	d.calls.Add(1)
	if pincode == "999999" {
		return nil, services.ErrPincodeNotFound
	}
	return &models.PincodeData{Pincode: pincode, City: "Bengaluru", State: "Karnataka", Country: "India"}, nil
}

type testServer struct {
	router    *gin.Engine
	directory *countingDirectory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	cat := catalog.Default()
	require.NoError(t, middleware.RegisterValidators(cat))

	store := memstore.New()
	media, err := services.NewLocalMediaStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	directory := &countingDirectory{}
	jwt := services.NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})

	h := &Handler{
		Catalog:          cat,
		Auth:             services.NewAuthService(store, acceptingSender{}, jwt, 10*time.Minute, log),
		Users:            services.NewUserService(store.Users()),
		Workers:          services.NewWorkerService(store, cat, log),
		Rates:            services.NewRateInsightsService(store.Workers(), cat),
		Bookings:         services.NewBookingService(store, cat, media, hub, log),
		Payments:         services.NewPaymentService(store, hub, log),
		Feedback:         services.NewFeedbackService(store, hub, log),
		Pincodes:         services.NewPincodeService(services.NewMemoryPincodeCache(), store.Pincodes(), directory, time.Hour, log),
		Hub:              hub,
		OTPSendLimiter:   middleware.NewRateLimiter(5, 10*time.Minute),
		OTPVerifyLimiter: middleware.NewRateLimiter(10, 10*time.Minute),
		UploadDir:        media.Dir(),
		Log:              log,
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Recovery(log))
	RegisterRoutes(router, h)
	return &testServer{router: router, directory: directory}
}

type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Source      string          `json:"source"`
	Count       int             `json:"count"`
	Token       string          `json:"token"`
	IsNewUser   bool            `json:"isNewUser"`
	IsNewWorker bool            `json:"isNewWorker"`
	Data        json.RawMessage `json:"data"`
	Pricing     json.RawMessage `json:"pricing"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req, token)
}

func (s *testServer) serve(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.1:4000"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func (s *testServer) customerToken(t *testing.T, phone string) string {
	t.Helper()
	code, _ := s.do(t, http.MethodPost, "/api/auth/send-otp", "", gin.H{"phone": phone})
	require.Equal(t, http.StatusOK, code)
	code, env := s.do(t, http.MethodPost, "/api/auth/verify-otp", "", gin.H{"phone": phone, "otp": testOTP})
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, env.Token)
	return env.Token
}

func (s *testServer) workerToken(t *testing.T, phone, username string) (string, models.Worker) {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/worker-auth/register", "", gin.H{
		"phone":    phone,
		"username": username,
		"password": "secret123",
		"name":     "Rajesh Kumar",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	require.True(t, env.IsNewWorker)

	code, env = s.do(t, http.MethodPost, "/api/worker/profile", env.Token, gin.H{
		"servicesProvided": []string{"Plumbing"},
		"pricePerHour":     500,
		"pincode":          "560001",
		"city":             "Bengaluru",
		"state":            "Karnataka",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, login := s.do(t, http.MethodPost, "/api/worker-auth/login", "", gin.H{"identifier": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var worker models.Worker
	decode(t, env.Data, &worker)
	return login.Token, worker
}

func bookingForm(t *testing.T, workerID uint, images int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"workerId":           strconv.FormatUint(uint64(workerID), 10),
		"serviceCategory":    "Plumbing",
		"problemType":        "Leaking tap",
		"description":        "Kitchen tap drips all night",
		"scheduledDate":      "2026-11-02",
		"scheduledTime":      "10:00 AM",
		"addressFullAddress": "12 MG Road",
		"addressPincode":     "560001",
		"addressCity":        "Bengaluru",
		"addressState":       "Karnataka",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < images; i++ {
		fw, err := mw.CreateFormFile("images", "tap"+strconv.Itoa(i)+".jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	customer := s.customerToken(t, "9123456780")
	workerTok, worker := s.workerToken(t, "9876543210", "rajesh")

	code, env := s.do(t, http.MethodGet, "/api/workers?category=Plumbing&pincode=560001", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.serve(t, bookingForm(t, worker.ID, 1), customer)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var booking models.Booking
	decode(t, env.Data, &booking)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	require.Len(t, booking.Images, 1)
	assert.Contains(t, booking.Images[0], "/uploads/")
	path := "/api/worker/bookings/" + strconv.FormatUint(uint64(booking.ID), 10)

	code, _ = s.do(t, http.MethodPut, path+"/start", workerTok, nil)
	assert.Equal(t, http.StatusBadRequest, code, "start before accepting")

	code, env = s.do(t, http.MethodPut, path+"/respond", workerTok, gin.H{"workerStatus": "Accepted"})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, env = s.do(t, http.MethodPut, path+"/respond", workerTok, gin.H{"workerStatus": "Rejected"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Booking already responded", env.Message)

	code, _ = s.do(t, http.MethodPut, path+"/start", workerTok, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPut, path+"/initiate-completion", workerTok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/api/payments", customer, gin.H{"bookingId": booking.ID, "hoursWorked": 1.5})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var payment models.Payment
	decode(t, env.Data, &payment)
	assert.InDelta(t, 750.0, payment.TotalAmount, 0.001)

	code, env = s.do(t, http.MethodPost, "/api/payments", customer, gin.H{"bookingId": booking.ID, "hoursWorked": 1.5})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Payment already processed for this booking", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/feedback", customer, gin.H{"bookingId": booking.ID, "rating": 4, "comment": "Quick fix"})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodGet, "/api/bookings/"+strconv.FormatUint(uint64(booking.ID), 10), workerTok, nil)
	require.Equal(t, http.StatusOK, code)
	var details models.BookingDetails
	decode(t, env.Data, &details)
	assert.Equal(t, models.BookingStatusCompleted, details.Status)
	assert.True(t, details.HasPaid)
	assert.True(t, details.HasFeedback)

	code, env = s.do(t, http.MethodGet, "/api/feedback/worker/"+strconv.FormatUint(uint64(worker.ID), 10), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Count)

	code, env = s.do(t, http.MethodGet, "/api/workers/"+strconv.FormatUint(uint64(worker.ID), 10), "", nil)
	require.Equal(t, http.StatusOK, code)
	var updated models.Worker
	decode(t, env.Data, &updated)
	assert.InDelta(t, 4.0, updated.Rating, 0.001)
	assert.Equal(t, 1, updated.CompletedJobs)
}

func TestBookingRejectsTooManyImages(t *testing.T) {
	s := newTestServer(t)
	customer := s.customerToken(t, "9123456780")
	_, worker := s.workerToken(t, "9876543210", "rajesh")

	code, env := s.serve(t, bookingForm(t, worker.ID, 4), customer)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "at most 3 images")
}

func TestAuthorizationBoundaries(t *testing.T) {
	s := newTestServer(t)
	customer := s.customerToken(t, "9123456780")
	workerTok, _ := s.workerToken(t, "9876543210", "rajesh")

	code, env := s.do(t, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/api/bookings", workerTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/worker/bookings", customer, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/bookings", customer, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Count)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/abc", customer, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCustomerProfile(t *testing.T) {
	s := newTestServer(t)
	customer := s.customerToken(t, "9123456780")

	code, env := s.do(t, http.MethodPost, "/api/profile", customer, gin.H{"fullName": "Priya", "pincode": "5600", "city": "Bengaluru", "state": "Karnataka"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid pincode. Must be 6 digits.", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/profile", customer, gin.H{"fullName": "Priya", "pincode": "560001", "city": "Bengaluru", "state": "Karnataka"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/profile", customer, nil)
	require.Equal(t, http.StatusOK, code)
	var user models.User
	decode(t, env.Data, &user)
	assert.True(t, user.IsProfileComplete)
	assert.Equal(t, "India", user.Country)
}

func TestServiceCatalog(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusOK, code)
	var cats []ServiceCategoryResponse
	decode(t, env.Data, &cats)
	require.NotEmpty(t, cats)
	assert.Equal(t, "Electrician", cats[0].Category)
	assert.Positive(t, cats[0].ProblemCount)

	code, _ = s.do(t, http.MethodGet, "/api/services/Plumbing/problems", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/services/Gardening/problems", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Service category not found", env.Message)
}

func TestRateInsightsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.workerToken(t, "9876543210", "rajesh")

	code, env := s.do(t, http.MethodGet, "/api/workers/rates/insights?category=Plumbing", "", nil)
	require.Equal(t, http.StatusOK, code)
	var insights services.RateInsights
	decode(t, env.Data, &insights)
	assert.Equal(t, 1, insights.SampleSize)
	assert.InDelta(t, 500.0, insights.RecommendedRate, 0.001)

	code, _ = s.do(t, http.MethodGet, "/api/workers/rates/insights", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPincodeLookupTiers(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/location/pincode/560001", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "indiaPost", env.Source)

	code, env = s.do(t, http.MethodGet, "/api/location/pincode/560001", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", env.Source)
	assert.EqualValues(t, 1, s.directory.calls.Load())

	code, _ = s.do(t, http.MethodGet, "/api/location/pincode/56000a", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/location/pincode/999999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Pincode not found.", env.Message)
}

func TestOTPSendIsRateLimited(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/auth/send-otp", "", gin.H{"phone": "9123456780"})
		require.Equal(t, http.StatusOK, code)
	}
	code, env := s.do(t, http.MethodPost, "/api/auth/send-otp", "", gin.H{"phone": "9123456780"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.False(t, env.Success)
}

func TestWorkerOTPCreatesAccount(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/worker-auth/send-otp", "", gin.H{"phone": "9988776655"})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodPost, "/api/worker-auth/verify-otp", "", gin.H{"phone": "9988776655", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid OTP. Please request a new one.", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/worker-auth/verify-otp", "", gin.H{"phone": "9988776655", "otp": testOTP})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.IsNewWorker)
	assert.NotEmpty(t, env.Token)
}
