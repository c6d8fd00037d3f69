package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/config"
	"snapfix-server/models"
	"snapfix-server/repository/memstore"
	"snapfix-server/types"
)

// fixedCodeSender accepts a single known code for every phone.
type fixedCodeSender struct {
	code string
	sent []string
}

func (f *fixedCodeSender) Send(_ context.Context, phone string) (*OTPChallenge, error) {
	f.sent = append(f.sent, phone)
	return &OTPChallenge{Provider: models.OTPProviderLocal, SessionID: "session-" + phone}, nil
}

func (f *fixedCodeSender) Verify(_ context.Context, _ *models.OTPSession, code string) (bool, error) {
	return code == f.code, nil
}

func newAuthFixture() (*AuthService, *fixedCodeSender, *memstore.Store) {
	store := memstore.New()
	sender := &fixedCodeSender{code: "123456"}
	jwtSvc := NewJWTService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
	return NewAuthService(store, sender, jwtSvc, 10*time.Minute, zap.NewNop()), sender, store
}

func TestCustomerOTPFlow(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newAuthFixture()

	err := svc.SendOTP(ctx, "12345", models.OTPPurposeCustomer)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	require.NoError(t, svc.SendOTP(ctx, "+91 98765 43210", models.OTPPurposeCustomer))
	assert.Equal(t, []string{"9876543210"}, sender.sent)

	_, err = svc.VerifyCustomerOTP(ctx, "9876543210", "000000")
	assert.Equal(t, "Invalid or expired OTP", types.PublicMessage(err, ""))

	first, err := svc.VerifyCustomerOTP(ctx, "9876543210", "123456")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, "India", first.User.Country)

	p, err := svc.JWT().ValidateToken(first.Token)
	require.NoError(t, err)
	assert.Equal(t, types.Principal{ID: first.User.ID, Role: types.RoleCustomer}, p)

	// The session is spent once verified.
	_, err = svc.VerifyCustomerOTP(ctx, "9876543210", "123456")
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	require.NoError(t, svc.SendOTP(ctx, "9876543210", models.OTPPurposeCustomer))
	again, err := svc.VerifyCustomerOTP(ctx, "9876543210", "123456")
	require.NoError(t, err)
	assert.False(t, again.IsNew)
	assert.Equal(t, first.User.ID, again.User.ID)
}

func TestOTPPurposesAreSeparate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()

	require.NoError(t, svc.SendOTP(ctx, "9876543210", models.OTPPurposeCustomer))
	_, err := svc.VerifyWorkerOTP(ctx, "9876543210", "123456")
	assert.Equal(t, "Invalid OTP. Please request a new one.", types.PublicMessage(err, ""))
}

func TestOTPExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()
	require.NoError(t, svc.SendOTP(ctx, "9876543210", models.OTPPurposeCustomer))

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err := svc.VerifyCustomerOTP(ctx, "9876543210", "123456")
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestWorkerOTPCreatesBlankProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()
	require.NoError(t, svc.SendOTP(ctx, "9876543211", models.OTPPurposeWorker))

	got, err := svc.VerifyWorkerOTP(ctx, "9876543211", "123456")
	require.NoError(t, err)
	assert.True(t, got.IsNew)
	w := got.Worker
	assert.Regexp(t, `^WRK[0-9]{13}[A-Z]{4}$`, w.WorkerCode)
	assert.Equal(t, "Electrician", w.ServiceCategory)
	assert.Equal(t, 0.0, w.PricePerHour)
	assert.False(t, w.IsProfileComplete)
	assert.True(t, w.Availability)

	p, err := svc.JWT().ValidateToken(got.Token)
	require.NoError(t, err)
	assert.True(t, p.IsWorker())
}

func TestWorkerPasswordAuth(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture()

	reg, err := svc.RegisterWorker(ctx, models.WorkerRegisterRequest{
		Phone: "9876543212", Username: " Suresh_P ", Password: "s3cret!", Name: "Suresh Patel",
	})
	require.NoError(t, err)
	require.NotNil(t, reg.Worker.Username)
	assert.Equal(t, "suresh_p", *reg.Worker.Username)
	assert.NotEmpty(t, reg.Worker.PasswordHash)

	_, err = svc.RegisterWorker(ctx, models.WorkerRegisterRequest{Phone: "9876543212", Username: "other", Password: "s3cret!"})
	assert.Equal(t, types.KindConflict, types.KindOf(err))
	_, err = svc.RegisterWorker(ctx, models.WorkerRegisterRequest{Phone: "9876543219", Username: "SURESH_P", Password: "s3cret!"})
	assert.Equal(t, types.KindConflict, types.KindOf(err))

	byName, err := svc.LoginWorker(ctx, models.WorkerLoginRequest{Identifier: "Suresh_P", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, reg.Worker.ID, byName.Worker.ID)

	byPhone, err := svc.LoginWorker(ctx, models.WorkerLoginRequest{Phone: "9876543212", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, reg.Worker.ID, byPhone.Worker.ID)

	_, err = svc.LoginWorker(ctx, models.WorkerLoginRequest{Username: "suresh_p", Password: "wrong"})
	assert.Equal(t, types.KindUnauthorized, types.KindOf(err))
	_, err = svc.LoginWorker(ctx, models.WorkerLoginRequest{Username: "nobody", Password: "s3cret!"})
	assert.Equal(t, types.KindUnauthorized, types.KindOf(err))
}

func TestJWTRejectsForeignTokens(t *testing.T) {
	a := NewJWTService(config.JWTConfig{Secret: "a", ExpiryHours: 1})
	b := NewJWTService(config.JWTConfig{Secret: "b", ExpiryHours: 1})

	token, err := a.GenerateToken(types.Principal{ID: 7, Role: types.RoleWorker})
	require.NoError(t, err)
	_, err = b.ValidateToken(token)
	assert.Error(t, err)

	expired := NewJWTService(config.JWTConfig{Secret: "a", ExpiryHours: 1})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(types.Principal{ID: 7, Role: types.RoleWorker})
	require.NoError(t, err)
	_, err = a.ValidateToken(old)
	assert.Error(t, err)

	_, err = a.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestTwoFactorClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/key/SMS/+919876543210/AUTOGEN":
			w.Write([]byte(`{"Status":"Success","Details":"sess-1"}`))
		case "/key/SMS/+919999999999/AUTOGEN":
			w.Write([]byte(`{"Status":"Error","Details":"Invalid Phone Number"}`))
		case "/key/SMS/VERIFY/sess-1/123456":
			w.Write([]byte(`{"Status":"Success","Details":"OTP Matched"}`))
		case "/key/SMS/VERIFY/sess-1/000000":
			w.Write([]byte(`{"Status":"Error","Details":"OTP Mismatch"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewTwoFactorClient(srv.URL+"/", "key", "91", time.Second)
	ctx := context.Background()

	challenge, err := client.Send(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, OTPChallenge{Provider: models.OTPProviderTwoFactor, SessionID: "sess-1"}, *challenge)

	_, err = client.Send(ctx, "9999999999")
	assert.Error(t, err)

	session := &models.OTPSession{SessionID: "sess-1"}
	ok, err := client.Verify(ctx, session, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Verify(ctx, session, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.Verify(ctx, &models.OTPSession{SessionID: "gone"}, "123456")
	assert.Error(t, err)
}

func TestLocalOTPSender(t *testing.T) {
	sender := NewLocalOTPSender(zap.NewNop())
	challenge, err := sender.Send(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, models.OTPProviderLocal, challenge.Provider)
	assert.NotEmpty(t, challenge.CodeHash)

	ok, err := sender.Verify(context.Background(), &models.OTPSession{CodeHash: challenge.CodeHash}, "not-the-code")
	require.NoError(t, err)
	assert.False(t, ok)
}
