package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapfix-server/middleware"
	"snapfix-server/models"
	"snapfix-server/repository/memstore"
	"snapfix-server/services"
)

type staticDirectory struct{}

func (staticDirectory) Lookup(_ context.Context, pincode string) (*models.PincodeData, error) {
	return &models.PincodeData{Pincode: pincode, City: "Pune", State: "Maharashtra", Country: "India"}, nil
}

func TestExpirationJobRun(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	now := time.Now()

	require.NoError(t, store.OTPs().Create(ctx, &models.OTPSession{
		Phone: "9123456780", Purpose: models.OTPPurposeCustomer, Provider: models.OTPProviderLocal,
		ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, store.OTPs().Create(ctx, &models.OTPSession{
		Phone: "9123456781", Purpose: models.OTPPurposeCustomer, Provider: models.OTPProviderLocal,
		ExpiresAt: now.Add(time.Hour),
	}))

	pincodes := services.NewPincodeService(services.NewMemoryPincodeCache(), store.Pincodes(), staticDirectory{}, time.Millisecond, zap.NewNop())
	_, err := pincodes.Resolve(ctx, "411001")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	limiter := middleware.NewRateLimiter(5, time.Minute)
	limiter.GetLimiter("192.0.2.1")

	job := NewExpirationJob(store, pincodes, zap.NewNop(), limiter)
	res := job.Run(ctx)

	assert.EqualValues(t, 1, res.OTPSessions)
	assert.EqualValues(t, 1, res.PincodeRows)
	assert.Equal(t, 1, res.PincodeMemory)
	assert.Zero(t, res.IdleRateLimits, "fresh limiters are kept")

	live, err := store.OTPs().LatestActive(ctx, "9123456781", models.OTPPurposeCustomer, now)
	require.NoError(t, err)
	assert.Equal(t, "9123456781", live.Phone)

	assert.Equal(t, ExpirationResult{}, job.Run(ctx))
}

func TestExpirationJobSchedule(t *testing.T) {
	job := NewExpirationJob(memstore.New(), nil, zap.NewNop())
	assert.Error(t, job.Start("every now and then"))

	job = NewExpirationJob(memstore.New(), nil, zap.NewNop())
	require.NoError(t, job.Start("@every 1h"))
	job.Stop()
}
