package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"snapfix-server/middleware"
	"snapfix-server/repository"
	"snapfix-server/services"
)

// limiterIdle is how long a client's rate limiter may sit unused before it is dropped.
const limiterIdle = time.Hour

// ExpirationResult counts what one sweep removed.
type ExpirationResult struct {
	OTPSessions    int64
	PincodeRows    int64
	PincodeMemory  int
	IdleRateLimits int
}

// ExpirationJob purges expired OTP sessions and pincode cache entries and
// forgets idle rate limiters.
type ExpirationJob struct {
	store    repository.Store
	pincodes *services.PincodeService
	limiters []*middleware.RateLimiter
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
}

// NewExpirationJob creates a new expiration job
func NewExpirationJob(store repository.Store, pincodes *services.PincodeService, log *zap.Logger, limiters ...*middleware.RateLimiter) *ExpirationJob {
	return &ExpirationJob{
		store:    store,
		pincodes: pincodes,
		limiters: limiters,
		cron:     cron.New(),
		now:      time.Now,
		log:      log.Named("jobs"),
	}
}

// Start schedules the sweep with a cron spec such as "@every 1h" or "0 * * * *".
func (j *ExpirationJob) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.Run(ctx)
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("🚀 Expiration job started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (j *ExpirationJob) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("🛑 Expiration job stopped")
}

// Run performs one sweep. Failures in one step do not prevent the others.
func (j *ExpirationJob) Run(ctx context.Context) ExpirationResult {
	now := j.now()
	var res ExpirationResult

	n, err := j.store.OTPs().DeleteExpired(ctx, now)
	if err != nil {
		j.log.Error("❌ Error purging OTP sessions", zap.Error(err))
	}
	res.OTPSessions = n

	n, err = j.store.Pincodes().DeleteExpired(ctx, now)
	if err != nil {
		j.log.Error("❌ Error purging pincode cache", zap.Error(err))
	}
	res.PincodeRows = n

	if j.pincodes != nil {
		res.PincodeMemory = j.pincodes.PruneMemory()
	}
	for _, rl := range j.limiters {
		res.IdleRateLimits += rl.Cleanup(limiterIdle)
	}

	if res != (ExpirationResult{}) {
		j.log.Info("⏰ Expired data purged",
			zap.Int64("otp_sessions", res.OTPSessions),
			zap.Int64("pincode_rows", res.PincodeRows),
			zap.Int("pincode_memory", res.PincodeMemory),
			zap.Int("rate_limiters", res.IdleRateLimits))
	}
	return res
}
