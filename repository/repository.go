// Package repository defines persistence for the marketplace. Services depend on
// Store; the GORM implementation backs production and repository/memstore
// backs tests and STORE_BACKEND=memory.
package repository

import (
	"context"
	"errors"
	"time"

	"snapfix-server/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// WorkerFilter narrows worker listings. Empty fields are ignored.
type WorkerFilter struct {
	Category      string
	Pincode       string
	AvailableOnly bool
	Limit         int
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type WorkerRepository interface {
	Create(ctx context.Context, worker *models.Worker) error
	GetByID(ctx context.Context, id uint) (*models.Worker, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Worker, error)
	GetByPhone(ctx context.Context, phone string) (*models.Worker, error)
	GetByUsername(ctx context.Context, username string) (*models.Worker, error)
	// UpdateProfile writes the worker-editable columns only. Counters and
	// rating aggregates are left untouched.
	UpdateProfile(ctx context.Context, worker *models.Worker) error
	UpdateRating(ctx context.Context, id uint, rating float64, totalRatings int) error
	// List returns matching workers ordered by rating desc, then completed jobs desc.
	List(ctx context.Context, filter WorkerFilter) ([]models.Worker, error)
	// ListRates returns hourly prices of available workers offering category within [min, max].
	ListRates(ctx context.Context, category string, min, max float64) ([]float64, error)
	IncrementCompletedJobs(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	// ListByUser and ListByWorker return newest first.
	ListByUser(ctx context.Context, userID uint) ([]models.Booking, error)
	ListByWorker(ctx context.Context, workerID uint, status models.BookingStatus) ([]models.Booking, error)
}

type PaymentRepository interface {
	// Create returns ErrDuplicate when the booking already has a payment.
	Create(ctx context.Context, payment *models.Payment) error
	GetByBooking(ctx context.Context, bookingID uint) (*models.Payment, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Payment, error)
	BookingsWithPayment(ctx context.Context, bookingIDs []uint) (map[uint]bool, error)
}

type FeedbackRepository interface {
	// Create returns ErrDuplicate when the booking already has feedback.
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByBooking(ctx context.Context, bookingID uint) (*models.Feedback, error)
	ListByWorker(ctx context.Context, workerID uint, limit int) ([]models.Feedback, error)
	BookingsWithFeedback(ctx context.Context, bookingIDs []uint) (map[uint]bool, error)
}

type OTPRepository interface {
	Create(ctx context.Context, session *models.OTPSession) error
	DeleteForPhone(ctx context.Context, phone, purpose string) error
	// LatestActive returns the newest unverified session that has not expired at now.
	LatestActive(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPSession, error)
	MarkVerified(ctx context.Context, id uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PincodeRepository interface {
	// GetActive returns the cached entry only if it expires after now.
	GetActive(ctx context.Context, pincode string, now time.Time) (*models.PincodeCache, error)
	// Upsert inserts or replaces the entry keyed by pincode.
	Upsert(ctx context.Context, entry *models.PincodeCache) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store groups the repositories and runs multi-row changes atomically.
type Store interface {
	Users() UserRepository
	Workers() WorkerRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Feedback() FeedbackRepository
	OTPs() OTPRepository
	Pincodes() PincodeRepository

	// Transaction runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
