package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"snapfix-server/models"
)

// GormStore implements Store on top of a GORM handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository { return &gormUserRepo{db: s.db} }

func (s *GormStore) Workers() WorkerRepository { return &gormWorkerRepo{db: s.db} }

func (s *GormStore) Bookings() BookingRepository { return &gormBookingRepo{db: s.db} }

func (s *GormStore) Payments() PaymentRepository { return &gormPaymentRepo{db: s.db} }

func (s *GormStore) Feedback() FeedbackRepository { return &gormFeedbackRepo{db: s.db} }

func (s *GormStore) OTPs() OTPRepository { return &gormOTPRepo{db: s.db} }

func (s *GormStore) Pincodes() PincodeRepository { return &gormPincodeRepo{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

type gormUserRepo struct{ db *gorm.DB }

func (r *gormUserRepo) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepo) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

type gormWorkerRepo struct{ db *gorm.DB }

func (r *gormWorkerRepo) Create(ctx context.Context, worker *models.Worker) error {
	return translate(r.db.WithContext(ctx).Create(worker).Error)
}

func (r *gormWorkerRepo) GetByID(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

func (r *gormWorkerRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&worker, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

func (r *gormWorkerRepo) GetByPhone(ctx context.Context, phone string) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&worker).Error; err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

func (r *gormWorkerRepo) GetByUsername(ctx context.Context, username string) (*models.Worker, error) {
	var worker models.Worker
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&worker).Error; err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

var workerProfileColumns = []string{
	"name", "id_proof_number", "service_category", "services_provided", "skills",
	"price_per_hour", "experience", "availability",
	"location_pincode", "location_city", "location_state", "location_latitude", "location_longitude",
	"is_profile_complete", "updated_at",
}

func (r *gormWorkerRepo) UpdateProfile(ctx context.Context, worker *models.Worker) error {
	res := r.db.WithContext(ctx).
		Model(worker).
		Select(workerProfileColumns).
		Updates(worker)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWorkerRepo) UpdateRating(ctx context.Context, id uint, rating float64, totalRatings int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Worker{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":        rating,
			"total_ratings": totalRatings,
			"total_reviews": totalRatings,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWorkerRepo) filtered(ctx context.Context, filter WorkerFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Worker{})
	if filter.AvailableOnly {
		q = q.Where("availability = ?", true)
	}
	if filter.Category != "" {
		q = q.Where("(service_category = ? OR ? = ANY(services_provided))", filter.Category, filter.Category)
	}
	if filter.Pincode != "" {
		q = q.Where("location_pincode = ?", filter.Pincode)
	}
	return q
}

func (r *gormWorkerRepo) List(ctx context.Context, filter WorkerFilter) ([]models.Worker, error) {
	var workers []models.Worker
	q := r.filtered(ctx, filter).
		Order("rating DESC").
		Order("completed_jobs DESC").
		Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&workers).Error; err != nil {
		return nil, translate(err)
	}
	return workers, nil
}

func (r *gormWorkerRepo) ListRates(ctx context.Context, category string, min, max float64) ([]float64, error) {
	var prices []float64
	err := r.filtered(ctx, WorkerFilter{Category: category, AvailableOnly: true}).
		Where("price_per_hour BETWEEN ? AND ?", min, max).
		Order("price_per_hour ASC").
		Pluck("price_per_hour", &prices).Error
	if err != nil {
		return nil, translate(err)
	}
	return prices, nil
}

func (r *gormWorkerRepo) IncrementCompletedJobs(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Worker{}).
		Where("id = ?", id).
		UpdateColumn("completed_jobs", gorm.Expr("completed_jobs + 1"))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWorkerRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Worker{}).Count(&n).Error
	return n, translate(err)
}

type gormBookingRepo struct{ db *gorm.DB }

func (r *gormBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	return translate(r.db.WithContext(ctx).Create(booking).Error)
}

func (r *gormBookingRepo) GetByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *gormBookingRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *gormBookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	return translate(r.db.WithContext(ctx).Save(booking).Error)
}

func (r *gormBookingRepo) ListByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (r *gormBookingRepo) ListByWorker(ctx context.Context, workerID uint, status models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("worker_id = ?", workerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&bookings).Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

type gormPaymentRepo struct{ db *gorm.DB }

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *gormPaymentRepo) GetByBooking(ctx context.Context, bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *gormPaymentRepo) ListByUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, translate(err)
	}
	return payments, nil
}

func (r *gormPaymentRepo) BookingsWithPayment(ctx context.Context, bookingIDs []uint) (map[uint]bool, error) {
	return bookingIDSet(r.db.WithContext(ctx).Model(&models.Payment{}), bookingIDs)
}

type gormFeedbackRepo struct{ db *gorm.DB }

func (r *gormFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	return translate(r.db.WithContext(ctx).Create(feedback).Error)
}

func (r *gormFeedbackRepo) GetByBooking(ctx context.Context, bookingID uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&feedback).Error; err != nil {
		return nil, translate(err)
	}
	return &feedback, nil
}

func (r *gormFeedbackRepo) ListByWorker(ctx context.Context, workerID uint, limit int) ([]models.Feedback, error) {
	var feedback []models.Feedback
	q := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&feedback).Error; err != nil {
		return nil, translate(err)
	}
	return feedback, nil
}

func (r *gormFeedbackRepo) BookingsWithFeedback(ctx context.Context, bookingIDs []uint) (map[uint]bool, error) {
	return bookingIDSet(r.db.WithContext(ctx).Model(&models.Feedback{}), bookingIDs)
}

func bookingIDSet(q *gorm.DB, bookingIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return set, nil
	}
	var found []uint
	if err := q.Where("booking_id IN ?", bookingIDs).Pluck("booking_id", &found).Error; err != nil {
		return nil, translate(err)
	}
	for _, id := range found {
		set[id] = true
	}
	return set, nil
}

type gormOTPRepo struct{ db *gorm.DB }

func (r *gormOTPRepo) Create(ctx context.Context, session *models.OTPSession) error {
	return translate(r.db.WithContext(ctx).Create(session).Error)
}

func (r *gormOTPRepo) DeleteForPhone(ctx context.Context, phone, purpose string) error {
	err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ?", phone, purpose).
		Delete(&models.OTPSession{}).Error
	return translate(err)
}

func (r *gormOTPRepo) LatestActive(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPSession, error) {
	var session models.OTPSession
	err := r.db.WithContext(ctx).
		Where("phone = ? AND purpose = ? AND verified = ? AND expires_at > ?", phone, purpose, false, now).
		Order("created_at DESC").
		Order("id DESC").
		First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *gormOTPRepo) MarkVerified(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.OTPSession{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormOTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.OTPSession{})
	return res.RowsAffected, translate(res.Error)
}

type gormPincodeRepo struct{ db *gorm.DB }

func (r *gormPincodeRepo) GetActive(ctx context.Context, pincode string, now time.Time) (*models.PincodeCache, error) {
	var entry models.PincodeCache
	err := r.db.WithContext(ctx).
		Where("pincode = ? AND expires_at > ?", pincode, now).
		First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *gormPincodeRepo) Upsert(ctx context.Context, entry *models.PincodeCache) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pincode"}},
			DoUpdates: clause.AssignmentColumns([]string{"city", "state", "country", "expires_at", "updated_at"}),
		}).
		Create(entry).Error
	return translate(err)
}

func (r *gormPincodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.PincodeCache{})
	return res.RowsAffected, translate(res.Error)
}
