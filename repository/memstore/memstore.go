// Package memstore is an in-process repository.Store. It enforces the same
// unique keys as the Postgres schema. A transaction holds the store lock
// until it returns, so other readers and writers wait for it, and rolls back
// by restoring a snapshot when the callback fails.
package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/lib/pq"

	"snapfix-server/models"
	"snapfix-server/repository"
)

type tables struct {
	users    map[uint]models.User
	workers  map[uint]models.Worker
	bookings map[uint]models.Booking
	payments map[uint]models.Payment
	feedback map[uint]models.Feedback
	otps     map[uint]models.OTPSession
	pincodes map[string]models.PincodeCache
	seq      uint
}

func newTables() *tables {
	return &tables{
		users:    make(map[uint]models.User),
		workers:  make(map[uint]models.Worker),
		bookings: make(map[uint]models.Booking),
		payments: make(map[uint]models.Payment),
		feedback: make(map[uint]models.Feedback),
		otps:     make(map[uint]models.OTPSession),
		pincodes: make(map[string]models.PincodeCache),
	}
}

// clone copies the maps. Stored values never share mutable slices, so a
// shallow copy of each map is a full snapshot.
func (t *tables) clone() *tables {
	return &tables{
		users:    maps.Clone(t.users),
		workers:  maps.Clone(t.workers),
		bookings: maps.Clone(t.bookings),
		payments: maps.Clone(t.payments),
		feedback: maps.Clone(t.feedback),
		otps:     maps.Clone(t.otps),
		pincodes: maps.Clone(t.pincodes),
		seq:      t.seq,
	}
}

func (t *tables) nextID() uint {
	t.seq++
	return t.seq
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	data *tables
	now  func() time.Time
	// inTx is set on the view handed to a transaction callback, which
	// already owns mu.
	inTx bool
}

func New() *Store {
	return &Store{mu: new(sync.Mutex), data: newTables(), now: time.Now}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Workers() repository.WorkerRepository { return workerRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s} }
func (s *Store) Payments() repository.PaymentRepository { return paymentRepo{s} }
func (s *Store) Feedback() repository.FeedbackRepository { return feedbackRepo{s} }
func (s *Store) OTPs() repository.OTPRepository { return otpRepo{s} }
func (s *Store) Pincodes() repository.PincodeRepository { return pincodeRepo{s} }

// Transaction runs fn with the store locked. The callback must use the tx
// handle; calling the outer store from inside fn deadlocks.
func (s *Store) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, now: s.now, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) lock() *tables {
	if !s.inTx {
		s.mu.Lock()
	}
	return s.data
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func cloneStrings(a pq.StringArray) pq.StringArray {
	if a == nil {
		return nil
	}
	return slices.Clone(a)
}

func copyWorker(w models.Worker) models.Worker {
	w.ServicesProvided = cloneStrings(w.ServicesProvided)
	w.Skills = cloneStrings(w.Skills)
	if w.Username != nil {
		u := *w.Username
		w.Username = &u
	}
	return w
}

func copyBooking(b models.Booking) models.Booking {
	b.Images = cloneStrings(b.Images)
	if b.CompletionInitiatedBy != nil {
		a := *b.CompletionInitiatedBy
		b.CompletionInitiatedBy = &a
	}
	return b
}

// newestFirst orders by creation time descending with id as tie-breaker.
func newestFirst(aCreated time.Time, aID uint, bCreated time.Time, bID uint) int {
	if c := bCreated.Compare(aCreated); c != 0 {
		return c
	}
	return cmp.Compare(bID, aID)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	t := r.s.lock()
	defer r.s.unlock()
	for _, u := range t.users {
		if u.Phone == user.Phone {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	user.ID = t.nextID()
	user.CreatedAt, user.UpdatedAt = now, now
	t.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	t := r.s.lock()
	defer r.s.unlock()
	u, ok := t.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	t := r.s.lock()
	defer r.s.unlock()
	for _, u := range t.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Update(_ context.Context, user *models.User) error {
	t := r.s.lock()
	defer r.s.unlock()
	if _, ok := t.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, u := range t.users {
		if id != user.ID && u.Phone == user.Phone {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = r.s.now()
	t.users[user.ID] = *user
	return nil
}

type workerRepo struct{ s *Store }

func workerConflicts(t *tables, w *models.Worker) bool {
	for id, existing := range t.workers {
		if id == w.ID {
			continue
		}
		if existing.Phone == w.Phone || existing.WorkerCode == w.WorkerCode {
			return true
		}
		if w.Username != nil && existing.Username != nil && *existing.Username == *w.Username {
			return true
		}
	}
	return false
}

func (r workerRepo) Create(_ context.Context, worker *models.Worker) error {
	t := r.s.lock()
	defer r.s.unlock()
	if workerConflicts(t, worker) {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	worker.ID = t.nextID()
	worker.CreatedAt, worker.UpdatedAt = now, now
	t.workers[worker.ID] = copyWorker(*worker)
	return nil
}

func (r workerRepo) GetByID(_ context.Context, id uint) (*models.Worker, error) {
	t := r.s.lock()
	defer r.s.unlock()
	w, ok := t.workers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	w = copyWorker(w)
	return &w, nil
}

// GetByIDForUpdate relies on Transaction serializing callers.
func (r workerRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Worker, error) {
	return r.GetByID(ctx, id)
}

func (r workerRepo) find(match func(models.Worker) bool) (*models.Worker, error) {
	t := r.s.lock()
	defer r.s.unlock()
	for _, w := range t.workers {
		if match(w) {
			w = copyWorker(w)
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r workerRepo) GetByPhone(_ context.Context, phone string) (*models.Worker, error) {
	return r.find(func(w models.Worker) bool { return w.Phone == phone })
}

func (r workerRepo) GetByUsername(_ context.Context, username string) (*models.Worker, error) {
	return r.find(func(w models.Worker) bool { return w.Username != nil && *w.Username == username })
}

func (r workerRepo) UpdateProfile(_ context.Context, worker *models.Worker) error {
	t := r.s.lock()
	defer r.s.unlock()
	w, ok := t.workers[worker.ID]
	if !ok {
		return repository.ErrNotFound
	}
	w.Name = worker.Name
	w.IDProofNumber = worker.IDProofNumber
	w.ServiceCategory = worker.ServiceCategory
	w.ServicesProvided = cloneStrings(worker.ServicesProvided)
	w.Skills = cloneStrings(worker.Skills)
	w.PricePerHour = worker.PricePerHour
	w.Experience = worker.Experience
	w.Availability = worker.Availability
	w.Location = worker.Location
	w.IsProfileComplete = worker.IsProfileComplete
	w.UpdatedAt = r.s.now()
	worker.UpdatedAt = w.UpdatedAt
	t.workers[w.ID] = w
	return nil
}

func (r workerRepo) UpdateRating(_ context.Context, id uint, rating float64, totalRatings int) error {
	t := r.s.lock()
	defer r.s.unlock()
	w, ok := t.workers[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Rating = rating
	w.TotalRatings = totalRatings
	w.TotalReviews = totalRatings
	w.UpdatedAt = r.s.now()
	t.workers[id] = w
	return nil
}

func matchesFilter(w models.Worker, f repository.WorkerFilter) bool {
	if f.AvailableOnly && !w.Availability {
		return false
	}
	if f.Category != "" && !w.HandlesCategory(f.Category) {
		return false
	}
	if f.Pincode != "" && w.Location.Pincode != f.Pincode {
		return false
	}
	return true
}

func (r workerRepo) List(_ context.Context, filter repository.WorkerFilter) ([]models.Worker, error) {
	t := r.s.lock()
	defer r.s.unlock()
	out := make([]models.Worker, 0)
	for _, w := range t.workers {
		if matchesFilter(w, filter) {
			out = append(out, copyWorker(w))
		}
	}
	slices.SortFunc(out, func(a, b models.Worker) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CompletedJobs, a.CompletedJobs); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r workerRepo) ListRates(_ context.Context, category string, min, max float64) ([]float64, error) {
	t := r.s.lock()
	defer r.s.unlock()
	filter := repository.WorkerFilter{Category: category, AvailableOnly: true}
	prices := make([]float64, 0)
	for _, w := range t.workers {
		if matchesFilter(w, filter) && w.PricePerHour >= min && w.PricePerHour <= max {
			prices = append(prices, w.PricePerHour)
		}
	}
	slices.Sort(prices)
	return prices, nil
}

func (r workerRepo) IncrementCompletedJobs(_ context.Context, id uint) error {
	t := r.s.lock()
	defer r.s.unlock()
	w, ok := t.workers[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.CompletedJobs++
	t.workers[id] = w
	return nil
}

func (r workerRepo) Count(_ context.Context) (int64, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return int64(len(t.workers)), nil
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(_ context.Context, booking *models.Booking) error {
	t := r.s.lock()
	defer r.s.unlock()
	now := r.s.now()
	booking.ID = t.nextID()
	booking.CreatedAt, booking.UpdatedAt = now, now
	t.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r bookingRepo) GetByID(_ context.Context, id uint) (*models.Booking, error) {
	t := r.s.lock()
	defer r.s.unlock()
	b, ok := t.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b = copyBooking(b)
	return &b, nil
}

func (r bookingRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r bookingRepo) Update(_ context.Context, booking *models.Booking) error {
	t := r.s.lock()
	defer r.s.unlock()
	if _, ok := t.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	booking.UpdatedAt = r.s.now()
	t.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r bookingRepo) list(match func(models.Booking) bool) []models.Booking {
	t := r.s.lock()
	defer r.s.unlock()
	out := make([]models.Booking, 0)
	for _, b := range t.bookings {
		if match(b) {
			out = append(out, copyBooking(b))
		}
	}
	slices.SortFunc(out, func(a, b models.Booking) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return out
}

func (r bookingRepo) ListByUser(_ context.Context, userID uint) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool { return b.UserID == userID }), nil
}

func (r bookingRepo) ListByWorker(_ context.Context, workerID uint, status models.BookingStatus) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool {
		return b.WorkerID == workerID && (status == "" || b.Status == status)
	}), nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, payment *models.Payment) error {
	t := r.s.lock()
	defer r.s.unlock()
	for _, p := range t.payments {
		if p.BookingID == payment.BookingID || p.TransactionID == payment.TransactionID {
			return repository.ErrDuplicate
		}
	}
	payment.ID = t.nextID()
	payment.CreatedAt = r.s.now()
	t.payments[payment.ID] = *payment
	return nil
}

func (r paymentRepo) GetByBooking(_ context.Context, bookingID uint) (*models.Payment, error) {
	t := r.s.lock()
	defer r.s.unlock()
	for _, p := range t.payments {
		if p.BookingID == bookingID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r paymentRepo) ListByUser(_ context.Context, userID uint) ([]models.Payment, error) {
	t := r.s.lock()
	defer r.s.unlock()
	out := make([]models.Payment, 0)
	for _, p := range t.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Payment) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return out, nil
}

func (r paymentRepo) BookingsWithPayment(_ context.Context, bookingIDs []uint) (map[uint]bool, error) {
	t := r.s.lock()
	defer r.s.unlock()
	set := make(map[uint]bool, len(bookingIDs))
	for _, p := range t.payments {
		if slices.Contains(bookingIDs, p.BookingID) {
			set[p.BookingID] = true
		}
	}
	return set, nil
}

type feedbackRepo struct{ s *Store }

func (r feedbackRepo) Create(_ context.Context, feedback *models.Feedback) error {
	t := r.s.lock()
	defer r.s.unlock()
	for _, f := range t.feedback {
		if f.BookingID == feedback.BookingID {
			return repository.ErrDuplicate
		}
	}
	feedback.ID = t.nextID()
	feedback.CreatedAt = r.s.now()
	t.feedback[feedback.ID] = *feedback
	return nil
}

func (r feedbackRepo) GetByBooking(_ context.Context, bookingID uint) (*models.Feedback, error) {
	t := r.s.lock()
	defer r.s.unlock()
	for _, f := range t.feedback {
		if f.BookingID == bookingID {
			return &f, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r feedbackRepo) ListByWorker(_ context.Context, workerID uint, limit int) ([]models.Feedback, error) {
	t := r.s.lock()
	defer r.s.unlock()
	out := make([]models.Feedback, 0)
	for _, f := range t.feedback {
		if f.WorkerID == workerID {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b models.Feedback) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r feedbackRepo) BookingsWithFeedback(_ context.Context, bookingIDs []uint) (map[uint]bool, error) {
	t := r.s.lock()
	defer r.s.unlock()
	set := make(map[uint]bool, len(bookingIDs))
	for _, f := range t.feedback {
		if slices.Contains(bookingIDs, f.BookingID) {
			set[f.BookingID] = true
		}
	}
	return set, nil
}

type otpRepo struct{ s *Store }

func (r otpRepo) Create(_ context.Context, session *models.OTPSession) error {
	t := r.s.lock()
	defer r.s.unlock()
	session.ID = t.nextID()
	session.CreatedAt = r.s.now()
	t.otps[session.ID] = *session
	return nil
}

func (r otpRepo) DeleteForPhone(_ context.Context, phone, purpose string) error {
	t := r.s.lock()
	defer r.s.unlock()
	for id, o := range t.otps {
		if o.Phone == phone && o.Purpose == purpose {
			delete(t.otps, id)
		}
	}
	return nil
}

func (r otpRepo) LatestActive(_ context.Context, phone, purpose string, now time.Time) (*models.OTPSession, error) {
	t := r.s.lock()
	defer r.s.unlock()
	var best *models.OTPSession
	for _, o := range t.otps {
		if o.Phone != phone || o.Purpose != purpose || o.Verified || !o.ExpiresAt.After(now) {
			continue
		}
		if best == nil || newestFirst(o.CreatedAt, o.ID, best.CreatedAt, best.ID) < 0 {
			best = &o
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r otpRepo) MarkVerified(_ context.Context, id uint) error {
	t := r.s.lock()
	defer r.s.unlock()
	o, ok := t.otps[id]
	if !ok || o.Verified {
		return repository.ErrNotFound
	}
	o.Verified = true
	t.otps[id] = o
	return nil
}

func (r otpRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	t := r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, o := range t.otps {
		if !o.ExpiresAt.After(now) {
			delete(t.otps, id)
			n++
		}
	}
	return n, nil
}

type pincodeRepo struct{ s *Store }

func (r pincodeRepo) GetActive(_ context.Context, pincode string, now time.Time) (*models.PincodeCache, error) {
	t := r.s.lock()
	defer r.s.unlock()
	e, ok := t.pincodes[pincode]
	if !ok || !e.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r pincodeRepo) Upsert(_ context.Context, entry *models.PincodeCache) error {
	t := r.s.lock()
	defer r.s.unlock()
	now := r.s.now()
	if existing, ok := t.pincodes[entry.Pincode]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.ID = t.nextID()
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	t.pincodes[entry.Pincode] = *entry
	return nil
}

func (r pincodeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	t := r.s.lock()
	defer r.s.unlock()
	var n int64
	for key, e := range t.pincodes {
		if !e.ExpiresAt.After(now) {
			delete(t.pincodes, key)
			n++
		}
	}
	return n, nil
}
