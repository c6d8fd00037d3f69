package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"snapfix-server/catalog"
	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
)

// ImageUpload is one attached image awaiting storage.
type ImageUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// NewBooking carries the validated fields of a booking request.
type NewBooking struct {
	WorkerID        uint
	ServiceCategory string
	ProblemType     string
	Description     string
	ScheduledDate   time.Time
	ScheduledTime   string
	Address         models.BookingAddress
	Images          []ImageUpload
}

// ParseScheduledDate accepts a calendar date or an RFC 3339 timestamp.
func ParseScheduledDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, types.NewValidationError("scheduledDate must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

// BookingService owns the booking state machine.
type BookingService struct {
	store    repository.Store
	catalog  *catalog.Catalog
	media    MediaStore
	notifier Notifier
	log      *zap.Logger
}

func NewBookingService(store repository.Store, cat *catalog.Catalog, media MediaStore, notifier Notifier, log *zap.Logger) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		store:    store,
		catalog:  cat,
		media:    media,
		notifier: notifier,
		log:      log.Named("bookings"),
	}
}

func (s *BookingService) Create(ctx context.Context, p types.Principal, in NewBooking) (*models.Booking, error) {
	if !p.IsCustomer() {
		return nil, types.NewForbiddenError("Only customers can create bookings")
	}
	if !s.catalog.IsCategory(in.ServiceCategory) {
		return nil, types.NewValidationError("Invalid service category")
	}
	if len(in.Images) > MaxBookingImages {
		return nil, types.NewValidationError(fmt.Sprintf("A booking can have at most %d images", MaxBookingImages))
	}
	for _, img := range in.Images {
		if !AllowedImageExt(img.Filename) {
			return nil, types.NewValidationError("Only .jpg, .jpeg, .png and .webp images are allowed")
		}
		if img.Size <= 0 || img.Size > MaxImageBytes {
			return nil, types.NewValidationError("Each image must be at most 5MB")
		}
	}

	worker, err := s.store.Workers().GetByID(ctx, in.WorkerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Worker not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error creating booking", err)
	}
	if !worker.Availability {
		return nil, types.NewValidationError("Worker is not available")
	}

	images, err := s.storeImages(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:          p.ID,
		WorkerID:        worker.ID,
		ServiceCategory: in.ServiceCategory,
		ProblemType:     strings.TrimSpace(in.ProblemType),
		Description:     strings.TrimSpace(in.Description),
		Images:          images,
		ScheduledDate:   in.ScheduledDate,
		ScheduledTime:   in.ScheduledTime,
		Address:         in.Address,
		Status:          models.BookingStatusPending,
		WorkerStatus:    models.WorkerStatusPending,
	}
	if err := s.store.Bookings().Create(ctx, booking); err != nil {
		return nil, types.NewInternalError("Error creating booking", err)
	}

	s.log.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.Uint("user_id", p.ID),
		zap.Uint("worker_id", worker.ID))
	notifyWorker(s.notifier, worker.ID, Event{Type: EventBookingCreated, BookingID: booking.ID, Data: booking})
	return booking, nil
}

func (s *BookingService) storeImages(ctx context.Context, uploads []ImageUpload) (pq.StringArray, error) {
	urls := make(pq.StringArray, 0, len(uploads))
	for _, img := range uploads {
		if s.media == nil {
			return nil, types.NewInternalError("Image storage is not configured", nil)
		}
		rc, err := img.Open()
		if err != nil {
			return nil, types.NewValidationError("Could not read uploaded image")
		}
		url, err := s.media.Save(ctx, img.Filename, rc)
		rc.Close()
		if err != nil {
			return nil, types.NewUpstreamError("Image upload failed", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Get returns a booking visible to p, enriched for display.
func (s *BookingService) Get(ctx context.Context, p types.Principal, id uint) (*models.BookingDetails, error) {
	booking, err := s.load(ctx, s.store, id, false)
	if err != nil {
		return nil, err
	}
	if err := authorizeBooking(p, booking, ActionViewBooking); err != nil {
		return nil, err
	}
	details, err := s.enrich(ctx, []models.Booking{*booking}, true, true)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListForCustomer returns the customer's bookings, newest first.
func (s *BookingService) ListForCustomer(ctx context.Context, p types.Principal) ([]models.BookingDetails, error) {
	if !p.IsCustomer() {
		return nil, types.NewForbiddenError("Not authorized")
	}
	bookings, err := s.store.Bookings().ListByUser(ctx, p.ID)
	if err != nil {
		return nil, types.NewInternalError("Error fetching bookings", err)
	}
	return s.enrich(ctx, bookings, true, false)
}

// ListForWorker returns bookings assigned to the worker, optionally by status.
func (s *BookingService) ListForWorker(ctx context.Context, p types.Principal, status string) ([]models.BookingDetails, error) {
	if !p.IsWorker() {
		return nil, types.NewForbiddenError("Not authorized")
	}
	filter := models.BookingStatus(strings.TrimSpace(status))
	if filter != "" && !filter.Valid() {
		return nil, types.NewValidationError("Invalid status filter")
	}
	bookings, err := s.store.Bookings().ListByWorker(ctx, p.ID, filter)
	if err != nil {
		return nil, types.NewInternalError("Error fetching bookings", err)
	}
	return s.enrich(ctx, bookings, false, true)
}

// Cancel moves a non-terminal booking to Cancelled. Customers may request no
// other status.
func (s *BookingService) Cancel(ctx context.Context, p types.Principal, id uint, requested models.BookingStatus) (*models.Booking, error) {
	if requested != models.BookingStatusCancelled {
		return nil, types.NewInvalidTransitionError("Customers can only cancel bookings")
	}
	booking, err := s.transition(ctx, p, id, ActionCancelBooking, func(_ repository.Store, b *models.Booking) error {
		if b.Status.IsTerminal() {
			return types.NewInvalidTransitionError(fmt.Sprintf("Cannot cancel a booking that is %s", b.Status))
		}
		b.Status = models.BookingStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	notifyWorker(s.notifier, booking.WorkerID, Event{Type: EventBookingCancelled, BookingID: booking.ID, Data: booking})
	return booking, nil
}

// Respond records the worker's one-time accept or reject decision.
func (s *BookingService) Respond(ctx context.Context, p types.Principal, id uint, decision models.WorkerStatus) (*models.Booking, error) {
	if decision != models.WorkerStatusAccepted && decision != models.WorkerStatusRejected {
		return nil, types.NewValidationError("workerStatus must be Accepted or Rejected")
	}
	booking, err := s.transition(ctx, p, id, ActionRespondBooking, func(_ repository.Store, b *models.Booking) error {
		if b.WorkerStatus != models.WorkerStatusPending || b.Status != models.BookingStatusPending {
			return types.NewInvalidTransitionError("Booking already responded")
		}
		b.WorkerStatus = decision
		if decision == models.WorkerStatusAccepted {
			b.Status = models.BookingStatusAccepted
		} else {
			b.Status = models.BookingStatusRejected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	notifyCustomer(s.notifier, booking.UserID, Event{Type: EventBookingUpdated, BookingID: booking.ID, Data: booking})
	return booking, nil
}

func (s *BookingService) Start(ctx context.Context, p types.Principal, id uint) (*models.Booking, error) {
	booking, err := s.transition(ctx, p, id, ActionStartBooking, func(_ repository.Store, b *models.Booking) error {
		if b.WorkerStatus != models.WorkerStatusAccepted || b.Status != models.BookingStatusAccepted {
			return types.NewInvalidTransitionError("Booking must be accepted before starting")
		}
		b.Status = models.BookingStatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}
	notifyCustomer(s.notifier, booking.UserID, Event{Type: EventBookingUpdated, BookingID: booking.ID, Data: booking})
	return booking, nil
}

// InitiateCompletion completes an active booking and credits the worker's
// completed job count in the same transaction.
func (s *BookingService) InitiateCompletion(ctx context.Context, p types.Principal, id uint) (*models.Booking, error) {
	booking, err := s.transition(ctx, p, id, ActionCompleteBooking, func(tx repository.Store, b *models.Booking) error {
		if b.Status != models.BookingStatusAccepted && b.Status != models.BookingStatusInProgress {
			return types.NewInvalidTransitionError("Only active bookings can be completed")
		}
		actor := models.CompletionByWorker
		b.Status = models.BookingStatusCompleted
		b.CompletionInitiatedBy = &actor
		if err := tx.Workers().IncrementCompletedJobs(ctx, b.WorkerID); err != nil {
			return types.NewInternalError("Error updating worker", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	notifyCustomer(s.notifier, booking.UserID, Event{Type: EventBookingUpdated, BookingID: booking.ID, Data: booking})
	return booking, nil
}

// transition loads and locks the booking, checks the actor, applies mutate
// and saves, all inside one transaction.
func (s *BookingService) transition(ctx context.Context, p types.Principal, id uint, action BookingAction, mutate func(tx repository.Store, b *models.Booking) error) (*models.Booking, error) {
	var out *models.Booking
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := s.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := authorizeBooking(p, booking, action); err != nil {
			return err
		}
		from := booking.Status
		if err := mutate(tx, booking); err != nil {
			return err
		}
		if err := tx.Bookings().Update(ctx, booking); err != nil {
			return types.NewInternalError("Error updating booking", err)
		}
		s.log.Info("booking transition",
			zap.Uint("booking_id", booking.ID),
			zap.String("action", string(action)),
			zap.String("from", string(from)),
			zap.String("to", string(booking.Status)))
		out = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) load(ctx context.Context, store repository.Store, id uint, forUpdate bool) (*models.Booking, error) {
	var (
		booking *models.Booking
		err     error
	)
	if forUpdate {
		booking, err = store.Bookings().GetByIDForUpdate(ctx, id)
	} else {
		booking, err = store.Bookings().GetByID(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Booking not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching booking", err)
	}
	return booking, nil
}

// enrich attaches payment and feedback flags plus the counterparty summaries.
func (s *BookingService) enrich(ctx context.Context, bookings []models.Booking, withWorker, withCustomer bool) ([]models.BookingDetails, error) {
	out := make([]models.BookingDetails, 0, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	ids := make([]uint, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	paid, err := s.store.Payments().BookingsWithPayment(ctx, ids)
	if err != nil {
		return nil, types.NewInternalError("Error fetching bookings", err)
	}
	reviewed, err := s.store.Feedback().BookingsWithFeedback(ctx, ids)
	if err != nil {
		return nil, types.NewInternalError("Error fetching bookings", err)
	}

	workers := map[uint]*models.WorkerSummary{}
	customers := map[uint]*models.CustomerSummary{}
	for _, b := range bookings {
		d := models.BookingDetails{Booking: b, HasPaid: paid[b.ID], HasFeedback: reviewed[b.ID]}
		if withWorker {
			if _, ok := workers[b.WorkerID]; !ok {
				if w, err := s.store.Workers().GetByID(ctx, b.WorkerID); err == nil {
					workers[b.WorkerID] = w.Summary()
				} else if !errors.Is(err, repository.ErrNotFound) {
					return nil, types.NewInternalError("Error fetching bookings", err)
				}
			}
			d.Worker = workers[b.WorkerID]
		}
		if withCustomer {
			if _, ok := customers[b.UserID]; !ok {
				if u, err := s.store.Users().GetByID(ctx, b.UserID); err == nil {
					customers[b.UserID] = u.Summary()
				} else if !errors.Is(err, repository.ErrNotFound) {
					return nil, types.NewInternalError("Error fetching bookings", err)
				}
			}
			d.Customer = customers[b.UserID]
		}
		out = append(out, d)
	}
	return out, nil
}
