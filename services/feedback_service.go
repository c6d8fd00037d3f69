package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
)

const workerReviewLimit = 20

type FeedbackService struct {
	store    repository.Store
	notifier Notifier
	log      *zap.Logger
}

func NewFeedbackService(store repository.Store, notifier Notifier, log *zap.Logger) *FeedbackService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FeedbackService{store: store, notifier: notifier, log: log.Named("feedback")}
}

// nextRating folds one more review into a running mean, rounded to one decimal.
func nextRating(current float64, count, rating int) float64 {
	mean := (current*float64(count) + float64(rating)) / float64(count+1)
	return math.Round(mean*10) / 10
}

// Create records the review and updates the worker's rating in one transaction.
func (s *FeedbackService) Create(ctx context.Context, p types.Principal, req models.CreateFeedbackRequest) (*models.Feedback, error) {
	if req.BookingID == 0 {
		return nil, types.NewValidationError("Please provide bookingId and rating")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, types.NewValidationError("Rating must be between 1 and 5")
	}

	var feedback *models.Feedback
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		booking, err := tx.Bookings().GetByID(ctx, req.BookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return types.NewNotFoundError("Booking not found")
		}
		if err != nil {
			return types.NewInternalError("Error submitting feedback", err)
		}
		if err := authorizeBooking(p, booking, ActionReviewBooking); err != nil {
			return err
		}
		if booking.Status != models.BookingStatusCompleted {
			return types.NewInvalidTransitionError("Can only provide feedback for completed bookings")
		}

		if _, err := tx.Feedback().GetByBooking(ctx, booking.ID); err == nil {
			return types.NewConflictError("Feedback already submitted for this booking")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return types.NewInternalError("Error submitting feedback", err)
		}

		fb := &models.Feedback{
			BookingID: booking.ID,
			UserID:    booking.UserID,
			WorkerID:  booking.WorkerID,
			Rating:    req.Rating,
			Comment:   strings.TrimSpace(req.Comment),
		}
		if err := tx.Feedback().Create(ctx, fb); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return types.NewConflictError("Feedback already submitted for this booking")
			}
			return types.NewInternalError("Error submitting feedback", err)
		}

		worker, err := tx.Workers().GetByIDForUpdate(ctx, booking.WorkerID)
		if errors.Is(err, repository.ErrNotFound) {
			return types.NewNotFoundError("Worker not found")
		}
		if err != nil {
			return types.NewInternalError("Error submitting feedback", err)
		}
		count := worker.TotalRatings
		if err := tx.Workers().UpdateRating(ctx, worker.ID, nextRating(worker.Rating, count, req.Rating), count+1); err != nil {
			return types.NewInternalError("Error submitting feedback", err)
		}

		feedback = fb
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("feedback submitted",
		zap.Uint("booking_id", feedback.BookingID),
		zap.Uint("worker_id", feedback.WorkerID),
		zap.Int("rating", feedback.Rating))
	notifyWorker(s.notifier, feedback.WorkerID, Event{Type: EventFeedbackReceived, BookingID: feedback.BookingID, Data: feedback})
	return feedback, nil
}

func (s *FeedbackService) GetByBooking(ctx context.Context, p types.Principal, bookingID uint) (*models.Feedback, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Booking not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching feedback", err)
	}
	if err := authorizeBooking(p, booking, ActionViewBooking); err != nil {
		return nil, err
	}

	fb, err := s.store.Feedback().GetByBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Feedback not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching feedback", err)
	}
	return fb, nil
}

// ListForWorker returns the latest reviews of a worker with reviewer names.
func (s *FeedbackService) ListForWorker(ctx context.Context, workerID uint) ([]models.FeedbackDetails, error) {
	if _, err := s.store.Workers().GetByID(ctx, workerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, types.NewNotFoundError("Worker not found")
		}
		return nil, types.NewInternalError("Error fetching feedback", err)
	}

	items, err := s.store.Feedback().ListByWorker(ctx, workerID, workerReviewLimit)
	if err != nil {
		return nil, types.NewInternalError("Error fetching feedback", err)
	}

	names := map[uint]string{}
	out := make([]models.FeedbackDetails, 0, len(items))
	for _, fb := range items {
		name, ok := names[fb.UserID]
		if !ok {
			if u, err := s.store.Users().GetByID(ctx, fb.UserID); err == nil {
				name = u.FullName
			}
			names[fb.UserID] = name
		}
		out = append(out, models.FeedbackDetails{Feedback: fb, CustomerName: name})
	}
	return out, nil
}
