package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapfix-server/models"
	"snapfix-server/repository"
	"snapfix-server/types"
)

const MinHoursWorked = 0.5

// PaymentService settles completed bookings. Payments are simulated and
// complete immediately.
type PaymentService struct {
	store    repository.Store
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

func NewPaymentService(store repository.Store, notifier Notifier, log *zap.Logger) *PaymentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PaymentService{store: store, notifier: notifier, now: time.Now, log: log.Named("payments")}
}

func newTransactionID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	return "TXN" + strconv.FormatInt(now.UnixMilli(), 10) + suffix
}

func (s *PaymentService) Pay(ctx context.Context, p types.Principal, req models.CreatePaymentRequest) (*models.Payment, error) {
	if req.BookingID == 0 {
		return nil, types.NewValidationError("Please provide bookingId and hoursWorked")
	}
	if math.IsNaN(req.HoursWorked) || math.IsInf(req.HoursWorked, 0) || req.HoursWorked < MinHoursWorked {
		return nil, types.NewValidationError("Minimum hours worked should be 0.5")
	}

	booking, err := s.store.Bookings().GetByID(ctx, req.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Booking not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error processing payment", err)
	}
	if err := authorizeBooking(p, booking, ActionPayBooking); err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, types.NewInvalidTransitionError("Booking must be completed before payment")
	}

	if _, err := s.store.Payments().GetByBooking(ctx, booking.ID); err == nil {
		return nil, types.NewConflictError("Payment already processed for this booking")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewInternalError("Error processing payment", err)
	}

	worker, err := s.store.Workers().GetByID(ctx, booking.WorkerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Worker not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error processing payment", err)
	}

	now := s.now()
	payment := &models.Payment{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		WorkerID:      worker.ID,
		HoursWorked:   req.HoursWorked,
		PricePerHour:  worker.PricePerHour,
		TotalAmount:   math.Round(worker.PricePerHour*req.HoursWorked*100) / 100,
		PaymentMethod: models.PaymentMethodSimulated,
		PaymentStatus: models.PaymentStatusCompleted,
		TransactionID: newTransactionID(now),
		PaidAt:        now,
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, types.NewConflictError("Payment already processed for this booking")
		}
		return nil, types.NewInternalError("Error processing payment", err)
	}

	s.log.Info("payment completed",
		zap.Uint("booking_id", booking.ID),
		zap.String("transaction_id", payment.TransactionID),
		zap.Float64("amount", payment.TotalAmount))
	notifyWorker(s.notifier, worker.ID, Event{Type: EventPaymentReceived, BookingID: booking.ID, Data: payment})
	return payment, nil
}

// ListForCustomer returns the customer's payments, newest first.
func (s *PaymentService) ListForCustomer(ctx context.Context, p types.Principal) ([]models.Payment, error) {
	if !p.IsCustomer() {
		return nil, types.NewForbiddenError("Not authorized")
	}
	payments, err := s.store.Payments().ListByUser(ctx, p.ID)
	if err != nil {
		return nil, types.NewInternalError("Error fetching payments", err)
	}
	return payments, nil
}

func (s *PaymentService) GetByBooking(ctx context.Context, p types.Principal, bookingID uint) (*models.Payment, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Booking not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching payment", err)
	}
	if err := authorizeBooking(p, booking, ActionViewBookingPayment); err != nil {
		return nil, err
	}

	payment, err := s.store.Payments().GetByBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, types.NewNotFoundError("Payment not found")
	}
	if err != nil {
		return nil, types.NewInternalError("Error fetching payment", err)
	}
	return payment, nil
}
