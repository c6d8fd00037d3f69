package services

import (
	"snapfix-server/models"
	"snapfix-server/types"
)

// BookingAction names an operation a principal may attempt on a booking.
type BookingAction string

const (
	ActionViewBooking        BookingAction = "view"
	ActionCancelBooking      BookingAction = "cancel"
	ActionPayBooking         BookingAction = "pay"
	ActionReviewBooking      BookingAction = "review"
	ActionRespondBooking     BookingAction = "respond"
	ActionStartBooking       BookingAction = "start"
	ActionCompleteBooking    BookingAction = "complete"
	ActionViewBookingPayment BookingAction = "view_payment"
)

func (a BookingAction) customerOnly() bool {
	switch a {
	case ActionCancelBooking, ActionPayBooking, ActionReviewBooking, ActionViewBookingPayment:
		return true
	}
	return false
}

func (a BookingAction) workerOnly() bool {
	switch a {
	case ActionRespondBooking, ActionStartBooking, ActionCompleteBooking:
		return true
	}
	return false
}

// CanActOnBooking is the single capability check for booking operations.
// Customer actions belong to the booking's customer, worker actions to its
// assigned worker, and either party may view it.
func CanActOnBooking(p types.Principal, b *models.Booking, action BookingAction) bool {
	isOwner := p.IsCustomer() && b.UserID == p.ID
	isAssignee := p.IsWorker() && b.WorkerID == p.ID

	switch {
	case action.customerOnly():
		return isOwner
	case action.workerOnly():
		return isAssignee
	case action == ActionViewBooking:
		return isOwner || isAssignee
	}
	return false
}

func authorizeBooking(p types.Principal, b *models.Booking, action BookingAction) error {
	if !CanActOnBooking(p, b, action) {
		return types.NewForbiddenError("Not authorized")
	}
	return nil
}
