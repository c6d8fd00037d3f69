package services

import (
	"time"

	"snapfix-server/types"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
	EventPaymentReceived  = "payment_received"
	EventFeedbackReceived = "feedback_received"
)

// Event is a realtime message pushed to one party of a booking.
type Event struct {
	Type      string      `json:"type"`
	BookingID uint        `json:"bookingId"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Notifier delivers events to connected clients. Delivery is best effort:
// implementations must not block and never report failure to the caller.
type Notifier interface {
	Notify(recipient types.Principal, event Event)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(types.Principal, Event) {}

func notifyCustomer(n Notifier, userID uint, event Event) {
	event.Timestamp = time.Now()
	n.Notify(types.Principal{ID: userID, Role: types.RoleCustomer}, event)
}

func notifyWorker(n Notifier, workerID uint, event Event) {
	event.Timestamp = time.Now()
	n.Notify(types.Principal{ID: workerID, Role: types.RoleWorker}, event)
}
