package models

import (
	"time"

	"github.com/lib/pq"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "Pending"
	BookingStatusAccepted   BookingStatus = "Accepted"
	BookingStatusRejected   BookingStatus = "Rejected"
	BookingStatusInProgress BookingStatus = "In Progress"
	BookingStatusCompleted  BookingStatus = "Completed"
	BookingStatusCancelled  BookingStatus = "Cancelled"
)

// IsTerminal reports whether no further transition is possible from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusRejected,
		BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

type WorkerStatus string

const (
	WorkerStatusPending  WorkerStatus = "Pending"
	WorkerStatusAccepted WorkerStatus = "Accepted"
	WorkerStatusRejected WorkerStatus = "Rejected"
)

type CompletionActor string

const (
	CompletionByCustomer CompletionActor = "Customer"
	CompletionByWorker   CompletionActor = "Worker"
)

// BookingAddress is the service location of a booking.
type BookingAddress struct {
	Pincode     string `json:"pincode" gorm:"type:varchar(6);not null"`
	City        string `json:"city" gorm:"type:varchar(100);not null"`
	State       string `json:"state" gorm:"type:varchar(100);not null"`
	FullAddress string `json:"fullAddress" gorm:"type:text;not null"`
}

// Booking is one service engagement between a customer and a worker.
type Booking struct {
	ID                    uint             `json:"id" gorm:"primaryKey"`
	UserID                uint             `json:"userId" gorm:"not null;index"`
	WorkerID              uint             `json:"workerId" gorm:"not null;index"`
	ServiceCategory       string           `json:"serviceCategory" gorm:"type:varchar(30);not null"`
	ProblemType           string           `json:"problemType" gorm:"type:varchar(120);not null"`
	Description           string           `json:"description" gorm:"type:text;not null"`
	Images                pq.StringArray   `json:"images" gorm:"type:text[]"`
	ScheduledDate         time.Time        `json:"scheduledDate" gorm:"type:date;not null"`
	ScheduledTime         string           `json:"scheduledTime" gorm:"type:varchar(20);not null"`
	Address               BookingAddress   `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Status                BookingStatus    `json:"status" gorm:"type:varchar(20);not null"`
	WorkerStatus          WorkerStatus     `json:"workerStatus" gorm:"type:varchar(20);not null"`
	CompletionInitiatedBy *CompletionActor `json:"completionInitiatedBy" gorm:"type:varchar(20)"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// CreateBookingRequest is the multipart form accepted by POST /bookings.
type CreateBookingRequest struct {
	WorkerID           uint   `form:"workerId" binding:"required"`
	ServiceCategory    string `form:"serviceCategory" binding:"required,category"`
	ProblemType        string `form:"problemType" binding:"required,max=120"`
	Description        string `form:"description" binding:"required,max=2000"`
	ScheduledDate      string `form:"scheduledDate" binding:"required"`
	ScheduledTime      string `form:"scheduledTime" binding:"required,max=20"`
	AddressFullAddress string `form:"addressFullAddress" binding:"required"`
	AddressPincode     string `form:"addressPincode" binding:"required,pincode"`
	AddressCity        string `form:"addressCity" binding:"required"`
	AddressState       string `form:"addressState" binding:"required"`
}

// UpdateBookingStatusRequest is the body of PUT /bookings/:id/status.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

// RespondBookingRequest is the body of PUT /worker/bookings/:id/respond.
type RespondBookingRequest struct {
	WorkerStatus WorkerStatus `json:"workerStatus" binding:"required"`
}

// BookingDetails is a booking enriched for display to either party.
type BookingDetails struct {
	Booking
	Worker      *WorkerSummary   `json:"worker,omitempty"`
	Customer    *CustomerSummary `json:"user,omitempty"`
	HasPaid     bool             `json:"hasPaid"`
	HasFeedback bool             `json:"hasFeedback"`
}
