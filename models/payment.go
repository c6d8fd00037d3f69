package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

const PaymentMethodSimulated = "Simulated"

// Payment records the settlement of a completed booking.
type Payment struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	BookingID     uint          `json:"bookingId" gorm:"uniqueIndex;not null"`
	UserID        uint          `json:"userId" gorm:"not null;index"`
	WorkerID      uint          `json:"workerId" gorm:"not null;index"`
	HoursWorked   float64       `json:"hoursWorked" gorm:"type:numeric(6,2);not null"`
	PricePerHour  float64       `json:"pricePerHour" gorm:"type:numeric(10,2);not null"`
	TotalAmount   float64       `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod string        `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);not null"`
	TransactionID string        `json:"transactionId" gorm:"type:varchar(64);uniqueIndex;not null"`
	PaidAt        time.Time     `json:"paidAt"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// CreatePaymentRequest is the body of POST /payments.
type CreatePaymentRequest struct {
	BookingID   uint    `json:"bookingId" binding:"required"`
	HoursWorked float64 `json:"hoursWorked" binding:"required"`
}
