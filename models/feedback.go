package models

import (
	"time"
)

// Feedback is the customer's review of a completed booking.
type Feedback struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BookingID uint      `json:"bookingId" gorm:"uniqueIndex;not null"`
	UserID    uint      `json:"userId" gorm:"not null;index"`
	WorkerID  uint      `json:"workerId" gorm:"not null;index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for the Feedback model
func (Feedback) TableName() string {
	return "feedback"
}

// CreateFeedbackRequest is the body of POST /feedback.
type CreateFeedbackRequest struct {
	BookingID uint   `json:"bookingId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment" binding:"max=1000"`
}

// FeedbackDetails is a review as shown on a worker's public profile.
type FeedbackDetails struct {
	Feedback
	CustomerName string `json:"customerName"`
}
