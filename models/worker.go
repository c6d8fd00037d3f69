package models

import (
	"time"

	"github.com/lib/pq"
)

const AuthProviderOTP = "otp"
const AuthProviderPassword = "password"

// WorkerLocation is where a worker is based.
type WorkerLocation struct {
	Pincode   string   `json:"pincode" gorm:"type:varchar(6)"`
	City      string   `json:"city" gorm:"type:varchar(100)"`
	State     string   `json:"state" gorm:"type:varchar(100)"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Worker is a service professional's account and public profile.
type Worker struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	WorkerCode        string         `json:"workerCode" gorm:"type:varchar(32);uniqueIndex;not null"`
	Phone             string         `json:"phone" gorm:"type:varchar(10);uniqueIndex;not null"`
	Username          *string        `json:"username,omitempty" gorm:"type:varchar(30);uniqueIndex"`
	PasswordHash      string         `json:"-" gorm:"type:varchar(255)"`
	AuthProvider      string         `json:"authProvider" gorm:"type:varchar(20);not null"`
	Name              string         `json:"name" gorm:"type:varchar(120)"`
	IDProofNumber     string         `json:"idProofNumber" gorm:"type:varchar(60)"`
	ServiceCategory   string         `json:"serviceCategory" gorm:"type:varchar(30);not null"`
	ServicesProvided  pq.StringArray `json:"servicesProvided" gorm:"type:text[]"`
	Skills            pq.StringArray `json:"skills" gorm:"type:text[]"`
	PricePerHour      float64        `json:"pricePerHour" gorm:"type:numeric(10,2);not null"`
	Rating            float64        `json:"rating" gorm:"type:numeric(2,1);not null"`
	TotalRatings      int            `json:"totalRatings" gorm:"not null"`
	TotalReviews      int            `json:"totalReviews" gorm:"not null"`
	Experience        int            `json:"experience" gorm:"not null"`
	Availability      bool           `json:"availability" gorm:"not null"`
	IsOnline          bool           `json:"isOnline" gorm:"not null"`
	Location          WorkerLocation `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	CompletedJobs     int            `json:"completedJobs" gorm:"not null"`
	ProfileImage      string         `json:"profileImage" gorm:"type:varchar(500)"`
	IsProfileComplete bool           `json:"isProfileComplete" gorm:"not null"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// TableName specifies the table name for the Worker model
func (Worker) TableName() string {
	return "workers"
}

// HandlesCategory reports whether the worker offers the given service category.
func (w *Worker) HandlesCategory(category string) bool {
	if w.ServiceCategory == category {
		return true
	}
	for _, s := range w.ServicesProvided {
		if s == category {
			return true
		}
	}
	return false
}

// RefreshProfileCompleteness recomputes IsProfileComplete from the identity fields.
func (w *Worker) RefreshProfileCompleteness() {
	w.IsProfileComplete = w.Name != "" && w.Phone != "" && w.WorkerCode != "" &&
		len(w.ServicesProvided) > 0 && w.Location.Pincode != ""
}

// WorkerProfileRequest is the body of POST /worker/profile. Every field is optional.
type WorkerProfileRequest struct {
	Name             *string  `json:"name" binding:"omitempty,max=120"`
	IDProofNumber    *string  `json:"idProofNumber" binding:"omitempty,max=60"`
	ServicesProvided []string `json:"servicesProvided" binding:"omitempty,dive,category"`
	ServiceCategory  *string  `json:"serviceCategory" binding:"omitempty,category"`
	PricePerHour     *float64 `json:"pricePerHour" binding:"omitempty,gte=0"`
	Experience       *int     `json:"experience" binding:"omitempty,gte=0,lte=60"`
	Skills           []string `json:"skills"`
	Pincode          *string  `json:"pincode" binding:"omitempty,pincode"`
	City             *string  `json:"city"`
	State            *string  `json:"state"`
	Latitude         *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude        *float64 `json:"longitude" binding:"omitempty,longitude"`
	Availability     *bool    `json:"availability"`
}

// WorkerSummary is the worker view shared with the booking customer.
type WorkerSummary struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	ServiceCategory string  `json:"serviceCategory"`
	PricePerHour    float64 `json:"pricePerHour"`
	Rating          float64 `json:"rating"`
}

func (w *Worker) Summary() *WorkerSummary {
	return &WorkerSummary{
		ID:              w.ID,
		Name:            w.Name,
		Phone:           w.Phone,
		ServiceCategory: w.ServiceCategory,
		PricePerHour:    w.PricePerHour,
		Rating:          w.Rating,
	}
}
