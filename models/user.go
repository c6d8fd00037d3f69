package models

import (
	"time"
)

// User is a customer account.
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Phone             string    `json:"phone" gorm:"type:varchar(10);uniqueIndex;not null"`
	FullName          string    `json:"fullName" gorm:"type:varchar(120)"`
	Pincode           string    `json:"pincode" gorm:"type:varchar(6)"`
	City              string    `json:"city" gorm:"type:varchar(100)"`
	State             string    `json:"state" gorm:"type:varchar(100)"`
	Country           string    `json:"country" gorm:"type:varchar(60);not null"`
	IsProfileComplete bool      `json:"isProfileComplete" gorm:"not null"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// CustomerProfileRequest is the body of POST /profile.
type CustomerProfileRequest struct {
	FullName string `json:"fullName" binding:"required,max=120"`
	Pincode  string `json:"pincode" binding:"required,pincode"`
	City     string `json:"city" binding:"required"`
	State    string `json:"state" binding:"required"`
	Country  string `json:"country"`
}

// CustomerSummary is the customer view shared with the assigned worker.
type CustomerSummary struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

func (u *User) Summary() *CustomerSummary {
	return &CustomerSummary{ID: u.ID, FullName: u.FullName, Phone: u.Phone}
}
