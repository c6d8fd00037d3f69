package models

import (
	"time"
)

const (
	OTPPurposeCustomer = "customer"
	OTPPurposeWorker   = "worker"
)

const (
	OTPProviderLocal     = "local"
	OTPProviderTwoFactor = "2factor"
)

// OTPSession is one outstanding one-time-password challenge.
type OTPSession struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Phone     string    `json:"phone" gorm:"type:varchar(10);not null;index:idx_otp_phone_purpose"`
	Purpose   string    `json:"purpose" gorm:"type:varchar(20);not null;index:idx_otp_phone_purpose"`
	Provider  string    `json:"provider" gorm:"type:varchar(20);not null"`
	SessionID string    `json:"-" gorm:"type:varchar(128)"`
	CodeHash  string    `json:"-" gorm:"type:varchar(255)"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	Verified  bool      `json:"verified" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for the OTPSession model
func (OTPSession) TableName() string {
	return "otp_sessions"
}

type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,phone10"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required,phone10"`
	OTP   string `json:"otp" binding:"required,min=4,max=8"`
}

type WorkerRegisterRequest struct {
	Phone    string `json:"phone" binding:"required,phone10"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Name     string `json:"name" binding:"max=120"`
}

type WorkerLoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Phone      string `json:"phone"`
	Password   string `json:"password" binding:"required"`
}
