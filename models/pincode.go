package models

import (
	"time"
)

// PincodeData is the resolved location for a postal code.
type PincodeData struct {
	Pincode string `json:"pincode"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// PincodeCache is the persisted copy of a resolved postal code.
type PincodeCache struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Pincode   string    `json:"pincode" gorm:"type:varchar(6);uniqueIndex;not null"`
	City      string    `json:"city" gorm:"type:varchar(100);not null"`
	State     string    `json:"state" gorm:"type:varchar(100);not null"`
	Country   string    `json:"country" gorm:"type:varchar(60);not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for the PincodeCache model
func (PincodeCache) TableName() string {
	return "pincode_caches"
}

func (p *PincodeCache) Data() PincodeData {
	return PincodeData{Pincode: p.Pincode, City: p.City, State: p.State, Country: p.Country}
}
