package model

import (
	"time"
)

// WhatsAppAccount holds the Cloud API credentials for one tenant phone number.
// The API is list-shaped but the current product assumes one account per
// tenant; the dispatcher picks the active row (first row as fallback).
type WhatsAppAccount struct {
	ID            int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	AccountID     string    `json:"account_id" gorm:"column:account_id;uniqueIndex" validate:"required"`
	CompanyID     string    `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	PhoneNumberID string    `json:"phone_number_id" gorm:"column:phone_number_id" validate:"required"`
	AccessToken   string    `json:"-" gorm:"column:access_token" validate:"required"`
	DisplayName   string    `json:"display_name,omitempty" gorm:"column:display_name"`
	Active        bool      `json:"active" gorm:"column:active;default:true"`
	CreatedAt     time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (WhatsAppAccount) TableName() string {
	return "whatsapp_accounts"
}
