package model

import (
	"time"
)

// Contact represents a contact in the PostgreSQL database.
type Contact struct {
	ID          int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	ContactID   string    `json:"contact_id" gorm:"column:contact_id;uniqueIndex" validate:"required"`
	CompanyID   string    `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	PhoneNumber string    `json:"phone_number" gorm:"column:phone_number" validate:"required"`
	Name        string    `json:"name,omitempty" gorm:"column:name"`
	Notes       string    `json:"notes,omitempty" gorm:"column:notes"`
	Tags        string    `json:"tags,omitempty" gorm:"column:tags"` // comma-separated tag names
	AssignedTo  string    `json:"assigned_to,omitempty" gorm:"column:assigned_to;index"`
	CreatedAt   time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Contact) TableName() string {
	return "contacts"
}
