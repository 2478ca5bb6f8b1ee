package model

import (
	"time"
)

// Session maps an opaque bearer token to a tenant and user identity. Token
// issuance lives in the dashboard's auth service; this service only resolves.
type Session struct {
	ID        int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	Token     string    `json:"-" gorm:"column:token;uniqueIndex" validate:"required"`
	CompanyID string    `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	UserID    string    `json:"user_id" gorm:"column:user_id" validate:"required"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
