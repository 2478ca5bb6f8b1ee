package model

import (
	"time"
)

// Conversation status values.
const (
	ConversationStatusOpen     = "open"
	ConversationStatusPending  = "pending"
	ConversationStatusResolved = "resolved"
	ConversationStatusSpam     = "spam"
)

// Conversation represents a chat thread between a tenant and one contact.
type Conversation struct {
	ID             int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	ConversationID string     `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex" validate:"required"`
	CompanyID      string     `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	ContactID      string     `json:"contact_id,omitempty" gorm:"column:contact_id;index"`
	Status         string     `json:"status" gorm:"column:status;default:open"`
	LastMessage    string     `json:"last_message,omitempty" gorm:"column:last_message"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" gorm:"column:last_message_at"`
	CreatedAt      time.Time  `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Conversation) TableName() string {
	return "conversations"
}

// IsValidConversationStatus reports whether s is an accepted conversation status.
func IsValidConversationStatus(s string) bool {
	switch s {
	case ConversationStatusOpen, ConversationStatusPending, ConversationStatusResolved, ConversationStatusSpam:
		return true
	}
	return false
}
