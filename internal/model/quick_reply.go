package model

import (
	"time"
)

// QuickReply is a canned response inserted by dashboard operators.
type QuickReply struct {
	ID           int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	QuickReplyID string    `json:"quick_reply_id" gorm:"column:quick_reply_id;uniqueIndex" validate:"required"`
	CompanyID    string    `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	Shortcut     string    `json:"shortcut" gorm:"column:shortcut" validate:"required"`
	Content      string    `json:"content" gorm:"column:content" validate:"required"`
	CreatedAt    time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (QuickReply) TableName() string {
	return "quick_replies"
}

// Tag is a label operators attach to contacts and conversations.
type Tag struct {
	ID        int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	TagID     string    `json:"tag_id" gorm:"column:tag_id;uniqueIndex" validate:"required"`
	CompanyID string    `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	Name      string    `json:"name" gorm:"column:name" validate:"required"`
	Color     string    `json:"color,omitempty" gorm:"column:color"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
