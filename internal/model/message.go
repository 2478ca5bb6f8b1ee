package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MessageFlowIncoming = "IN"
	MessageFlowOutgoing = "OUT"
)

// Message type values.
const (
	MessageTypeText        = "text"
	MessageTypeTemplate    = "template"
	MessageTypeInteractive = "interactive"
	MessageTypeMedia       = "media"
)

// Message delivery status values. Transitions run forward only:
// pending -> sent -> delivered -> read, with failed reachable from
// pending and sent. Statuses beyond sent are written by webhook receipts.
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// Message represents one inbound or outbound message within a conversation.
type Message struct {
	ID             int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	MessageID      string         `json:"message_id" gorm:"column:message_id;uniqueIndex" validate:"required"`
	ConversationID string         `json:"conversation_id" gorm:"column:conversation_id;index" validate:"required"`
	CompanyID      string         `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	Flow           string         `json:"flow,omitempty" gorm:"column:flow"`
	Type           string         `json:"type,omitempty" gorm:"column:message_type"`
	Content        string         `json:"content,omitempty" gorm:"column:content"`
	// WaMessageID is the external identifier assigned by the WhatsApp API;
	// delivery receipts are correlated through it.
	WaMessageID string         `json:"wa_message_id,omitempty" gorm:"column:wa_message_id;index"`
	Status      string         `json:"status,omitempty" gorm:"column:status;default:pending"`
	Payload     datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb;column:payload"`
	CreatedAt   time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}

// statusRank orders delivery statuses for forward-only comparison.
var statusRank = map[string]int{
	MessageStatusPending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

// CanTransitionStatus reports whether a delivery status change from -> to is
// legal. failed is terminal and only reachable from pending or sent.
func CanTransitionStatus(from, to string) bool {
	if from == MessageStatusFailed || from == to {
		return false
	}
	if to == MessageStatusFailed {
		return from == MessageStatusPending || from == MessageStatusSent
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}

// MessageUpdatableFields returns the column names webhook receipts may touch.
func MessageUpdatableFields() []string {
	return []string{
		"status", "updated_at",
	}
}
