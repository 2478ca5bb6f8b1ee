package storage

import (
	"context"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
)

// TenantRepo defines tenant storage operations
type TenantRepo interface {
	FindByCompanyID(ctx context.Context, companyID string) (*model.Tenant, error)
	EnsureTenant(ctx context.Context, companyID string) (*model.Tenant, error)
}

// AgentRepo defines agent storage operations
type AgentRepo interface {
	Create(ctx context.Context, agent model.Agent) error
	Update(ctx context.Context, agent model.Agent) error
	UpdateConfig(ctx context.Context, agentID string, config datatypes.JSON) error
	SetDefault(ctx context.Context, agentID string) error
	Delete(ctx context.Context, agentID string) error
	FindByAgentID(ctx context.Context, agentID string) (*model.Agent, error)
	FindByCompanyID(ctx context.Context, companyID string) ([]model.Agent, error)
	FindDefault(ctx context.Context) (*model.Agent, error)
}

// ConversationRepo defines conversation storage operations
type ConversationRepo interface {
	Save(ctx context.Context, conversation model.Conversation) error
	FindByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error)
	FindByCompanyID(ctx context.Context, status string, limit, offset int) ([]model.Conversation, error)
	UpdateStatus(ctx context.Context, conversationID, status string) error
}

// MessageRepo defines message storage operations
type MessageRepo interface {
	Save(ctx context.Context, message model.Message) error
	// RecordOutbound persists an outbound message and marks its conversation
	// open with refreshed last_message fields, in one transaction.
	RecordOutbound(ctx context.Context, message model.Message) error
	FindByMessageID(ctx context.Context, messageID string) (*model.Message, error)
	FindByWaMessageID(ctx context.Context, waMessageID string) (*model.Message, error)
	FindByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	UpdateStatus(ctx context.Context, waMessageID, status string) error
}

// ContactRepo defines contact storage operations
type ContactRepo interface {
	Save(ctx context.Context, contact model.Contact) error
	FindByContactID(ctx context.Context, contactID string) (*model.Contact, error)
	FindByCompanyID(ctx context.Context, limit, offset int) ([]model.Contact, error)
}

// AccountRepo defines WhatsApp account credential storage operations
type AccountRepo interface {
	Save(ctx context.Context, account model.WhatsAppAccount) error
	FindByAccountID(ctx context.Context, accountID string) (*model.WhatsAppAccount, error)
	FindByCompanyID(ctx context.Context) ([]model.WhatsAppAccount, error)
	FindActive(ctx context.Context) (*model.WhatsAppAccount, error)
	// FindByPhoneNumberID resolves a Cloud API phone number to its tenant's
	// account. It is not tenant-scoped; the webhook path uses it before any
	// tenant is known.
	FindByPhoneNumberID(ctx context.Context, phoneNumberID string) (*model.WhatsAppAccount, error)
	Delete(ctx context.Context, accountID string) error
}

// TemplateRepo defines message template storage operations
type TemplateRepo interface {
	Save(ctx context.Context, template model.MessageTemplate) error
	FindByTemplateID(ctx context.Context, templateID string) (*model.MessageTemplate, error)
	FindByName(ctx context.Context, name string) (*model.MessageTemplate, error)
	FindByCompanyID(ctx context.Context) ([]model.MessageTemplate, error)
	Delete(ctx context.Context, templateID string) error
}

// QuickReplyRepo defines quick reply storage operations
type QuickReplyRepo interface {
	Save(ctx context.Context, quickReply model.QuickReply) error
	FindByCompanyID(ctx context.Context) ([]model.QuickReply, error)
	Delete(ctx context.Context, quickReplyID string) error
}

// TagRepo defines tag storage operations
type TagRepo interface {
	Save(ctx context.Context, tag model.Tag) error
	FindByCompanyID(ctx context.Context) ([]model.Tag, error)
	Delete(ctx context.Context, tagID string) error
}

// SessionRepo resolves bearer tokens to sessions
type SessionRepo interface {
	FindByToken(ctx context.Context, token string) (*model.Session, error)
}
