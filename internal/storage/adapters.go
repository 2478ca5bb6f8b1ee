package storage

import (
	"context"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
)

// TenantRepoAdapter adapts the PostgresRepo to the TenantRepo interface
type TenantRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTenantRepoAdapter creates a new tenant repository adapter
func NewTenantRepoAdapter(postgres *PostgresRepo) TenantRepo {
	return &TenantRepoAdapter{postgres: postgres}
}

// FindByCompanyID finds a tenant by company ID
func (a *TenantRepoAdapter) FindByCompanyID(ctx context.Context, companyID string) (*model.Tenant, error) {
	return a.postgres.FindTenantByCompanyID(ctx, companyID)
}

// EnsureTenant finds or creates the tenant row for a company ID
func (a *TenantRepoAdapter) EnsureTenant(ctx context.Context, companyID string) (*model.Tenant, error) {
	return a.postgres.EnsureTenant(ctx, companyID)
}

// AgentRepoAdapter adapts the PostgresRepo to the AgentRepo interface
type AgentRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAgentRepoAdapter creates a new agent repository adapter
func NewAgentRepoAdapter(postgres *PostgresRepo) AgentRepo {
	return &AgentRepoAdapter{postgres: postgres}
}

// Create inserts a new agent
func (a *AgentRepoAdapter) Create(ctx context.Context, agent model.Agent) error {
	return a.postgres.CreateAgent(ctx, agent)
}

// Update updates an agent's mutable columns
func (a *AgentRepoAdapter) Update(ctx context.Context, agent model.Agent) error {
	return a.postgres.UpdateAgent(ctx, agent)
}

// UpdateConfig replaces an agent's config document
func (a *AgentRepoAdapter) UpdateConfig(ctx context.Context, agentID string, config datatypes.JSON) error {
	return a.postgres.UpdateAgentConfig(ctx, agentID, config)
}

// SetDefault promotes an agent to the tenant default
func (a *AgentRepoAdapter) SetDefault(ctx context.Context, agentID string) error {
	return a.postgres.SetDefaultAgent(ctx, agentID)
}

// Delete removes an agent
func (a *AgentRepoAdapter) Delete(ctx context.Context, agentID string) error {
	return a.postgres.DeleteAgent(ctx, agentID)
}

// FindByAgentID finds an agent by agent ID
func (a *AgentRepoAdapter) FindByAgentID(ctx context.Context, agentID string) (*model.Agent, error) {
	return a.postgres.FindAgentByAgentID(ctx, agentID)
}

// FindByCompanyID finds agents by company ID
func (a *AgentRepoAdapter) FindByCompanyID(ctx context.Context, companyID string) ([]model.Agent, error) {
	return a.postgres.FindAgentsByCompanyID(ctx, companyID)
}

// FindDefault finds the tenant's default agent
func (a *AgentRepoAdapter) FindDefault(ctx context.Context) (*model.Agent, error) {
	return a.postgres.FindDefaultAgent(ctx)
}

// ConversationRepoAdapter adapts the PostgresRepo to the ConversationRepo interface
type ConversationRepoAdapter struct {
	postgres *PostgresRepo
}

// NewConversationRepoAdapter creates a new conversation repository adapter
func NewConversationRepoAdapter(postgres *PostgresRepo) ConversationRepo {
	return &ConversationRepoAdapter{postgres: postgres}
}

// Save upserts a conversation
func (a *ConversationRepoAdapter) Save(ctx context.Context, conversation model.Conversation) error {
	return a.postgres.SaveConversation(ctx, conversation)
}

// FindByConversationID finds a conversation by ID
func (a *ConversationRepoAdapter) FindByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return a.postgres.FindConversationByConversationID(ctx, conversationID)
}

// FindByCompanyID lists conversations for the tenant in context
func (a *ConversationRepoAdapter) FindByCompanyID(ctx context.Context, status string, limit, offset int) ([]model.Conversation, error) {
	return a.postgres.FindConversationsByCompanyID(ctx, status, limit, offset)
}

// UpdateStatus sets a conversation's lifecycle status
func (a *ConversationRepoAdapter) UpdateStatus(ctx context.Context, conversationID, status string) error {
	return a.postgres.UpdateConversationStatus(ctx, conversationID, status)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

// Save saves a message
func (a *MessageRepoAdapter) Save(ctx context.Context, message model.Message) error {
	return a.postgres.SaveMessage(ctx, message)
}

// RecordOutbound persists an outbound message and refreshes its conversation
func (a *MessageRepoAdapter) RecordOutbound(ctx context.Context, message model.Message) error {
	return a.postgres.RecordOutbound(ctx, message)
}

// FindByMessageID finds a message by ID
func (a *MessageRepoAdapter) FindByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	return a.postgres.FindMessageByMessageID(ctx, messageID)
}

// FindByWaMessageID finds a message by the WhatsApp-assigned ID
func (a *MessageRepoAdapter) FindByWaMessageID(ctx context.Context, waMessageID string) (*model.Message, error) {
	return a.postgres.FindMessageByWaMessageID(ctx, waMessageID)
}

// FindByConversationID lists a page of messages in a conversation
func (a *MessageRepoAdapter) FindByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	return a.postgres.FindMessagesByConversationID(ctx, conversationID, limit, offset)
}

// UpdateStatus advances a message's delivery status
func (a *MessageRepoAdapter) UpdateStatus(ctx context.Context, waMessageID, status string) error {
	return a.postgres.UpdateMessageStatus(ctx, waMessageID, status)
}

// ContactRepoAdapter adapts the PostgresRepo to the ContactRepo interface
type ContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewContactRepoAdapter creates a new contact repository adapter
func NewContactRepoAdapter(postgres *PostgresRepo) ContactRepo {
	return &ContactRepoAdapter{postgres: postgres}
}

// Save upserts a contact
func (a *ContactRepoAdapter) Save(ctx context.Context, contact model.Contact) error {
	return a.postgres.SaveContact(ctx, contact)
}

// FindByContactID finds a contact by ID
func (a *ContactRepoAdapter) FindByContactID(ctx context.Context, contactID string) (*model.Contact, error) {
	return a.postgres.FindContactByContactID(ctx, contactID)
}

// FindByCompanyID lists a page of contacts for the tenant in context
func (a *ContactRepoAdapter) FindByCompanyID(ctx context.Context, limit, offset int) ([]model.Contact, error) {
	return a.postgres.FindContactsByCompanyID(ctx, limit, offset)
}

// AccountRepoAdapter adapts the PostgresRepo to the AccountRepo interface
type AccountRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAccountRepoAdapter creates a new WhatsApp account repository adapter
func NewAccountRepoAdapter(postgres *PostgresRepo) AccountRepo {
	return &AccountRepoAdapter{postgres: postgres}
}

// Save upserts a WhatsApp account
func (a *AccountRepoAdapter) Save(ctx context.Context, account model.WhatsAppAccount) error {
	return a.postgres.SaveAccount(ctx, account)
}

// FindByAccountID finds an account by ID
func (a *AccountRepoAdapter) FindByAccountID(ctx context.Context, accountID string) (*model.WhatsAppAccount, error) {
	return a.postgres.FindAccountByAccountID(ctx, accountID)
}

// FindByCompanyID lists all accounts for the tenant in context
func (a *AccountRepoAdapter) FindByCompanyID(ctx context.Context) ([]model.WhatsAppAccount, error) {
	return a.postgres.FindAccountsByCompanyID(ctx)
}

// FindActive returns the account the dispatcher should use
func (a *AccountRepoAdapter) FindActive(ctx context.Context) (*model.WhatsAppAccount, error) {
	return a.postgres.FindActiveAccount(ctx)
}

// FindByPhoneNumberID resolves a Cloud API phone number to its account
func (a *AccountRepoAdapter) FindByPhoneNumberID(ctx context.Context, phoneNumberID string) (*model.WhatsAppAccount, error) {
	return a.postgres.FindAccountByPhoneNumberID(ctx, phoneNumberID)
}

// Delete removes an account
func (a *AccountRepoAdapter) Delete(ctx context.Context, accountID string) error {
	return a.postgres.DeleteAccount(ctx, accountID)
}

// TemplateRepoAdapter adapts the PostgresRepo to the TemplateRepo interface
type TemplateRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTemplateRepoAdapter creates a new template repository adapter
func NewTemplateRepoAdapter(postgres *PostgresRepo) TemplateRepo {
	return &TemplateRepoAdapter{postgres: postgres}
}

// Save upserts a template
func (a *TemplateRepoAdapter) Save(ctx context.Context, template model.MessageTemplate) error {
	return a.postgres.SaveTemplate(ctx, template)
}

// FindByTemplateID finds a template by ID
func (a *TemplateRepoAdapter) FindByTemplateID(ctx context.Context, templateID string) (*model.MessageTemplate, error) {
	return a.postgres.FindTemplateByTemplateID(ctx, templateID)
}

// FindByName finds a template by name
func (a *TemplateRepoAdapter) FindByName(ctx context.Context, name string) (*model.MessageTemplate, error) {
	return a.postgres.FindTemplateByName(ctx, name)
}

// FindByCompanyID lists all templates for the tenant in context
func (a *TemplateRepoAdapter) FindByCompanyID(ctx context.Context) ([]model.MessageTemplate, error) {
	return a.postgres.FindTemplatesByCompanyID(ctx)
}

// Delete removes a template
func (a *TemplateRepoAdapter) Delete(ctx context.Context, templateID string) error {
	return a.postgres.DeleteTemplate(ctx, templateID)
}

// QuickReplyRepoAdapter adapts the PostgresRepo to the QuickReplyRepo interface
type QuickReplyRepoAdapter struct {
	postgres *PostgresRepo
}

// NewQuickReplyRepoAdapter creates a new quick reply repository adapter
func NewQuickReplyRepoAdapter(postgres *PostgresRepo) QuickReplyRepo {
	return &QuickReplyRepoAdapter{postgres: postgres}
}

// Save upserts a quick reply
func (a *QuickReplyRepoAdapter) Save(ctx context.Context, quickReply model.QuickReply) error {
	return a.postgres.SaveQuickReply(ctx, quickReply)
}

// FindByCompanyID lists all quick replies for the tenant in context
func (a *QuickReplyRepoAdapter) FindByCompanyID(ctx context.Context) ([]model.QuickReply, error) {
	return a.postgres.FindQuickRepliesByCompanyID(ctx)
}

// Delete removes a quick reply
func (a *QuickReplyRepoAdapter) Delete(ctx context.Context, quickReplyID string) error {
	return a.postgres.DeleteQuickReply(ctx, quickReplyID)
}

// TagRepoAdapter adapts the PostgresRepo to the TagRepo interface
type TagRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTagRepoAdapter creates a new tag repository adapter
func NewTagRepoAdapter(postgres *PostgresRepo) TagRepo {
	return &TagRepoAdapter{postgres: postgres}
}

// Save upserts a tag
func (a *TagRepoAdapter) Save(ctx context.Context, tag model.Tag) error {
	return a.postgres.SaveTag(ctx, tag)
}

// FindByCompanyID lists all tags for the tenant in context
func (a *TagRepoAdapter) FindByCompanyID(ctx context.Context) ([]model.Tag, error) {
	return a.postgres.FindTagsByCompanyID(ctx)
}

// Delete removes a tag
func (a *TagRepoAdapter) Delete(ctx context.Context, tagID string) error {
	return a.postgres.DeleteTag(ctx, tagID)
}

// SessionRepoAdapter adapts the PostgresRepo to the SessionRepo interface
type SessionRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSessionRepoAdapter creates a new session repository adapter
func NewSessionRepoAdapter(postgres *PostgresRepo) SessionRepo {
	return &SessionRepoAdapter{postgres: postgres}
}

// FindByToken resolves a bearer token to a session
func (a *SessionRepoAdapter) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	return a.postgres.FindSessionByToken(ctx, token)
}

// Ensure adapters implement the interfaces
var _ TenantRepo = (*TenantRepoAdapter)(nil)
var _ AgentRepo = (*AgentRepoAdapter)(nil)
var _ ConversationRepo = (*ConversationRepoAdapter)(nil)
var _ MessageRepo = (*MessageRepoAdapter)(nil)
var _ ContactRepo = (*ContactRepoAdapter)(nil)
var _ AccountRepo = (*AccountRepoAdapter)(nil)
var _ TemplateRepo = (*TemplateRepoAdapter)(nil)
var _ QuickReplyRepo = (*QuickReplyRepoAdapter)(nil)
var _ TagRepo = (*TagRepoAdapter)(nil)
var _ SessionRepo = (*SessionRepoAdapter)(nil)
