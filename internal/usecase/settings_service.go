package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/validator"
)

// --- WhatsApp account settings ---

// SaveAccountInput is the payload for registering WhatsApp credentials.
type SaveAccountInput struct {
	PhoneNumberID string `json:"phone_number_id" validate:"required"`
	AccessToken   string `json:"access_token" validate:"required"`
	DisplayName   string `json:"display_name,omitempty"`
	Active        *bool  `json:"active,omitempty"`
}

// SaveWhatsAppAccount registers or refreshes the tenant's Cloud API
// credentials and returns the stored row (token redacted by the model's JSON
// tags on the way out).
func (s *CRMService) SaveWhatsAppAccount(ctx context.Context, input SaveAccountInput) (*model.WhatsAppAccount, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if err := validator.Validate(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	if _, err := s.tenantRepo.EnsureTenant(ctx, companyID); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	account := model.WhatsAppAccount{
		AccountID:     uuid.NewString(),
		CompanyID:     companyID,
		PhoneNumberID: input.PhoneNumberID,
		AccessToken:   input.AccessToken,
		DisplayName:   input.DisplayName,
		Active:        active,
	}
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListWhatsAppAccounts returns the tenant's registered accounts.
func (s *CRMService) ListWhatsAppAccounts(ctx context.Context) ([]model.WhatsAppAccount, error) {
	return s.accountRepo.FindByCompanyID(ctx)
}

// GetWhatsAppAccount returns one account by its public identifier.
func (s *CRMService) GetWhatsAppAccount(ctx context.Context, accountID string) (*model.WhatsAppAccount, error) {
	return s.accountRepo.FindByAccountID(ctx, accountID)
}

// DeleteWhatsAppAccount removes one account.
func (s *CRMService) DeleteWhatsAppAccount(ctx context.Context, accountID string) error {
	return s.accountRepo.Delete(ctx, accountID)
}

// --- Message templates ---

// SaveTemplateInput is the payload for creating a message template.
type SaveTemplateInput struct {
	Name       string         `json:"name" validate:"required,max=255"`
	Language   string         `json:"language,omitempty"`
	Category   string         `json:"category,omitempty"`
	Components datatypes.JSON `json:"components,omitempty"`
}

// SaveTemplate validates and stores a message template.
func (s *CRMService) SaveTemplate(ctx context.Context, input SaveTemplateInput) (*model.MessageTemplate, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if err := validator.Validate(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}
	if _, err := model.ValidateTemplateComponents(input.Components); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	language := input.Language
	if language == "" {
		language = "en"
	}

	template := model.MessageTemplate{
		TemplateID: uuid.NewString(),
		CompanyID:  companyID,
		Name:       input.Name,
		Language:   language,
		Category:   input.Category,
		Components: input.Components,
	}
	if err := s.templateRepo.Save(ctx, template); err != nil {
		return nil, err
	}
	return &template, nil
}

// ListTemplates returns all templates for the tenant in context.
func (s *CRMService) ListTemplates(ctx context.Context) ([]model.MessageTemplate, error) {
	return s.templateRepo.FindByCompanyID(ctx)
}

// GetTemplate returns one template by its public identifier.
func (s *CRMService) GetTemplate(ctx context.Context, templateID string) (*model.MessageTemplate, error) {
	return s.templateRepo.FindByTemplateID(ctx, templateID)
}

// DeleteTemplate removes one template.
func (s *CRMService) DeleteTemplate(ctx context.Context, templateID string) error {
	return s.templateRepo.Delete(ctx, templateID)
}

// --- Quick replies ---

// SaveQuickReplyInput is the payload for creating a quick reply.
type SaveQuickReplyInput struct {
	Shortcut string `json:"shortcut" validate:"required,max=64"`
	Content  string `json:"content" validate:"required"`
}

// SaveQuickReply stores a canned response.
func (s *CRMService) SaveQuickReply(ctx context.Context, input SaveQuickReplyInput) (*model.QuickReply, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if err := validator.Validate(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	quickReply := model.QuickReply{
		QuickReplyID: uuid.NewString(),
		CompanyID:    companyID,
		Shortcut:     input.Shortcut,
		Content:      input.Content,
	}
	if err := s.quickReplyRepo.Save(ctx, quickReply); err != nil {
		return nil, err
	}
	return &quickReply, nil
}

// ListQuickReplies returns all quick replies for the tenant in context.
func (s *CRMService) ListQuickReplies(ctx context.Context) ([]model.QuickReply, error) {
	return s.quickReplyRepo.FindByCompanyID(ctx)
}

// DeleteQuickReply removes one quick reply.
func (s *CRMService) DeleteQuickReply(ctx context.Context, quickReplyID string) error {
	return s.quickReplyRepo.Delete(ctx, quickReplyID)
}

// --- Tags ---

// SaveTagInput is the payload for creating a tag.
type SaveTagInput struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// SaveTag stores a label operators can attach to contacts and conversations.
func (s *CRMService) SaveTag(ctx context.Context, input SaveTagInput) (*model.Tag, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if err := validator.Validate(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	tag := model.Tag{
		TagID:     uuid.NewString(),
		CompanyID: companyID,
		Name:      input.Name,
		Color:     input.Color,
	}
	if err := s.tagRepo.Save(ctx, tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns all tags for the tenant in context.
func (s *CRMService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.tagRepo.FindByCompanyID(ctx)
}

// DeleteTag removes one tag.
func (s *CRMService) DeleteTag(ctx context.Context, tagID string) error {
	return s.tagRepo.Delete(ctx, tagID)
}

// --- Contacts ---

// SaveContactInput is the payload for creating a contact.
type SaveContactInput struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Name        string `json:"name,omitempty" validate:"omitempty,max=255"`
	Notes       string `json:"notes,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// SaveContact stores a contact.
func (s *CRMService) SaveContact(ctx context.Context, input SaveContactInput) (*model.Contact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if err := validator.Validate(&input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	contact := model.Contact{
		ContactID:   uuid.NewString(),
		CompanyID:   companyID,
		PhoneNumber: input.PhoneNumber,
		Name:        input.Name,
		Notes:       input.Notes,
		Tags:        input.Tags,
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// ListContacts returns a page of contacts for the tenant in context.
func (s *CRMService) ListContacts(ctx context.Context, limit, offset int) ([]model.Contact, error) {
	return s.contactRepo.FindByCompanyID(ctx, limit, offset)
}

// GetContact returns one contact by its public identifier.
func (s *CRMService) GetContact(ctx context.Context, contactID string) (*model.Contact, error) {
	return s.contactRepo.FindByContactID(ctx, contactID)
}
