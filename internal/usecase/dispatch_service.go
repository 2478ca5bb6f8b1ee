package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/whatsapp"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

// Interactive message sub-types.
const (
	InteractiveTypeButton = "button"
	InteractiveTypeList   = "list"
)

// SendMessageInput is the dispatch request for one outbound message.
type SendMessageInput struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=text template interactive"`
	// Content is the text body for type text.
	Content string `json:"content,omitempty"`
	// TemplateName, TemplateLanguage and TemplateParams address a pre-approved
	// template for type template; params fill body placeholders in order.
	TemplateName     string   `json:"template_name,omitempty"`
	TemplateLanguage string   `json:"template_language,omitempty"`
	TemplateParams   []string `json:"template_params,omitempty"`
	// InteractiveType and Interactive carry the interactive block for type
	// interactive (button | list).
	InteractiveType string          `json:"interactive_type,omitempty"`
	Interactive     json.RawMessage `json:"interactive,omitempty"`
}

// SendMessageResult is what a successful dispatch returns.
type SendMessageResult struct {
	MessageID   string `json:"message_id"`
	WaMessageID string `json:"wa_message_id"`
	Status      string `json:"status"`
}

// validateSendInput checks the per-type payload requirements up front so the
// external call is never attempted for a request that cannot be persisted.
func validateSendInput(input SendMessageInput) error {
	switch input.Type {
	case model.MessageTypeText:
		if input.Content == "" {
			return fmt.Errorf("%w: content is required for text messages", apperrors.ErrValidation)
		}
	case model.MessageTypeTemplate:
		if input.TemplateName == "" {
			return fmt.Errorf("%w: template_name is required for template messages", apperrors.ErrValidation)
		}
	case model.MessageTypeInteractive:
		if input.InteractiveType != InteractiveTypeButton && input.InteractiveType != InteractiveTypeList {
			return fmt.Errorf("%w: interactive_type must be button or list", apperrors.ErrValidation)
		}
		if len(input.Interactive) == 0 {
			return fmt.Errorf("%w: interactive payload is required for interactive messages", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported message type %q", apperrors.ErrValidation, input.Type)
	}
	return nil
}

// SendMessage dispatches one outbound WhatsApp message. Exactly one Cloud API
// call is made, with no retries. On external failure nothing is persisted; on
// success one OUT message row is written with the WhatsApp-assigned ID and
// status sent, and the conversation is marked open in the same transaction.
func (s *CRMService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)
	startTime := utils.Now()

	if err := validateSendInput(input); err != nil {
		return nil, err
	}

	conversation, err := s.conversationRepo.FindByConversationID(ctx, input.ConversationID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, input.ConversationID)
		}
		return nil, err
	}

	contact, err := s.contactRepo.FindByContactID(ctx, conversation.ContactID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: contact %s for conversation %s", apperrors.ErrNotFound, conversation.ContactID, input.ConversationID)
		}
		return nil, err
	}

	account, err := s.accountRepo.FindActive(ctx)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			observer.ObserveDispatch(input.Type, companyID, "unconfigured", time.Since(startTime))
			return nil, fmt.Errorf("%w: no WhatsApp account configured", apperrors.ErrUnconfigured)
		}
		return nil, err
	}

	creds := whatsapp.Credentials{
		PhoneNumberID: account.PhoneNumberID,
		AccessToken:   account.AccessToken,
	}

	var waMessageID, content string
	switch input.Type {
	case model.MessageTypeText:
		content = input.Content
		waMessageID, err = s.waSender.SendText(ctx, creds, contact.PhoneNumber, input.Content)
	case model.MessageTypeTemplate:
		content = fmt.Sprintf("[Template: %s]", input.TemplateName)
		language := input.TemplateLanguage
		if language == "" {
			if tpl, tplErr := s.templateRepo.FindByName(ctx, input.TemplateName); tplErr == nil {
				language = tpl.Language
			}
		}
		waMessageID, err = s.waSender.SendTemplate(ctx, creds, contact.PhoneNumber, input.TemplateName, language, input.TemplateParams)
	case model.MessageTypeInteractive:
		content = fmt.Sprintf("[Interactive: %s]", input.InteractiveType)
		waMessageID, err = s.waSender.SendInteractive(ctx, creds, contact.PhoneNumber, input.Interactive)
	}
	if err != nil {
		observer.ObserveDispatch(input.Type, companyID, "external_failure", time.Since(startTime))
		loggerCtx.Warn("Outbound dispatch failed at WhatsApp API",
			zap.String("conversation_id", input.ConversationID),
			zap.String("message_type", input.Type),
			zap.Error(err))
		return nil, err
	}

	payload, marshalErr := json.Marshal(input)
	if marshalErr != nil {
		payload = nil
	}

	message := model.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversation.ConversationID,
		CompanyID:      companyID,
		Flow:           model.MessageFlowOutgoing,
		Type:           input.Type,
		Content:        content,
		WaMessageID:    waMessageID,
		Status:         model.MessageStatusSent,
		Payload:        datatypes.JSON(payload),
	}

	if err := s.messageRepo.RecordOutbound(ctx, message); err != nil {
		// At-most-once: the external send already happened. Log the WhatsApp
		// ID so the row can be reconciled, then surface the failure.
		observer.ObserveDispatch(input.Type, companyID, "persist_failure", time.Since(startTime))
		loggerCtx.Error("Outbound message sent but not persisted",
			zap.String("wa_message_id", waMessageID),
			zap.String("conversation_id", input.ConversationID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: message sent (wa_message_id %s) but persistence failed: %w", apperrors.ErrDatabase, waMessageID, err)
	}

	observer.ObserveDispatch(input.Type, companyID, "success", time.Since(startTime))
	loggerCtx.Info("Outbound message dispatched",
		zap.String("message_id", message.MessageID),
		zap.String("wa_message_id", waMessageID),
		zap.String("message_type", input.Type))

	return &SendMessageResult{
		MessageID:   message.MessageID,
		WaMessageID: waMessageID,
		Status:      message.Status,
	}, nil
}

// ProcessWebhook handles one inbound Cloud API delivery, which can batch
// receipts for several tenants. Each receipt is scoped to the tenant owning
// the phone number it arrived on; receipts for unregistered numbers are
// dropped. Only a malformed payload is an error, everything else is absorbed
// so the Cloud API stops redelivering.
func (s *CRMService) ProcessWebhook(ctx context.Context, body []byte) error {
	receipts, err := whatsapp.ParseReceipts(body)
	if err != nil {
		return err
	}

	loggerCtx := logger.FromContext(ctx)
	companyByPhone := make(map[string]string)

	for _, receipt := range receipts {
		companyID, seen := companyByPhone[receipt.PhoneNumberID]
		if !seen {
			account, findErr := s.accountRepo.FindByPhoneNumberID(ctx, receipt.PhoneNumberID)
			if findErr != nil {
				observer.IncWebhookReceipt(receipt.Status, "unknown", "unknown_account")
				loggerCtx.Warn("Dropping receipt for unregistered phone number",
					zap.String("phone_number_id", receipt.PhoneNumberID),
					zap.String("wa_message_id", receipt.WaMessageID),
					zap.Error(findErr))
				companyByPhone[receipt.PhoneNumberID] = ""
				continue
			}
			companyID = account.CompanyID
			companyByPhone[receipt.PhoneNumberID] = companyID
		}
		if companyID == "" {
			continue
		}

		scopedCtx := tenant.WithCompanyID(ctx, companyID)
		if applyErr := s.ApplyReceipt(scopedCtx, receipt.WaMessageID, receipt.Status); applyErr != nil {
			loggerCtx.Error("Failed to apply delivery receipt",
				zap.String("wa_message_id", receipt.WaMessageID),
				zap.String("receipt_status", receipt.Status),
				zap.Error(applyErr))
		}
	}
	return nil
}

// ApplyReceipt maps one delivery receipt onto the message state machine.
// Receipts for unknown messages and regressive transitions are ignored; the
// Cloud API redelivers and reorders receipts freely.
func (s *CRMService) ApplyReceipt(ctx context.Context, waMessageID, status string) error {
	companyID, _ := tenant.FromContext(ctx)

	err := s.messageRepo.UpdateStatus(ctx, waMessageID, status)
	switch {
	case err == nil:
		observer.IncWebhookReceipt(status, companyID, "applied")
		return nil
	case apperrors.IsNotFoundError(err):
		observer.IncWebhookReceipt(status, companyID, "unknown_message")
		logger.FromContext(ctx).Debug("Ignoring receipt for unknown message",
			zap.String("wa_message_id", waMessageID),
			zap.String("status", status))
		return nil
	case apperrors.IsConflictError(err):
		observer.IncWebhookReceipt(status, companyID, "stale")
		logger.FromContext(ctx).Debug("Ignoring stale receipt",
			zap.String("wa_message_id", waMessageID),
			zap.String("status", status))
		return nil
	default:
		observer.IncWebhookReceipt(status, companyID, "error")
		return err
	}
}
