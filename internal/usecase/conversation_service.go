package usecase

import (
	"context"
	"fmt"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
)

// ListConversations returns a page of the tenant's conversations, optionally
// filtered by status.
func (s *CRMService) ListConversations(ctx context.Context, status string, limit, offset int) ([]model.Conversation, error) {
	if status != "" && !model.IsValidConversationStatus(status) {
		return nil, fmt.Errorf("%w: invalid conversation status %q", apperrors.ErrValidation, status)
	}
	return s.conversationRepo.FindByCompanyID(ctx, status, limit, offset)
}

// GetConversation returns one conversation by its public identifier.
func (s *CRMService) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return s.conversationRepo.FindByConversationID(ctx, conversationID)
}

// ListMessages returns a page of messages in a conversation, newest first. The
// conversation is resolved first so an unknown ID yields NotFound rather than
// an empty page.
func (s *CRMService) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	if _, err := s.conversationRepo.FindByConversationID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messageRepo.FindByConversationID(ctx, conversationID, limit, offset)
}

// UpdateConversationStatus moves a conversation through its lifecycle
// (open|pending|resolved|spam).
func (s *CRMService) UpdateConversationStatus(ctx context.Context, conversationID, status string) error {
	if !model.IsValidConversationStatus(status) {
		return fmt.Errorf("%w: invalid conversation status %q", apperrors.ErrValidation, status)
	}
	return s.conversationRepo.UpdateStatus(ctx, conversationID, status)
}
