package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

// --- Conversation Repository Methods ---

// SaveConversation upserts a conversation keyed by conversation_id.
func (r *PostgresRepo) SaveConversation(ctx context.Context, conversation model.Conversation) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != conversation.CompanyID {
		return fmt.Errorf("%w: conversation CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, conversation.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "conversation_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"status", "last_message", "last_message_at", "updated_at"}),
			}).
			Create(&conversation).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveConversation", operation)
	observer.ObserveDbOperationDuration("upsert", "conversation", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save conversation after retries",
			zap.String("conversation_id", conversation.ConversationID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindConversationByConversationID finds one conversation for the tenant in context.
func (r *PostgresRepo) FindConversationByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var conversation model.Conversation
	operation := func() error {
		result := r.db.WithContext(ctx).Where("conversation_id = ? AND company_id = ?", conversationID, companyID).First(&conversation)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindConversationByConversationID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find conversation after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &conversation, nil
}

// FindConversationsByCompanyID returns a page of conversations for the tenant
// in context, most recently active first. An empty status matches all.
func (r *PostgresRepo) FindConversationsByCompanyID(ctx context.Context, status string, limit, offset int) ([]model.Conversation, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var conversations []model.Conversation
	operation := func() error {
		query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
		if status != "" {
			query = query.Where("status = ?", status)
		}
		result := query.
			Order("last_message_at DESC NULLS LAST").
			Limit(limit).Offset(offset).
			Find(&conversations)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindConversationsByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find conversations by CompanyID after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return conversations, nil
}

// UpdateConversationStatus sets the lifecycle status of one conversation.
func (r *PostgresRepo) UpdateConversationStatus(ctx context.Context, conversationID, status string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if !model.IsValidConversationStatus(status) {
		return fmt.Errorf("%w: invalid conversation status %q", apperrors.ErrValidation, status)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Conversation{}).
			Where("conversation_id = ? AND company_id = ?", conversationID, companyID).
			Updates(map[string]interface{}{"status": status, "updated_at": utils.Now()})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: conversation %s not found for tenant %s", apperrors.ErrNotFound, conversationID, companyID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateConversationStatus", operation)
	observer.ObserveDbOperationDuration("update_status", "conversation", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update conversation status after retries",
			zap.String("conversation_id", conversationID),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
