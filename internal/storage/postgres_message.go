package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

// --- Message Repository Methods ---

// SaveMessage inserts a single message row.
func (r *PostgresRepo) SaveMessage(ctx context.Context, message model.Message) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != message.CompanyID {
		return fmt.Errorf("%w: message CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.CompanyID, companyID)
	}

	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(&message).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveMessage", operation)
	observer.ObserveDbOperationDuration("create", "message", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save message after retries", zap.String("message_id", message.MessageID), zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// RecordOutbound persists an accepted outbound message and refreshes its
// conversation (status open, last_message fields) in one transaction. Called
// only after the external send succeeded; nothing is written on failure paths.
func (r *PostgresRepo) RecordOutbound(ctx context.Context, message model.Message) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != message.CompanyID {
		return fmt.Errorf("%w: message CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, message.CompanyID, companyID)
	}
	loggerCtx := logger.FromContext(ctx)

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		if createErr := tx.Create(&message).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return txErr
		}

		now := utils.Now()
		convResult := tx.Model(&model.Conversation{}).
			Where("conversation_id = ? AND company_id = ?", message.ConversationID, companyID).
			Updates(map[string]interface{}{
				"status":          model.ConversationStatusOpen,
				"last_message":    message.Content,
				"last_message_at": now,
				"updated_at":      now,
			})
		if convResult.Error != nil {
			txErr = checkConstraintViolation(convResult.Error)
			return txErr
		}
		if convResult.RowsAffected == 0 {
			txErr = fmt.Errorf("%w: conversation %s not found for tenant %s", apperrors.ErrNotFound, message.ConversationID, companyID)
			return backoff.Permanent(txErr)
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit outbound message transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "RecordOutbound Commit", operation)
	observer.ObserveDbOperationDuration("record_outbound", "message", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to record outbound message after retries",
			zap.String("message_id", message.MessageID),
			zap.String("wa_message_id", message.WaMessageID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindMessageByMessageID finds a message by its internal public ID.
func (r *PostgresRepo) FindMessageByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var message model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).Where("message_id = ? AND company_id = ?", messageID, companyID).First(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindMessageByMessageID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find message by MessageID after retries",
			zap.String("message_id", messageID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &message, nil
}

// FindMessageByWaMessageID finds a message by the WhatsApp-assigned ID, used
// to correlate delivery receipts.
func (r *PostgresRepo) FindMessageByWaMessageID(ctx context.Context, waMessageID string) (*model.Message, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var message model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).Where("wa_message_id = ? AND company_id = ?", waMessageID, companyID).First(&message)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindMessageByWaMessageID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find message by WaMessageID after retries",
			zap.String("wa_message_id", waMessageID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &message, nil
}

// FindMessagesByConversationID returns a page of messages for one
// conversation, newest first.
func (r *PostgresRepo) FindMessagesByConversationID(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
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

	var messages []model.Message
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("conversation_id = ? AND company_id = ?", conversationID, companyID).
			Order("created_at DESC").
			Limit(limit).Offset(offset).
			Find(&messages)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindMessagesByConversationID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find messages by ConversationID after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(findErr))
		return nil, findErr
	}
	return messages, nil
}

// UpdateMessageStatus advances a message's delivery status, identified by the
// WhatsApp-assigned ID. Regressive transitions are rejected with ErrConflict;
// a receipt for an unknown message returns ErrNotFound so webhook handlers can
// ignore it.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, waMessageID, status string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var message model.Message
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("wa_message_id = ? AND company_id = ?", waMessageID, companyID).
			First(&message)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: no message with wa_message_id %s", apperrors.ErrNotFound, waMessageID)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock message row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if !model.CanTransitionStatus(message.Status, status) {
			txErr = fmt.Errorf("%w: illegal status transition %s -> %s for wa_message_id %s", apperrors.ErrConflict, message.Status, status, waMessageID)
			return backoff.Permanent(txErr)
		}

		if updateErr := tx.Model(&model.Message{}).
			Where("id = ?", message.ID).
			Select(model.MessageUpdatableFields()).
			Updates(map[string]interface{}{"status": status, "updated_at": utils.Now()}).Error; updateErr != nil {
			txErr = checkConstraintViolation(updateErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit status update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateMessageStatus Commit", operation)
	observer.ObserveDbOperationDuration("update_status", "message", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to update message status after retries",
			zap.String("wa_message_id", waMessageID),
			zap.String("status", status),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
