package storage

import (
	"context"
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

// --- Quick Reply Repository Methods ---

// SaveQuickReply upserts a quick reply keyed by quick_reply_id.
func (r *PostgresRepo) SaveQuickReply(ctx context.Context, quickReply model.QuickReply) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != quickReply.CompanyID {
		return fmt.Errorf("%w: quick reply CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, quickReply.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "quick_reply_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"shortcut", "content", "updated_at"}),
			}).
			Create(&quickReply).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveQuickReply", operation)
	observer.ObserveDbOperationDuration("upsert", "quick_reply", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save quick reply after retries",
			zap.String("quick_reply_id", quickReply.QuickReplyID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindQuickRepliesByCompanyID returns all quick replies for the tenant in context.
func (r *PostgresRepo) FindQuickRepliesByCompanyID(ctx context.Context) ([]model.QuickReply, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var quickReplies []model.QuickReply
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("shortcut ASC").Find(&quickReplies)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindQuickRepliesByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find quick replies after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return quickReplies, nil
}

// DeleteQuickReply removes a quick reply.
func (r *PostgresRepo) DeleteQuickReply(ctx context.Context, quickReplyID string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("quick_reply_id = ? AND company_id = ?", quickReplyID, companyID).
			Delete(&model.QuickReply{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: quick reply %s not found for tenant %s", apperrors.ErrNotFound, quickReplyID, companyID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteQuickReply", operation)
	observer.ObserveDbOperationDuration("delete", "quick_reply", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete quick reply after retries",
			zap.String("quick_reply_id", quickReplyID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// --- Tag Repository Methods ---

// SaveTag upserts a tag keyed by tag_id.
func (r *PostgresRepo) SaveTag(ctx context.Context, tag model.Tag) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != tag.CompanyID {
		return fmt.Errorf("%w: tag CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, tag.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tag_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "color", "updated_at"}),
			}).
			Create(&tag).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveTag", operation)
	observer.ObserveDbOperationDuration("upsert", "tag", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save tag after retries",
			zap.String("tag_id", tag.TagID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindTagsByCompanyID returns all tags for the tenant in context.
func (r *PostgresRepo) FindTagsByCompanyID(ctx context.Context) ([]model.Tag, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var tags []model.Tag
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name ASC").Find(&tags)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTagsByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find tags after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return tags, nil
}

// DeleteTag removes a tag.
func (r *PostgresRepo) DeleteTag(ctx context.Context, tagID string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("tag_id = ? AND company_id = ?", tagID, companyID).
			Delete(&model.Tag{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: tag %s not found for tenant %s", apperrors.ErrNotFound, tagID, companyID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteTag", operation)
	observer.ObserveDbOperationDuration("delete", "tag", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete tag after retries",
			zap.String("tag_id", tagID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
