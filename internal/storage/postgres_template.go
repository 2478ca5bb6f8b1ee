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

// --- Message Template Repository Methods ---

// SaveTemplate upserts a message template keyed by template_id.
func (r *PostgresRepo) SaveTemplate(ctx context.Context, template model.MessageTemplate) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != template.CompanyID {
		return fmt.Errorf("%w: template CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, template.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "template_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "language", "category", "components", "updated_at"}),
			}).
			Create(&template).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveTemplate", operation)
	observer.ObserveDbOperationDuration("upsert", "message_template", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save template after retries",
			zap.String("template_id", template.TemplateID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindTemplateByTemplateID finds a template by its public identifier.
func (r *PostgresRepo) FindTemplateByTemplateID(ctx context.Context, templateID string) (*model.MessageTemplate, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var template model.MessageTemplate
	operation := func() error {
		result := r.db.WithContext(ctx).Where("template_id = ? AND company_id = ?", templateID, companyID).First(&template)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTemplateByTemplateID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find template by TemplateID after retries",
			zap.String("template_id", templateID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &template, nil
}

// FindTemplateByName finds a template by its WhatsApp template name, used when
// dispatching a template message addressed by name.
func (r *PostgresRepo) FindTemplateByName(ctx context.Context, name string) (*model.MessageTemplate, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var template model.MessageTemplate
	operation := func() error {
		result := r.db.WithContext(ctx).Where("name = ? AND company_id = ?", name, companyID).First(&template)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTemplateByName", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find template by name after retries",
			zap.String("name", name),
			zap.Error(findErr))
		return nil, findErr
	}
	return &template, nil
}

// FindTemplatesByCompanyID returns all templates for the tenant in context.
func (r *PostgresRepo) FindTemplatesByCompanyID(ctx context.Context) ([]model.MessageTemplate, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var templates []model.MessageTemplate
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("name ASC").Find(&templates)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTemplatesByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find templates by CompanyID after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (r *PostgresRepo) DeleteTemplate(ctx context.Context, templateID string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("template_id = ? AND company_id = ?", templateID, companyID).
			Delete(&model.MessageTemplate{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: template %s not found for tenant %s", apperrors.ErrNotFound, templateID, companyID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteTemplate", operation)
	observer.ObserveDbOperationDuration("delete", "message_template", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete template after retries",
			zap.String("template_id", templateID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
