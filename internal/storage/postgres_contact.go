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

// --- Contact Repository Methods ---

// SaveContact upserts a contact keyed by contact_id.
func (r *PostgresRepo) SaveContact(ctx context.Context, contact model.Contact) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != contact.CompanyID {
		return fmt.Errorf("%w: contact CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "contact_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"phone_number", "name", "notes", "tags", "assigned_to", "updated_at"}),
			}).
			Create(&contact).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveContact", operation)
	observer.ObserveDbOperationDuration("upsert", "contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save contact after retries",
			zap.String("contact_id", contact.ContactID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindContactByContactID finds a contact by its public identifier.
func (r *PostgresRepo) FindContactByContactID(ctx context.Context, contactID string) (*model.Contact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var contact model.Contact
	operation := func() error {
		result := r.db.WithContext(ctx).Where("contact_id = ? AND company_id = ?", contactID, companyID).First(&contact)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindContactByContactID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find contact by ContactID after retries",
			zap.String("contact_id", contactID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &contact, nil
}

// FindContactsByCompanyID returns a page of contacts for the tenant in context.
func (r *PostgresRepo) FindContactsByCompanyID(ctx context.Context, limit, offset int) ([]model.Contact, error) {
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

	var contacts []model.Contact
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("created_at DESC").
			Limit(limit).Offset(offset).
			Find(&contacts)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindContactsByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find contacts by CompanyID after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return contacts, nil
}
