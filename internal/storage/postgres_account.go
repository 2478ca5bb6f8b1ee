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

// --- WhatsApp Account Repository Methods ---

// SaveAccount upserts a WhatsApp account keyed by account_id.
func (r *PostgresRepo) SaveAccount(ctx context.Context, account model.WhatsAppAccount) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != account.CompanyID {
		return fmt.Errorf("%w: account CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, account.CompanyID, companyID)
	}

	operation := func() error {
		saveErr := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"phone_number_id", "access_token", "display_name", "active", "updated_at"}),
			}).
			Create(&account).Error
		if saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveAccount", operation)
	observer.ObserveDbOperationDuration("upsert", "whatsapp_account", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save WhatsApp account after retries",
			zap.String("account_id", account.AccountID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindAccountByAccountID finds a WhatsApp account by its public identifier.
func (r *PostgresRepo) FindAccountByAccountID(ctx context.Context, accountID string) (*model.WhatsAppAccount, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var account model.WhatsAppAccount
	operation := func() error {
		result := r.db.WithContext(ctx).Where("account_id = ? AND company_id = ?", accountID, companyID).First(&account)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindAccountByAccountID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find WhatsApp account after retries",
			zap.String("account_id", accountID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &account, nil
}

// FindAccountsByCompanyID returns all WhatsApp accounts for the tenant in context.
func (r *PostgresRepo) FindAccountsByCompanyID(ctx context.Context) ([]model.WhatsAppAccount, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var accounts []model.WhatsAppAccount
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("created_at ASC").Find(&accounts)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindAccountsByCompanyID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find WhatsApp accounts after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return accounts, nil
}

// FindActiveAccount returns the credentials the dispatcher should use: the
// oldest active row, falling back to the oldest row of any state. ErrNotFound
// means the tenant has no account configured at all.
func (r *PostgresRepo) FindActiveAccount(ctx context.Context) (*model.WhatsAppAccount, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var account model.WhatsAppAccount
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("active DESC, created_at ASC").
			First(&account)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindActiveAccount", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find active WhatsApp account after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &account, nil
}

// FindAccountByPhoneNumberID resolves which tenant a Cloud API phone number
// belongs to. Webhook deliveries carry no session, so this lookup deliberately
// skips the tenant guard; callers scope everything after it by the returned
// CompanyID.
func (r *PostgresRepo) FindAccountByPhoneNumberID(ctx context.Context, phoneNumberID string) (*model.WhatsAppAccount, error) {
	if phoneNumberID == "" {
		return nil, fmt.Errorf("%w: phone number ID is empty", apperrors.ErrBadRequest)
	}

	var account model.WhatsAppAccount
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("phone_number_id = ?", phoneNumberID).
			Order("active DESC, created_at ASC").
			First(&account)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindAccountByPhoneNumberID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to resolve WhatsApp account by phone number after retries",
			zap.String("phone_number_id", phoneNumberID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &account, nil
}

// DeleteAccount removes a WhatsApp account.
func (r *PostgresRepo) DeleteAccount(ctx context.Context, accountID string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("account_id = ? AND company_id = ?", accountID, companyID).
			Delete(&model.WhatsAppAccount{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: account %s not found for tenant %s", apperrors.ErrNotFound, accountID, companyID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteAccount", operation)
	observer.ObserveDbOperationDuration("delete", "whatsapp_account", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to delete WhatsApp account after retries",
			zap.String("account_id", accountID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
