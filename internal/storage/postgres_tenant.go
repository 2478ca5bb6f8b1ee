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

// --- Tenant Repository Methods ---

// FindTenantByCompanyID loads the tenant row for the given company ID. The
// caller's context tenant must match.
func (r *PostgresRepo) FindTenantByCompanyID(ctx context.Context, companyID string) (*model.Tenant, error) {
	contextCompanyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if contextCompanyID != companyID {
		return nil, fmt.Errorf("%w: requested CompanyID %s does not match context tenant ID %s", apperrors.ErrUnauthorized, companyID, contextCompanyID)
	}

	var row model.Tenant
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&row)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTenantByCompanyID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find tenant after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &row, nil
}

// EnsureTenant returns the tenant row for companyID, creating it when absent.
// Concurrent creators race on the unique index; the loser re-reads the winner's
// row, so both callers see the same record.
func (r *PostgresRepo) EnsureTenant(ctx context.Context, companyID string) (*model.Tenant, error) {
	contextCompanyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if contextCompanyID != companyID {
		return nil, fmt.Errorf("%w: requested CompanyID %s does not match context tenant ID %s", apperrors.ErrUnauthorized, companyID, contextCompanyID)
	}

	var row model.Tenant
	operation := func() error {
		seed := model.Tenant{CompanyID: companyID}
		insertResult := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "company_id"}},
				DoNothing: true,
			}).
			Create(&seed)
		if insertResult.Error != nil {
			return checkConstraintViolation(insertResult.Error)
		}

		findResult := r.db.WithContext(ctx).Where("company_id = ?", companyID).First(&row)
		if findResult.Error != nil {
			return checkConstraintViolation(findResult.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "EnsureTenant", operation)
	observer.ObserveDbOperationDuration("upsert", "tenant", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to ensure tenant after retries",
			zap.String("company_id", companyID),
			zap.Error(commitErr))
		return nil, commitErr
	}
	return &row, nil
}
