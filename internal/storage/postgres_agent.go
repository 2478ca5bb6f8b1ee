package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/utils"
)

// --- Agent Repository Methods ---

// CreateAgent inserts a new agent row for the tenant in context.
func (r *PostgresRepo) CreateAgent(ctx context.Context, agent model.Agent) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != agent.CompanyID {
		return fmt.Errorf("%w: agent CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, agent.CompanyID, companyID)
	}

	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(&agent).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "CreateAgent", operation)
	observer.ObserveDbOperationDuration("create", "agent", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to create agent after retries", zap.String("agent_id", agent.AgentID), zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateAgent replaces the mutable columns of an existing agent (name, config).
// The is_default flag has its own transactional path in SetDefaultAgent.
func (r *PostgresRepo) UpdateAgent(ctx context.Context, agent model.Agent) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	agent.UpdatedAt = utils.Now()

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
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existingAgent model.Agent
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_id = ? AND company_id = ?", agent.AgentID, companyID).
			First(&existingAgent)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: agent not found for update (AgentID: %s, CompanyID: %s): %w", apperrors.ErrNotFound, agent.AgentID, companyID, findErr)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock agent row for update: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		updates := map[string]interface{}{
			"name":       agent.Name,
			"config":     agent.Config,
			"updated_at": agent.UpdatedAt,
		}
		if updateErr := tx.Model(&model.Agent{}).Where("id = ?", existingAgent.ID).Updates(updates).Error; updateErr != nil {
			txErr = checkConstraintViolation(updateErr)
			return txErr
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateAgent Commit", operation)
	observer.ObserveDbOperationDuration("update", "agent", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update agent after retries", zap.String("agent_id", agent.AgentID), zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateAgentConfig persists the whole config document in a single UPDATE.
func (r *PostgresRepo) UpdateAgentConfig(ctx context.Context, agentID string, config datatypes.JSON) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	operation := func() error {
		updateResult := r.db.WithContext(ctx).Model(&model.Agent{}).
			Where("agent_id = ? AND company_id = ?", agentID, companyID).
			Updates(map[string]interface{}{"config": config, "updated_at": utils.Now()})

		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}
		if updateResult.RowsAffected == 0 {
			return fmt.Errorf("%w: agent_id %s not found for config update", apperrors.ErrNotFound, agentID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateAgentConfig", operation)
	observer.ObserveDbOperationDuration("update", "agent_config", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to update agent config after retries",
			zap.String("agent_id", agentID),
			zap.String("company_id", companyID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// SetDefaultAgent promotes one agent to the tenant default. The sibling clear,
// the flag set, and the tenants.default_agent_id pointer update all happen in
// one transaction; the partial unique index on (company_id) WHERE is_default
// is the backstop against concurrent writers.
func (r *PostgresRepo) SetDefaultAgent(ctx context.Context, agentID string) error {
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

		// Lock the target row first; it must exist and belong to the tenant.
		var target model.Agent
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_id = ? AND company_id = ?", agentID, companyID).
			First(&target)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: agent %s not found for tenant %s", apperrors.ErrNotFound, agentID, companyID)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock agent row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		// Clear siblings before setting the flag so the partial unique index
		// never sees two defaults within the transaction.
		if clearErr := tx.Model(&model.Agent{}).
			Where("company_id = ? AND is_default = ? AND agent_id <> ?", companyID, true, agentID).
			Updates(map[string]interface{}{"is_default": false, "updated_at": utils.Now()}).Error; clearErr != nil {
			txErr = checkConstraintViolation(clearErr)
			return txErr
		}

		if setErr := tx.Model(&model.Agent{}).
			Where("id = ?", target.ID).
			Updates(map[string]interface{}{"is_default": true, "updated_at": utils.Now()}).Error; setErr != nil {
			txErr = checkConstraintViolation(setErr)
			return txErr
		}

		pointerResult := tx.Model(&model.Tenant{}).
			Where("company_id = ?", companyID).
			Updates(map[string]interface{}{"default_agent_id": agentID, "updated_at": utils.Now()})
		if pointerResult.Error != nil {
			txErr = checkConstraintViolation(pointerResult.Error)
			return txErr
		}
		if pointerResult.RowsAffected == 0 {
			txErr = fmt.Errorf("%w: tenant %s not found for default pointer update", apperrors.ErrNotFound, companyID)
			return backoff.Permanent(txErr)
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit default agent transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SetDefaultAgent Commit", operation)
	observer.ObserveDbOperationDuration("set_default", "agent", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to set default agent after retries",
			zap.String("agent_id", agentID),
			zap.String("company_id", companyID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// DeleteAgent removes an agent. When the deleted agent was the tenant default,
// tenants.default_agent_id is nulled in the same transaction; deleting a
// non-default agent never touches the pointer.
func (r *PostgresRepo) DeleteAgent(ctx context.Context, agentID string) error {
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

		var existingAgent model.Agent
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_id = ? AND company_id = ?", agentID, companyID).
			First(&existingAgent)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: agent %s not found for tenant %s", apperrors.ErrNotFound, agentID, companyID)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock agent row for delete: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if deleteErr := tx.Where("id = ?", existingAgent.ID).Delete(&model.Agent{}).Error; deleteErr != nil {
			txErr = checkConstraintViolation(deleteErr)
			return txErr
		}

		if existingAgent.IsDefault {
			if pointerErr := tx.Model(&model.Tenant{}).
				Where("company_id = ?", companyID).
				Updates(map[string]interface{}{"default_agent_id": nil, "updated_at": utils.Now()}).Error; pointerErr != nil {
				txErr = checkConstraintViolation(pointerErr)
				return txErr
			}
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit delete transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteAgent Commit", operation)
	observer.ObserveDbOperationDuration("delete", "agent", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to delete agent after retries",
			zap.String("agent_id", agentID),
			zap.String("company_id", companyID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindAgentByAgentID finds an agent by its public identifier.
func (r *PostgresRepo) FindAgentByAgentID(ctx context.Context, agentID string) (*model.Agent, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var agent model.Agent
	operation := func() error {
		result := r.db.WithContext(ctx).Where("agent_id = ? AND company_id = ?", agentID, companyID).First(&agent)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindAgentByAgentID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find agent by AgentID after retries",
			zap.String("agent_id", agentID),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &agent, nil
}

// FindAgentsByCompanyID finds all agents for the tenant in context.
func (r *PostgresRepo) FindAgentsByCompanyID(ctx context.Context, companyID string) ([]model.Agent, error) {
	contextCompanyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if contextCompanyID != companyID {
		return nil, fmt.Errorf("%w: requested CompanyID %s does not match context tenant ID %s", apperrors.ErrUnauthorized, companyID, contextCompanyID)
	}
	loggerCtx := logger.FromContext(ctx)

	var agents []model.Agent
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("created_at ASC").Find(&agents)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindAgentsByCompanyID", operation)

	if findErr != nil {
		loggerCtx.Error("Failed to find agents by CompanyID after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return agents, nil
}

// FindDefaultAgent returns the agent currently flagged default for the tenant
// in context, or ErrNotFound when none is marked.
func (r *PostgresRepo) FindDefaultAgent(ctx context.Context) (*model.Agent, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var agent model.Agent
	operation := func() error {
		result := r.db.WithContext(ctx).Where("company_id = ? AND is_default = ?", companyID, true).First(&agent)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindDefaultAgent", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find default agent after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &agent, nil
}
