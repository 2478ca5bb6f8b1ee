package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

// CreateAgentInput is the payload for creating an agent.
type CreateAgentInput struct {
	Name      string `json:"name" validate:"required,max=255"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// UpdateAgentInput is the payload for updating an agent.
type UpdateAgentInput struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=255"`
	IsDefault *bool  `json:"is_default,omitempty"`
}

// CreateAgent creates a new agent for the tenant in context. The first agent a
// tenant creates becomes its default automatically; callers can also request
// the flag explicitly.
func (s *CRMService) CreateAgent(ctx context.Context, input CreateAgentInput) (*model.Agent, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: agent name is required", apperrors.ErrValidation)
	}

	if _, err := s.tenantRepo.EnsureTenant(ctx, companyID); err != nil {
		return nil, err
	}

	existing, err := s.agentRepo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	agent := model.Agent{
		AgentID:   uuid.NewString(),
		CompanyID: companyID,
		Name:      input.Name,
	}
	if err := s.agentRepo.Create(ctx, agent); err != nil {
		return nil, err
	}

	if input.IsDefault || len(existing) == 0 {
		if err := s.agentRepo.SetDefault(ctx, agent.AgentID); err != nil {
			return nil, err
		}
		agent.IsDefault = true
	}

	logger.FromContext(ctx).Info("Agent created",
		zap.String("agent_id", agent.AgentID),
		zap.Bool("is_default", agent.IsDefault))
	return &agent, nil
}

// ListAgents returns all agents for the tenant in context.
func (s *CRMService) ListAgents(ctx context.Context) ([]model.Agent, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	return s.agentRepo.FindByCompanyID(ctx, companyID)
}

// GetAgent returns one agent by its public identifier.
func (s *CRMService) GetAgent(ctx context.Context, agentID string) (*model.Agent, error) {
	return s.agentRepo.FindByAgentID(ctx, agentID)
}

// UpdateAgent renames an agent and, when IsDefault is set true, promotes it to
// the tenant default in one transaction. IsDefault false is ignored: a default
// is only ever cleared by promoting another agent or deleting this one.
func (s *CRMService) UpdateAgent(ctx context.Context, agentID string, input UpdateAgentInput) (*model.Agent, error) {
	agent, err := s.agentRepo.FindByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != agent.Name {
		agent.Name = input.Name
		if err := s.agentRepo.Update(ctx, *agent); err != nil {
			return nil, err
		}
	}

	if input.IsDefault != nil && *input.IsDefault && !agent.IsDefault {
		if err := s.agentRepo.SetDefault(ctx, agentID); err != nil {
			return nil, err
		}
		agent.IsDefault = true
	}

	return agent, nil
}

// SetDefaultAgent promotes the named agent to the tenant default.
func (s *CRMService) SetDefaultAgent(ctx context.Context, agentID string) error {
	return s.agentRepo.SetDefault(ctx, agentID)
}

// DeleteAgent removes an agent; the storage layer nulls the tenant default
// pointer in the same transaction when the deleted agent held the flag.
func (s *CRMService) DeleteAgent(ctx context.Context, agentID string) error {
	if err := s.agentRepo.Delete(ctx, agentID); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Agent deleted", zap.String("agent_id", agentID))
	return nil
}
