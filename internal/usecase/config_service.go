package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

// defaultAgentName is the name given to the agent created on first use of the
// tenant-level config endpoints.
const defaultAgentName = "Default"

// emptySection is what reads of absent sections return.
var emptySection = json.RawMessage(`{}`)

// GetSection returns one section of an agent's config document. An absent
// document or key reads as an empty object, never an error; unknown section
// names are allowed on the read path.
func (s *CRMService) GetSection(ctx context.Context, agentID, section string) (json.RawMessage, error) {
	agent, err := s.agentRepo.FindByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	sections, err := model.DecodeConfigDocument(agent.Config)
	if err != nil {
		// A corrupt stored document still reads as empty rather than failing
		// the dashboard; the next write repairs it.
		logger.FromContext(ctx).Warn("Stored config document is malformed, reading as empty",
			zap.String("agent_id", agentID), zap.Error(err))
		return emptySection, nil
	}

	raw, ok := sections[section]
	if !ok || len(raw) == 0 {
		return emptySection, nil
	}
	return raw, nil
}

// SetSection validates payload against the section's typed schema, merges it
// into the agent's config document under the section key, persists the whole
// document in a single UPDATE, and returns the merged document. Sibling
// sections are never altered.
func (s *CRMService) SetSection(ctx context.Context, agentID, section string, payload json.RawMessage) (map[string]json.RawMessage, error) {
	if !model.IsKnownSection(section) {
		return nil, fmt.Errorf("%w: unknown config section %q", apperrors.ErrValidation, section)
	}
	if err := model.ValidateSection(section, payload); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	agent, err := s.agentRepo.FindByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	sections, err := model.DecodeConfigDocument(agent.Config)
	if err != nil {
		logger.FromContext(ctx).Warn("Stored config document is malformed, starting fresh",
			zap.String("agent_id", agentID), zap.Error(err))
		sections = map[string]json.RawMessage{}
	}

	sections[section] = payload

	doc, err := model.EncodeConfigDocument(sections)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBadRequest, err)
	}
	if err := s.agentRepo.UpdateConfig(ctx, agentID, doc); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Agent config section updated",
		zap.String("agent_id", agentID),
		zap.String("section", section))
	return sections, nil
}

// resolveDefaultAgent returns the tenant's default agent, creating one named
// "Default" (and marking it default) when the tenant has none. Backs the
// legacy tenant-level config endpoints.
func (s *CRMService) resolveDefaultAgent(ctx context.Context) (*model.Agent, error) {
	agent, err := s.agentRepo.FindDefault(ctx)
	if err == nil {
		return agent, nil
	}
	if !apperrors.IsNotFoundError(err) {
		return nil, err
	}

	created, createErr := s.CreateAgent(ctx, CreateAgentInput{Name: defaultAgentName, IsDefault: true})
	if createErr != nil {
		// Lost a race with a concurrent creator; the winner's agent serves.
		if apperrors.IsDuplicateError(createErr) || apperrors.IsConflictError(createErr) {
			return s.agentRepo.FindDefault(ctx)
		}
		return nil, createErr
	}
	return created, nil
}

// GetTenantSection reads a section of the tenant's default-agent config,
// creating the default agent on first use.
func (s *CRMService) GetTenantSection(ctx context.Context, section string) (json.RawMessage, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	agent, err := s.resolveDefaultAgent(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetSection(ctx, agent.AgentID, section)
}

// SetTenantSection writes a section of the tenant's default-agent config,
// creating the default agent on first use.
func (s *CRMService) SetTenantSection(ctx context.Context, section string, payload json.RawMessage) (map[string]json.RawMessage, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	agent, err := s.resolveDefaultAgent(ctx)
	if err != nil {
		return nil, err
	}
	return s.SetSection(ctx, agent.AgentID, section, payload)
}

// GetTenantConfig returns the whole config document of the tenant's default
// agent as a section map.
func (s *CRMService) GetTenantConfig(ctx context.Context) (map[string]json.RawMessage, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	agent, err := s.resolveDefaultAgent(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := model.DecodeConfigDocument(agent.Config)
	if err != nil {
		logger.FromContext(ctx).Warn("Stored config document is malformed, reading as empty",
			zap.String("agent_id", agent.AgentID), zap.Error(err))
		return map[string]json.RawMessage{}, nil
	}
	return sections, nil
}
