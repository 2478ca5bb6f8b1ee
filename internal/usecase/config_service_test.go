package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

const testCompanyID = "company-test-1"

func testContext(t *testing.T) context.Context {
	logger.Log = zaptest.NewLogger(t).Named("test")
	return tenant.WithCompanyID(context.Background(), testCompanyID)
}

func seedAgent(h *testHarness, agentID string, config string) {
	h.agents.agents[agentID] = &model.Agent{
		AgentID:   agentID,
		CompanyID: testCompanyID,
		Name:      "Seeded",
		Config:    []byte(config),
	}
}

func TestGetSection_FreshAgentReturnsEmptyObject(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", "")

	raw, err := h.service.GetSection(ctx, "agent-1", "profile")

	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestGetSection_UnknownSectionNameAllowedOnRead(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", `{"profile":{"name":"Bot"}}`)

	raw, err := h.service.GetSection(ctx, "agent-1", "no-such-section")

	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestGetSection_AgentNotFound(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)

	_, err := h.service.GetSection(ctx, "agent-missing", "profile")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetSection_MergeIsNonDestructive(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", `{"profile":{"name":"Bot","tone":"friendly"},"prompt":{"system":"original"}}`)

	doc, err := h.service.SetSection(ctx, "agent-1", "prompt", json.RawMessage(`{"system":"replaced"}`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bot","tone":"friendly"}`, string(doc["profile"]))
	assert.JSONEq(t, `{"system":"replaced"}`, string(doc["prompt"]))

	// Round-trip through the persisted document too.
	raw, err := h.service.GetSection(ctx, "agent-1", "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bot","tone":"friendly"}`, string(raw))
}

func TestSetSection_UnknownSectionRejectedOnWrite(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", "")

	_, err := h.service.SetSection(ctx, "agent-1", "no-such-section", json.RawMessage(`{}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, h.agents.configCalls)
}

func TestSetSection_SchemaViolationRejected(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", "")

	// Unknown field inside a known section.
	_, err := h.service.SetSection(ctx, "agent-1", "profile", json.RawMessage(`{"nam":"typo"}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, h.agents.configCalls)
}

func TestSetSection_SingleUpdatePersistsWholeDocument(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)
	seedAgent(h, "agent-1", `{"behavior":{"auto_reply":true}}`)

	_, err := h.service.SetSection(ctx, "agent-1", "profile", json.RawMessage(`{"name":"Bot"}`))

	require.NoError(t, err)
	assert.Equal(t, 1, h.agents.configCalls)

	var persisted map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(h.agents.lastConfig, &persisted))
	assert.Contains(t, persisted, "behavior")
	assert.Contains(t, persisted, "profile")
}

func TestTenantConfig_FetchOrCreateDefaultAgent(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)

	// No agents yet: reading a section must create the default agent.
	raw, err := h.service.GetTenantSection(ctx, "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	def, err := h.agents.FindDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Default", def.Name)
	assert.True(t, def.IsDefault)

	// A second call reuses the same agent.
	_, err = h.service.SetTenantSection(ctx, "profile", json.RawMessage(`{"name":"Tenant Bot"}`))
	require.NoError(t, err)

	agents, err := h.agents.FindByCompanyID(ctx, testCompanyID)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}

func TestCreateAgent_FirstAgentBecomesDefault(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)

	first, err := h.service.CreateAgent(ctx, CreateAgentInput{Name: "First"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := h.service.CreateAgent(ctx, CreateAgentInput{Name: "Second"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// At most one default.
	agents, _ := h.agents.FindByCompanyID(ctx, testCompanyID)
	defaults := 0
	for _, a := range agents {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestUpdateAgent_PromoteSwapsDefault(t *testing.T) {
	h := newTestHarness()
	ctx := testContext(t)

	first, err := h.service.CreateAgent(ctx, CreateAgentInput{Name: "First"})
	require.NoError(t, err)
	second, err := h.service.CreateAgent(ctx, CreateAgentInput{Name: "Second"})
	require.NoError(t, err)

	promote := true
	updated, err := h.service.UpdateAgent(ctx, second.AgentID, UpdateAgentInput{IsDefault: &promote})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	oldDefault, err := h.agents.FindByAgentID(ctx, first.AgentID)
	require.NoError(t, err)
	assert.False(t, oldDefault.IsDefault)
}
