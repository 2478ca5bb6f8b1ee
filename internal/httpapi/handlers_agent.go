package httpapi

import (
	"encoding/json"
	"net/http"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/usecase"
)

// ListAgents returns all agents of the tenant.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.service.ListAgents(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// CreateAgent creates a new agent.
func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.CreateAgentInput](w, r)
	if !ok {
		return
	}
	agent, err := h.service.CreateAgent(r.Context(), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

// GetAgent returns one agent by ID.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.service.GetAgent(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// UpdateAgent renames an agent or promotes it to the tenant default.
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[usecase.UpdateAgentInput](w, r)
	if !ok {
		return
	}
	agent, err := h.service.UpdateAgent(r.Context(), urlParam(r, "id"), input)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// SetDefaultAgent promotes one agent to the tenant default.
func (h *Handlers) SetDefaultAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SetDefaultAgent(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAgent removes an agent.
func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAgent(r.Context(), urlParam(r, "id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAgentConfigSection reads one section of an agent's config document.
func (h *Handlers) GetAgentConfigSection(w http.ResponseWriter, r *http.Request) {
	raw, err := h.service.GetSection(r.Context(), urlParam(r, "id"), urlParam(r, "section"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// SetAgentConfigSection writes one section and returns the merged document.
func (h *Handlers) SetAgentConfigSection(w http.ResponseWriter, r *http.Request) {
	payload, ok := readJSON[json.RawMessage](w, r)
	if !ok {
		return
	}
	doc, err := h.service.SetSection(r.Context(), urlParam(r, "id"), urlParam(r, "section"), payload)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetTenantConfig serves the legacy tenant-level config read. With ?section=
// it returns that section only, otherwise the whole document.
func (h *Handlers) GetTenantConfig(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section != "" {
		raw, err := h.service.GetTenantSection(r.Context(), section)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, raw)
		return
	}

	doc, err := h.service.GetTenantConfig(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// tenantConfigWrite is the legacy tenant-level config write body.
type tenantConfigWrite struct {
	Section string          `json:"section"`
	Payload json.RawMessage `json:"payload"`
}

// SetTenantConfig serves the legacy tenant-level config write.
func (h *Handlers) SetTenantConfig(w http.ResponseWriter, r *http.Request) {
	input, ok := readJSON[tenantConfigWrite](w, r)
	if !ok {
		return
	}
	if input.Section == "" {
		writeError(w, http.StatusBadRequest, "section is required")
		return
	}
	doc, err := h.service.SetTenantSection(r.Context(), input.Section, input.Payload)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
