package model

import (
	"time"

	"gorm.io/datatypes"
)

// Agent represents the agents table structure, an AI auto-reply configuration
// belonging to one tenant. At most one agent per tenant carries is_default=true,
// enforced by a partial unique index on (company_id) WHERE is_default.
type Agent struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// AgentID is the public identifier for the agent.
	AgentID string `json:"agent_id" gorm:"column:agent_id;uniqueIndex" validate:"required"`
	// CompanyID identifies the tenant this agent belongs to.
	CompanyID string `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	// Name is a user-defined label for the agent.
	Name string `json:"name" gorm:"column:name" validate:"required"`
	// Config is the nested configuration document, keyed by section name
	// (profile, prompt, behavior, escalation, booking, campaigns, templates, knowledge).
	Config datatypes.JSON `json:"config,omitempty" gorm:"type:jsonb;column:config"`
	// IsDefault marks this agent as the tenant's default.
	IsDefault bool `json:"is_default" gorm:"column:is_default;default:false"`
	// CreatedAt is the timestamp when the agent record was first created.
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when the agent record was last updated.
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Agent) TableName() string {
	return "agents"
}

// AgentUpdateColumns returns the column names that are allowed to change on a
// full-document update. Excludes primary key, agent_id, company_id, is_default
// (which has its own transactional path), and created_at.
func AgentUpdateColumns() []string {
	return []string{
		"name",
		"config",
		"updated_at",
	}
}
