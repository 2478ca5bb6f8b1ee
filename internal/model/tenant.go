package model

import (
	"time"
)

// Tenant represents the tenants table structure, the organizational root all
// other rows are scoped to.
type Tenant struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// CompanyID is the unique tenant identifier carried on every scoped table.
	CompanyID string `json:"company_id" gorm:"column:company_id;uniqueIndex" validate:"required"`
	// Name is the display name of the organization.
	Name string `json:"name,omitempty" gorm:"column:name"`
	// DefaultAgentID points at the agent currently marked default for this tenant.
	// Nullable; cleared when the default agent is deleted.
	DefaultAgentID *string `json:"default_agent_id,omitempty" gorm:"column:default_agent_id"`
	// CreatedAt is the timestamp when the tenant record was first created.
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when the tenant record was last updated.
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Tenant) TableName() string {
	return "tenants"
}
