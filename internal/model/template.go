package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Template component types, matching the WhatsApp template component shape.
const (
	TemplateComponentHeader  = "header"
	TemplateComponentBody    = "body"
	TemplateComponentFooter  = "footer"
	TemplateComponentButtons = "buttons"
)

// MessageTemplate represents a reusable WhatsApp message template.
type MessageTemplate struct {
	ID         int64          `json:"-" gorm:"primaryKey;autoIncrement"`
	TemplateID string         `json:"template_id" gorm:"column:template_id;uniqueIndex" validate:"required"`
	CompanyID  string         `json:"company_id,omitempty" gorm:"column:company_id;index" validate:"required"`
	Name       string         `json:"name" gorm:"column:name" validate:"required"`
	Language   string         `json:"language,omitempty" gorm:"column:language;default:en"`
	Category   string         `json:"category,omitempty" gorm:"column:category"`
	// Components is the array [{type: header|body|footer|buttons, text?, buttons?}].
	Components datatypes.JSON `json:"components,omitempty" gorm:"type:jsonb;column:components"`
	CreatedAt  time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (MessageTemplate) TableName() string {
	return "message_templates"
}

// TemplateButton is one button within a buttons component.
type TemplateButton struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text" validate:"required"`
}

// TemplateComponent is one entry of a template's component array.
type TemplateComponent struct {
	Type    string           `json:"type" validate:"required,oneof=header body footer buttons"`
	Text    string           `json:"text,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
}

// ValidateTemplateComponents decodes and validates a raw component array.
func ValidateTemplateComponents(raw datatypes.JSON) ([]TemplateComponent, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var components []TemplateComponent
	if err := json.Unmarshal(raw, &components); err != nil {
		return nil, fmt.Errorf("components must be an array of template components: %w", err)
	}
	for i, c := range components {
		switch c.Type {
		case TemplateComponentHeader, TemplateComponentBody, TemplateComponentFooter:
			if c.Text == "" {
				return nil, fmt.Errorf("component %d (%s) requires text", i, c.Type)
			}
		case TemplateComponentButtons:
			if len(c.Buttons) == 0 {
				return nil, fmt.Errorf("component %d (buttons) requires at least one button", i)
			}
		default:
			return nil, fmt.Errorf("component %d has unknown type %q", i, c.Type)
		}
	}
	return components, nil
}
