package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/validator"
)

// Known config section names. Each section is an independent sub-document;
// writing one section must not alter its siblings.
const (
	SectionProfile    = "profile"
	SectionPrompt     = "prompt"
	SectionBehavior   = "behavior"
	SectionEscalation = "escalation"
	SectionBooking    = "booking"
	SectionCampaigns  = "campaigns"
	SectionTemplates  = "templates"
	SectionKnowledge  = "knowledge"
)

// ProfileSection describes the agent's outward persona.
type ProfileSection struct {
	Name     string `json:"name,omitempty"`
	Tone     string `json:"tone,omitempty" validate:"omitempty,oneof=friendly formal casual professional"`
	Language string `json:"language,omitempty"`
	Greeting string `json:"greeting,omitempty" validate:"omitempty,max=1024"`
}

// PromptSection carries the system prompt fed to the AI provider.
type PromptSection struct {
	System       string `json:"system,omitempty" validate:"omitempty,max=16384"`
	Instructions string `json:"instructions,omitempty" validate:"omitempty,max=16384"`
}

// BehaviorSection tunes reply behavior.
type BehaviorSection struct {
	AutoReply         bool     `json:"auto_reply,omitempty"`
	ReplyDelaySeconds int      `json:"reply_delay_seconds,omitempty" validate:"omitempty,gte=0,lte=300"`
	MaxTurns          int      `json:"max_turns,omitempty" validate:"omitempty,gte=0,lte=100"`
	StopKeywords      []string `json:"stop_keywords,omitempty"`
}

// EscalationSection controls hand-off to a human operator.
type EscalationSection struct {
	Enabled     bool     `json:"enabled,omitempty"`
	NotifyPhone string   `json:"notify_phone,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// BookingSection configures appointment booking.
type BookingSection struct {
	Enabled     bool   `json:"enabled,omitempty"`
	CalendarURL string `json:"calendar_url,omitempty" validate:"omitempty,url"`
	SlotMinutes int    `json:"slot_minutes,omitempty" validate:"omitempty,gte=5,lte=480"`
}

// CampaignsSection configures outbound campaign behavior.
type CampaignsSection struct {
	Enabled    bool `json:"enabled,omitempty"`
	DailyLimit int  `json:"daily_limit,omitempty" validate:"omitempty,gte=0"`
}

// TemplatesSection holds template selection defaults.
type TemplatesSection struct {
	DefaultLanguage string   `json:"default_language,omitempty"`
	Preferred       []string `json:"preferred,omitempty"`
}

// KnowledgeSection lists knowledge sources available to the agent.
type KnowledgeSection struct {
	Sources   []string `json:"sources,omitempty"`
	MaxChunks int      `json:"max_chunks,omitempty" validate:"omitempty,gte=0,lte=50"`
}

// KnownSections returns the section names accepted on the write path.
func KnownSections() []string {
	return []string{
		SectionProfile, SectionPrompt, SectionBehavior, SectionEscalation,
		SectionBooking, SectionCampaigns, SectionTemplates, SectionKnowledge,
	}
}

// IsKnownSection reports whether name is a recognized config section.
func IsKnownSection(name string) bool {
	switch name {
	case SectionProfile, SectionPrompt, SectionBehavior, SectionEscalation,
		SectionBooking, SectionCampaigns, SectionTemplates, SectionKnowledge:
		return true
	}
	return false
}

// ValidateSection decodes raw into the typed schema for the named section and
// runs struct validation. Unknown fields are rejected so typos surface at the
// boundary instead of silently landing in the stored document.
func ValidateSection(name string, raw json.RawMessage) error {
	var target interface{}
	switch name {
	case SectionProfile:
		target = &ProfileSection{}
	case SectionPrompt:
		target = &PromptSection{}
	case SectionBehavior:
		target = &BehaviorSection{}
	case SectionEscalation:
		target = &EscalationSection{}
	case SectionBooking:
		target = &BookingSection{}
	case SectionCampaigns:
		target = &CampaignsSection{}
	case SectionTemplates:
		target = &TemplatesSection{}
	case SectionKnowledge:
		target = &KnowledgeSection{}
	default:
		return fmt.Errorf("unknown config section %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("section %q does not match schema: %w", name, err)
	}
	return validator.Validate(target)
}

// DecodeConfigDocument unmarshals a stored config document into a map of raw
// sections. A nil or empty document yields an empty map, never an error.
func DecodeConfigDocument(doc datatypes.JSON) (map[string]json.RawMessage, error) {
	sections := map[string]json.RawMessage{}
	if len(doc) == 0 {
		return sections, nil
	}
	if err := json.Unmarshal(doc, &sections); err != nil {
		return nil, fmt.Errorf("malformed config document: %w", err)
	}
	return sections, nil
}

// EncodeConfigDocument marshals sections back into the stored JSONB form.
func EncodeConfigDocument(sections map[string]json.RawMessage) (datatypes.JSON, error) {
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config document: %w", err)
	}
	return datatypes.JSON(data), nil
}
