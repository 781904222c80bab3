package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
)

// Award is a scholarship or bursary students can apply for.
type Award struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Amount      float64           `gorm:"not null;default:0" json:"amount"`
	Deadline    *time.Time        `json:"deadline"`
	Published   bool              `gorm:"index;not null;default:false" json:"published"`
	CreatedBy   uint              `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Fields      []FieldDescriptor `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"fields,omitempty"`
}

// IsOpen reports whether the award accepts submissions at the reference time.
func (a Award) IsOpen(reference time.Time) bool {
	if !a.Published {
		return false
	}
	return a.Deadline == nil || !reference.After(*a.Deadline)
}

// FieldDescriptor is the persisted form of an application field.
type FieldDescriptor struct {
	ID          string                                     `gorm:"primaryKey;size:36" json:"id"`
	AwardID     uint                                       `gorm:"index;not null" json:"award_id"`
	FieldName   string                                     `gorm:"size:128;not null" json:"field_name"`
	Label       string                                     `gorm:"size:255" json:"label"`
	Kind        string                                     `gorm:"size:32;not null" json:"kind"`
	Essay       bool                                       `gorm:"not null;default:false" json:"essay"`
	Required    bool                                       `gorm:"not null;default:false" json:"required"`
	Description string                                     `gorm:"type:text" json:"description"`
	Placeholder string                                     `gorm:"size:255" json:"placeholder"`
	Prompt      string                                     `gorm:"type:text" json:"prompt"`
	Archetype   string                                     `gorm:"size:32;not null;default:custom" json:"archetype"`
	Storage     string                                     `gorm:"size:16;not null" json:"storage"`
	Config      datatypes.JSONType[formschema.FieldConfig] `json:"config"`
	Position    int                                        `gorm:"index;not null;default:0" json:"position"`
	CreatedAt   time.Time                                  `json:"created_at"`
	UpdatedAt   time.Time                                  `json:"updated_at"`
}

// Descriptor converts the row into the engine's descriptor.
func (f FieldDescriptor) Descriptor() formschema.Descriptor {
	return formschema.Descriptor{
		ID:          f.ID,
		FieldName:   f.FieldName,
		Label:       f.Label,
		Kind:        formschema.Kind(f.Kind),
		Essay:       f.Essay,
		Required:    f.Required,
		Description: f.Description,
		Placeholder: f.Placeholder,
		Prompt:      f.Prompt,
		Archetype:   formschema.Archetype(f.Archetype),
		Storage:     formschema.Storage(f.Storage),
		Config:      f.Config.Data(),
		Position:    f.Position,
	}
}

// NewFieldDescriptor builds the row for a descriptor attached to an award.
func NewFieldDescriptor(awardID uint, d formschema.Descriptor) FieldDescriptor {
	return FieldDescriptor{
		ID:          d.ID,
		AwardID:     awardID,
		FieldName:   d.FieldName,
		Label:       d.Label,
		Kind:        string(d.Kind),
		Essay:       d.Essay,
		Required:    d.Required,
		Description: d.Description,
		Placeholder: d.Placeholder,
		Prompt:      d.Prompt,
		Archetype:   string(d.Archetype),
		Storage:     string(d.StorageKind()),
		Config:      datatypes.NewJSONType(d.Config),
		Position:    d.Position,
	}
}

// Descriptors converts rows into engine descriptors, preserving order.
func Descriptors(fields []FieldDescriptor) []formschema.Descriptor {
	descriptors := make([]formschema.Descriptor, 0, len(fields))
	for _, field := range fields {
		descriptors = append(descriptors, field.Descriptor())
	}
	return descriptors
}
