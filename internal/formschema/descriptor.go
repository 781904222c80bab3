// Package formschema maps administrator-defined application fields onto the
// fixed shape persisted for an application, and evaluates a set of answers
// against those fields.
package formschema

import (
	"strings"
)

// Kind is the input kind of a field.
type Kind string

const (
	KindShortText Kind = "short_text"
	KindLongText  Kind = "long_text"
	KindFile      Kind = "file"
	KindDropdown  Kind = "dropdown"
	KindNumber    Kind = "number"
	KindDate      Kind = "date"
)

// Archetype tags a field created from one of the special purpose templates.
type Archetype string

const (
	ArchetypeCustom              Archetype = "custom"
	ArchetypeResume              Archetype = "resume"
	ArchetypeCertificate         Archetype = "certificate"
	ArchetypeInternationalIntent Archetype = "international_intent"
	ArchetypeCommunityLetter     Archetype = "community_letter"
	ArchetypeTravelBenefit       Archetype = "travel_benefit"
	ArchetypeBudget              Archetype = "budget"
)

// Storage describes where a field's value lives in the persisted record.
type Storage string

const (
	StorageScalar  Storage = "scalar"
	StorageFileURL Storage = "file_url"
	StorageEssay   Storage = "essay"
)

const (
	urlSuffix       = "_url"
	essayKeyPrefix  = "essay_response_"
	essayMapKey     = "essayResponses"
	legacyResumeKey = "resume"
)

// FieldConfig carries the kind specific settings of a field.
type FieldConfig struct {
	Options   []string  `json:"options,omitempty"`
	WordLimit int       `json:"word_limit,omitempty"`
	Purpose   Archetype `json:"purpose,omitempty"`
}

// Descriptor describes one application input.
type Descriptor struct {
	ID          string      `json:"id"`
	FieldName   string      `json:"field_name"`
	Label       string      `json:"label"`
	Kind        Kind        `json:"kind"`
	Essay       bool        `json:"essay"`
	Required    bool        `json:"required"`
	Description string      `json:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Prompt      string      `json:"prompt,omitempty"`
	Archetype   Archetype   `json:"archetype"`
	Storage     Storage     `json:"storage"`
	Config      FieldConfig `json:"config"`
	Position    int         `json:"position"`
}

// Values is the flexible, descriptor keyed answer set edited by an applicant.
// Plain and Files are keyed by field name, Essays by EssayKey(descriptor id).
type Values struct {
	Plain  map[string]string `json:"plain"`
	Files  map[string]string `json:"files"`
	Essays map[string]string `json:"essays"`
}

// NewValues returns a Values with all maps allocated.
func NewValues() Values {
	return Values{
		Plain:  map[string]string{},
		Files:  map[string]string{},
		Essays: map[string]string{},
	}
}

// IsResume reports whether the descriptor holds the applicant's resume.
func (d Descriptor) IsResume() bool {
	if d.Archetype == ArchetypeResume || d.Config.Purpose == ArchetypeResume {
		return true
	}
	name := strings.ToLower(d.FieldName)
	return name == legacyResumeKey || name == "resume_upload" || name == "resume_url"
}

// StorageKind returns the declared storage, inferring it from the kind when unset.
func (d Descriptor) StorageKind() Storage {
	if d.Storage != "" {
		return d.Storage
	}
	switch {
	case d.Kind == KindFile:
		return StorageFileURL
	case d.Kind == KindLongText && d.Essay:
		return StorageEssay
	default:
		return StorageScalar
	}
}

// WordLimit returns the configured word limit, zero meaning unlimited.
func (d Descriptor) WordLimit() int {
	if d.Config.WordLimit < 0 {
		return 0
	}
	return d.Config.WordLimit
}

// EssayKey derives the key an essay answer is stored under.
func EssayKey(descriptorID string) string {
	return essayKeyPrefix + descriptorID
}

// ReservedKey returns the pinned field name for a special archetype.
func ReservedKey(archetype Archetype) (string, bool) {
	switch archetype {
	case ArchetypeResume:
		return "resume_url", true
	case ArchetypeCertificate:
		return "certificate_url", true
	case ArchetypeInternationalIntent:
		return "international_intent_url", true
	case ArchetypeCommunityLetter:
		return "community_letter_url", true
	case ArchetypeTravelBenefit:
		return "travel_benefit", true
	case ArchetypeBudget:
		return "budget", true
	default:
		return "", false
	}
}

// StorageKey returns the key the descriptor's value is persisted under.
func StorageKey(d Descriptor) string {
	switch d.StorageKind() {
	case StorageEssay:
		return EssayKey(d.ID)
	case StorageFileURL:
		if d.IsResume() {
			return "resume_url"
		}
		return withURLSuffix(d.FieldName)
	default:
		return d.FieldName
	}
}

func withURLSuffix(key string) string {
	if strings.HasSuffix(key, urlSuffix) {
		return key
	}
	return key + urlSuffix
}

// ParseKind normalises user input into a Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindShortText, "text":
		return KindShortText, true
	case KindLongText, "textarea", "essay":
		return KindLongText, true
	case KindFile:
		return KindFile, true
	case KindDropdown, "select":
		return KindDropdown, true
	case KindNumber:
		return KindNumber, true
	case KindDate:
		return KindDate, true
	default:
		return "", false
	}
}

// IsEssayAlias reports whether a raw kind names the "essay" alias, which
// stands for a long text field stored with the essay answers.
func IsEssayAlias(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "essay")
}

// ParseArchetype normalises user input into an Archetype, defaulting to custom.
func ParseArchetype(value string) (Archetype, bool) {
	switch a := Archetype(strings.ToLower(strings.TrimSpace(value))); a {
	case "":
		return ArchetypeCustom, true
	case ArchetypeCustom, ArchetypeResume, ArchetypeCertificate, ArchetypeInternationalIntent,
		ArchetypeCommunityLetter, ArchetypeTravelBenefit, ArchetypeBudget:
		return a, true
	default:
		return "", false
	}
}
