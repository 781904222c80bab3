package formschema

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

type archetypeDefaults struct {
	label     string
	kind      Kind
	prompt    string
	wordLimit int
}

var defaultsByArchetype = map[Archetype]archetypeDefaults{
	ArchetypeResume: {
		label:  "Resume",
		kind:   KindFile,
		prompt: "Upload your most recent resume or CV.",
	},
	ArchetypeCertificate: {
		label:  "Enrollment Certificate",
		kind:   KindFile,
		prompt: "Upload your certificate of enrollment.",
	},
	ArchetypeInternationalIntent: {
		label:  "International Study Intent",
		kind:   KindFile,
		prompt: "Upload documentation of your intent to study abroad.",
	},
	ArchetypeCommunityLetter: {
		label:  "Community Letter",
		kind:   KindFile,
		prompt: "Upload a letter of support from a member of your community.",
	},
	ArchetypeTravelBenefit: {
		label:     "Travel Benefit Description",
		kind:      KindLongText,
		prompt:    "Describe how this travel opportunity will benefit your studies.",
		wordLimit: 500,
	},
	ArchetypeBudget: {
		label:     "Budget Breakdown",
		kind:      KindLongText,
		prompt:    "Provide a breakdown of your expected costs.",
		wordLimit: 300,
	},
}

// Slugify derives a machine key from a human label. Labels that slugify to
// nothing get a time based placeholder so the key is never empty.
func Slugify(label string, now time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	slug := strings.Trim(strings.Join(strings.Fields(b.String()), "_"), "_")
	if slug == "" {
		return "field_" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return slug
}

// NewDescriptor builds a descriptor for the archetype with its defaults applied.
// An empty label on a special archetype falls back to the archetype's label.
func NewDescriptor(archetype Archetype, label string, now time.Time) Descriptor {
	if archetype == "" {
		archetype = ArchetypeCustom
	}

	label = strings.TrimSpace(label)
	d := Descriptor{
		ID:        uuid.NewString(),
		Archetype: archetype,
		Kind:      KindShortText,
	}

	if defaults, ok := defaultsByArchetype[archetype]; ok {
		if label == "" {
			label = defaults.label
		}
		d.Kind = defaults.kind
		d.Prompt = defaults.prompt
		d.Config.WordLimit = defaults.wordLimit
		d.Config.Purpose = archetype
	}

	d.Label = label
	d.FieldName = deriveFieldName(archetype, label, now)
	d.Storage = d.StorageKind()
	return d
}

// Relabel changes the label and re-derives the field name. Reserved archetypes
// keep their pinned key whatever the label says.
func Relabel(d Descriptor, label string, now time.Time) Descriptor {
	d.Label = strings.TrimSpace(label)
	d.FieldName = deriveFieldName(d.Archetype, d.Label, now)
	return d
}

// SetKind changes the input kind of a custom field and resets its storage to
// match. Special archetypes keep their kind.
func SetKind(d Descriptor, kind Kind, essay bool) Descriptor {
	if _, reserved := ReservedKey(d.Archetype); reserved {
		return d
	}
	d.Kind = kind
	d.Essay = kind == KindLongText && essay
	d.Storage = ""
	d.Storage = d.StorageKind()
	if kind != KindDropdown {
		d.Config.Options = nil
	}
	return d
}

// ResolveArchetype maps the two legacy pinned labels onto their archetypes.
// Only used when importing schemas authored before archetypes were stored.
func ResolveArchetype(label string) Archetype {
	switch strings.TrimSpace(label) {
	case "Travel Benefit Description":
		return ArchetypeTravelBenefit
	case "Budget Breakdown":
		return ArchetypeBudget
	default:
		return ArchetypeCustom
	}
}

func deriveFieldName(archetype Archetype, label string, now time.Time) string {
	if key, ok := ReservedKey(archetype); ok {
		return key
	}
	return Slugify(label, now)
}
