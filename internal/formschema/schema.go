package formschema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateFieldName indicates two fields would persist under the same key.
	ErrDuplicateFieldName = errors.New("duplicate field name")
	// ErrInvalidField indicates a field descriptor is malformed.
	ErrInvalidField = errors.New("invalid field")
)

// SchemaError collects every problem found in a schema.
type SchemaError struct {
	Problems []string
	kinds    []error
}

func (e *SchemaError) Error() string {
	return "invalid application schema: " + strings.Join(e.Problems, "; ")
}

// Is matches the sentinel errors of the problems it carries.
func (e *SchemaError) Is(target error) bool {
	for _, kind := range e.kinds {
		if kind == target {
			return true
		}
	}
	return false
}

func (e *SchemaError) add(kind error, format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
	for _, existing := range e.kinds {
		if existing == kind {
			return
		}
	}
	e.kinds = append(e.kinds, kind)
}

// CheckSchema validates an award's descriptors before they are saved. Field
// names and persisted keys must be unique, otherwise answers overwrite each
// other silently.
func CheckSchema(descriptors []Descriptor) error {
	problems := &SchemaError{}
	names := map[string]string{}
	keys := map[string]Descriptor{}
	ids := map[string]string{}

	for _, d := range descriptors {
		label := d.Label
		if label == "" {
			label = d.ID
		}

		if d.ID != "" {
			if other, exists := ids[d.ID]; exists {
				problems.add(ErrInvalidField, "fields %q and %q share the id %q", other, label, d.ID)
			} else {
				ids[d.ID] = label
			}
		}

		if strings.TrimSpace(d.FieldName) == "" {
			problems.add(ErrInvalidField, "field %q has an empty name", label)
			continue
		}
		if _, ok := ParseKind(string(d.Kind)); !ok {
			problems.add(ErrInvalidField, "field %q has unknown kind %q", label, d.Kind)
		}
		if d.Kind == KindDropdown && len(d.Config.Options) == 0 {
			problems.add(ErrInvalidField, "dropdown %q has no options", label)
		}
		if d.Config.WordLimit < 0 {
			problems.add(ErrInvalidField, "field %q has a negative word limit", label)
		}

		lowered := strings.ToLower(d.FieldName)
		if other, exists := names[lowered]; exists {
			problems.add(ErrDuplicateFieldName, "fields %q and %q share the name %q", other, label, d.FieldName)
		} else {
			names[lowered] = label
		}

		key := StorageKey(d)
		other, exists := keys[key]
		switch {
		case !exists:
			keys[key] = d
		case !strings.EqualFold(other.FieldName, d.FieldName):
			problems.add(ErrDuplicateFieldName, "fields %q and %q are both stored as %q", other.Label, label, key)
		}
	}

	if len(problems.Problems) == 0 {
		return nil
	}
	return problems
}

// SortByPosition orders descriptors by position, keeping insertion order for ties.
func SortByPosition(descriptors []Descriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].Position < descriptors[j].Position
	})
}
