package formschema

import (
	"strings"
)

// Stored is the fixed-shape form of an application's answers: flat scalar and
// file URL keys plus a single nested map of essay answers.
type Stored struct {
	Fields         map[string]string `json:"fields"`
	EssayResponses map[string]string `json:"essay_responses,omitempty"`
}

// Flatten returns the single flat object handed to persistence, with the
// essays nested under "essayResponses".
func (s Stored) Flatten() map[string]interface{} {
	flat := make(map[string]interface{}, len(s.Fields)+1)
	for key, value := range s.Fields {
		flat[key] = value
	}
	if len(s.EssayResponses) > 0 {
		essays := make(map[string]interface{}, len(s.EssayResponses))
		for key, value := range s.EssayResponses {
			essays[key] = value
		}
		flat[essayMapKey] = essays
	}
	return flat
}

// Forward translates descriptor keyed values into the persisted shape.
// Blank values are dropped rather than stored empty.
func Forward(values Values, descriptors []Descriptor) Stored {
	out := Stored{Fields: map[string]string{}}

	for key, value := range values.Plain {
		if isBlank(value) {
			continue
		}
		out.Fields[key] = value
	}

	for key, url := range values.Files {
		if isBlank(url) {
			continue
		}
		out.Fields[fileStorageKey(key, descriptors)] = url
	}

	for key, text := range values.Essays {
		if isBlank(text) {
			continue
		}
		if out.EssayResponses == nil {
			out.EssayResponses = map[string]string{}
		}
		out.EssayResponses[key] = text
	}

	return out
}

// Inverse reconstructs the descriptor keyed values from a persisted shape.
func Inverse(stored Stored, descriptors []Descriptor) Values {
	values := NewValues()
	index := storageIndex(descriptors)

	for key, value := range stored.Fields {
		if isBlank(value) {
			continue
		}

		if d, ok := index[key]; ok {
			if d.StorageKind() == StorageFileURL {
				values.Files[d.FieldName] = value
			} else {
				values.Plain[d.FieldName] = value
			}
			continue
		}

		if strings.HasSuffix(key, urlSuffix) {
			values.Files[fileInputKey(key, descriptors)] = value
			continue
		}

		values.Plain[key] = value
	}

	for key, text := range stored.EssayResponses {
		if isBlank(text) {
			continue
		}
		values.Essays[key] = text
	}

	return values
}

func fileStorageKey(inputKey string, descriptors []Descriptor) string {
	d, ok := lookupDescriptor(inputKey, descriptors)
	if !ok {
		return withURLSuffix(inputKey)
	}
	if d.IsResume() {
		return "resume_url"
	}
	return withURLSuffix(d.FieldName)
}

// FileField resolves the descriptor a client file key refers to, using the same
// rules Forward applies when it picks the storage key.
func FileField(inputKey string, descriptors []Descriptor) (Descriptor, bool) {
	if d, ok := lookupDescriptor(inputKey, descriptors); ok {
		return d, d.StorageKind() == StorageFileURL
	}
	stored := withURLSuffix(inputKey)
	for _, d := range descriptors {
		if d.StorageKind() == StorageFileURL && StorageKey(d) == stored {
			return d, true
		}
	}
	return Descriptor{}, false
}

func fileInputKey(storedKey string, descriptors []Descriptor) string {
	if storedKey == "resume_url" {
		for _, d := range descriptors {
			if d.IsResume() {
				return d.FieldName
			}
		}
	}

	stripped := strings.TrimSuffix(storedKey, urlSuffix)
	if d, ok := findByFieldName(stripped, descriptors); ok {
		return d.FieldName
	}
	return stripped
}

// storageIndex maps persisted keys back to their descriptor. Essays are keyed
// in their own map and left out.
func storageIndex(descriptors []Descriptor) map[string]Descriptor {
	index := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.StorageKind() == StorageEssay {
			continue
		}
		key := StorageKey(d)
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = d
	}
	return index
}

func lookupDescriptor(key string, descriptors []Descriptor) (Descriptor, bool) {
	if d, ok := findByFieldName(key, descriptors); ok {
		return d, true
	}
	for _, d := range descriptors {
		if d.ID != "" && d.ID == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

func findByFieldName(name string, descriptors []Descriptor) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.FieldName == name {
			return d, true
		}
	}
	for _, d := range descriptors {
		if strings.EqualFold(d.FieldName, name) {
			return d, true
		}
	}
	return Descriptor{}, false
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
