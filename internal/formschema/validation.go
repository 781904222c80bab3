package formschema

import (
	"math"
	"sort"
	"strings"
)

// Violation reasons reported for a required field.
const (
	ReasonMissing           = "missing"
	ReasonWordLimitExceeded = "word_limit_exceeded"
)

// Violation explains why a required field blocks submission.
type Violation struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Label     string `json:"label"`
	Reason    string `json:"reason"`
	WordCount int    `json:"word_count,omitempty"`
	WordLimit int    `json:"word_limit,omitempty"`
}

// Evaluation is the outcome of checking answers against a schema.
type Evaluation struct {
	RequiredTotal  int         `json:"required_total"`
	RequiredFilled int         `json:"required_filled"`
	Violations     []Violation `json:"violations"`
}

// IsValid reports whether every required field is satisfied.
func (e Evaluation) IsValid() bool {
	return len(e.Violations) == 0
}

// ProgressPercent is the rounded share of satisfied required fields; 100 when
// nothing is required.
func (e Evaluation) ProgressPercent() int {
	if e.RequiredTotal == 0 {
		return 100
	}
	return int(math.Round(100 * float64(e.RequiredFilled) / float64(e.RequiredTotal)))
}

// MissingFields lists the labels of failing required fields in schema order.
func (e Evaluation) MissingFields() []string {
	labels := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		labels = append(labels, v.Label)
	}
	return labels
}

// WordCount counts whitespace separated tokens. Every word count shown or
// enforced goes through here.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Evaluate checks the required descriptors against the current answers.
// Descriptors are evaluated in the order given.
func Evaluate(descriptors []Descriptor, values Values) Evaluation {
	var result Evaluation
	result.Violations = []Violation{}

	for _, d := range descriptors {
		if !d.Required {
			continue
		}
		result.RequiredTotal++

		if violation, failed := check(d, values, descriptors); failed {
			result.Violations = append(result.Violations, violation)
			continue
		}
		result.RequiredFilled++
	}

	return result
}

func check(d Descriptor, values Values, descriptors []Descriptor) (Violation, bool) {
	label := d.Label
	if strings.TrimSpace(label) == "" {
		label = d.FieldName
	}
	violation := Violation{FieldID: d.ID, FieldName: d.FieldName, Label: label}

	value := answerFor(d, values, descriptors)
	if isBlank(value) {
		violation.Reason = ReasonMissing
		return violation, true
	}

	if limit := d.WordLimit(); limit > 0 && d.Kind == KindLongText {
		if count := WordCount(value); count > limit {
			violation.Reason = ReasonWordLimitExceeded
			violation.WordCount = count
			violation.WordLimit = limit
			return violation, true
		}
	}

	return Violation{}, false
}

func answerFor(d Descriptor, values Values, descriptors []Descriptor) string {
	switch d.StorageKind() {
	case StorageEssay:
		return values.Essays[EssayKey(d.ID)]
	case StorageFileURL:
		if value := lookupAnswer(values.Files, d); !isBlank(value) {
			return value
		}
		return lookupFileByStorageKey(values.Files, d, descriptors)
	default:
		return lookupAnswer(values.Plain, d)
	}
}

func lookupAnswer(answers map[string]string, d Descriptor) string {
	if value, ok := answers[d.FieldName]; ok {
		return value
	}
	if d.ID != "" {
		if value, ok := answers[d.ID]; ok {
			return value
		}
	}
	for key, value := range answers {
		if strings.EqualFold(key, d.FieldName) {
			return value
		}
	}
	return ""
}

// lookupFileByStorageKey finds a file answer sent under any key that Forward
// would persist at the descriptor's storage key, such as "resume".
func lookupFileByStorageKey(files map[string]string, d Descriptor, descriptors []Descriptor) string {
	target := StorageKey(d)
	keys := make([]string, 0, len(files))
	for key := range files {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if isBlank(files[key]) {
			continue
		}
		if fileStorageKey(key, descriptors) == target {
			return files[key]
		}
	}
	return ""
}
