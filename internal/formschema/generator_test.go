package formschema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"GPA (Cumulative)!":        "gpa_cumulative",
		"  Expected   Graduation ": "expected_graduation",
		"Résumé":                   "rsum",
		"Year\tof\nStudy":          "year_of_study",
		"2nd Reference":            "2nd_reference",
		"snake_case already":       "snakecase_already",
	}
	for label, expected := range cases {
		require.Equal(t, expected, Slugify(label, fixedNow), "label %q", label)
	}
}

func TestSlugifyEmptyLabelUsesPlaceholder(t *testing.T) {
	for _, label := range []string{"", "   ", "!!!", "¿¡"} {
		slug := Slugify(label, fixedNow)
		require.NotEmpty(t, slug)
		require.True(t, strings.HasPrefix(slug, "field_"), slug)
	}
	require.NotEqual(t, Slugify("", fixedNow), Slugify("", fixedNow.Add(1e6)))
}

func TestNewDescriptorArchetypeDefaults(t *testing.T) {
	resume := NewDescriptor(ArchetypeResume, "Your CV", fixedNow)
	require.Equal(t, "resume_url", resume.FieldName)
	require.Equal(t, KindFile, resume.Kind)
	require.Equal(t, StorageFileURL, resume.Storage)
	require.Equal(t, ArchetypeResume, resume.Config.Purpose)
	require.NotEmpty(t, resume.ID)

	travel := NewDescriptor(ArchetypeTravelBenefit, "", fixedNow)
	require.Equal(t, "travel_benefit", travel.FieldName)
	require.Equal(t, "Travel Benefit Description", travel.Label)
	require.Equal(t, KindLongText, travel.Kind)
	require.Equal(t, StorageScalar, travel.Storage)
	require.Equal(t, 500, travel.WordLimit())
	require.NotEmpty(t, travel.Prompt)

	budget := NewDescriptor(ArchetypeBudget, "Costs", fixedNow)
	require.Equal(t, "budget", budget.FieldName)

	custom := NewDescriptor("", "Expected Graduation", fixedNow)
	require.Equal(t, ArchetypeCustom, custom.Archetype)
	require.Equal(t, "expected_graduation", custom.FieldName)
	require.Equal(t, KindShortText, custom.Kind)
	require.Equal(t, StorageScalar, custom.Storage)
}

func TestRelabelKeepsReservedKeys(t *testing.T) {
	resume := NewDescriptor(ArchetypeResume, "", fixedNow)
	for _, label := range []string{"Curriculum Vitae", "", "Resume (PDF only)!"} {
		resume = Relabel(resume, label, fixedNow)
		require.Equal(t, "resume_url", resume.FieldName)
	}
	require.Equal(t, "Resume (PDF only)!", resume.Label)

	budget := Relabel(NewDescriptor(ArchetypeBudget, "", fixedNow), "Money plan", fixedNow)
	require.Equal(t, "budget", budget.FieldName)
}

func TestRelabelRederivesCustomFieldName(t *testing.T) {
	custom := NewDescriptor(ArchetypeCustom, "Hometown", fixedNow)
	id := custom.ID

	custom = Relabel(custom, "Home Town / City", fixedNow)
	require.Equal(t, "home_town_city", custom.FieldName)
	require.Equal(t, id, custom.ID)

	// A custom field labelled like a legacy pinned field is still just a slug.
	custom = Relabel(custom, "Budget Breakdown", fixedNow)
	require.Equal(t, "budget_breakdown", custom.FieldName)
}

func TestSetKind(t *testing.T) {
	custom := NewDescriptor(ArchetypeCustom, "Statement", fixedNow)
	custom.Config.Options = []string{"a"}

	essay := SetKind(custom, KindLongText, true)
	require.True(t, essay.Essay)
	require.Equal(t, StorageEssay, essay.Storage)
	require.Nil(t, essay.Config.Options)

	file := SetKind(essay, KindFile, true)
	require.False(t, file.Essay)
	require.Equal(t, StorageFileURL, file.Storage)

	resume := NewDescriptor(ArchetypeResume, "", fixedNow)
	require.Equal(t, KindFile, SetKind(resume, KindShortText, false).Kind)
}

func TestResolveArchetype(t *testing.T) {
	require.Equal(t, ArchetypeTravelBenefit, ResolveArchetype("Travel Benefit Description"))
	require.Equal(t, ArchetypeBudget, ResolveArchetype(" Budget Breakdown "))
	require.Equal(t, ArchetypeCustom, ResolveArchetype("budget breakdown"))
}

func TestCheckSchemaRejectsCollisions(t *testing.T) {
	first := NewDescriptor(ArchetypeCustom, "Budget", fixedNow)
	second := NewDescriptor(ArchetypeBudget, "", fixedNow)

	err := CheckSchema([]Descriptor{first, second})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicateFieldName))

	scalar := NewDescriptor(ArchetypeCustom, "Transcript URL", fixedNow)
	file := SetKind(NewDescriptor(ArchetypeCustom, "Transcript", fixedNow), KindFile, false)
	err = CheckSchema([]Descriptor{file, scalar})
	require.ErrorIs(t, err, ErrDuplicateFieldName)
}

func TestCheckSchemaRejectsRepeatedIDs(t *testing.T) {
	first := NewDescriptor(ArchetypeCustom, "Faculty", fixedNow)
	second := NewDescriptor(ArchetypeCustom, "Campus", fixedNow)
	second.ID = first.ID

	err := CheckSchema([]Descriptor{first, second})
	require.ErrorIs(t, err, ErrInvalidField)
	require.ErrorContains(t, err, first.ID)
	require.False(t, errors.Is(err, ErrDuplicateFieldName))
}

func TestCheckSchemaValidatesConfig(t *testing.T) {
	dropdown := SetKind(NewDescriptor(ArchetypeCustom, "Faculty", fixedNow), KindDropdown, false)
	err := CheckSchema([]Descriptor{dropdown})
	require.ErrorIs(t, err, ErrInvalidField)
	require.False(t, errors.Is(err, ErrDuplicateFieldName))

	dropdown.Config.Options = []string{"Science", "Arts", "Arts"}
	require.NoError(t, CheckSchema([]Descriptor{dropdown, NewDescriptor(ArchetypeResume, "", fixedNow)}))
}
