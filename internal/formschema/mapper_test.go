package formschema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSchema() []Descriptor {
	resume := NewDescriptor(ArchetypeResume, "", fixedNow)
	resume.Required = true

	transcript := NewDescriptor(ArchetypeCustom, "Transcript", fixedNow)
	transcript = SetKind(transcript, KindFile, false)

	portfolio := NewDescriptor(ArchetypeCustom, "Portfolio URL", fixedNow)
	portfolio = SetKind(portfolio, KindFile, false)

	website := NewDescriptor(ArchetypeCustom, "Website URL", fixedNow)

	essay := NewDescriptor(ArchetypeCustom, "Why you?", fixedNow)
	essay = SetKind(essay, KindLongText, true)
	essay.Config.WordLimit = 50

	return []Descriptor{
		{ID: "f-first", FieldName: "first_name", Label: "First name", Kind: KindShortText, Required: true},
		resume,
		transcript,
		portfolio,
		website,
		NewDescriptor(ArchetypeTravelBenefit, "", fixedNow),
		NewDescriptor(ArchetypeCertificate, "", fixedNow),
		essay,
	}
}

func TestForwardFullSubmissionScenario(t *testing.T) {
	descriptors := []Descriptor{
		{ID: "1", FieldName: "first_name", Label: "First name", Kind: KindShortText, Required: true},
		{ID: "2", FieldName: "resume", Label: "Resume", Kind: KindFile, Required: true, Config: FieldConfig{Purpose: ArchetypeResume}},
	}
	values := Values{
		Plain: map[string]string{"first_name": "Ada"},
		Files: map[string]string{"resume": "https://x/resume.pdf"},
	}

	stored := Forward(values, descriptors)
	require.Equal(t, map[string]string{
		"first_name": "Ada",
		"resume_url": "https://x/resume.pdf",
	}, stored.Fields)
	require.Nil(t, stored.EssayResponses)

	evaluation := Evaluate(descriptors, values)
	require.True(t, evaluation.IsValid())
	require.Equal(t, 100, evaluation.ProgressPercent())
}

func TestForwardFileKeyRules(t *testing.T) {
	descriptors := sampleSchema()
	values := Values{Files: map[string]string{
		"resume_url":      "https://cdn/resume.pdf",
		"TRANSCRIPT":      "https://cdn/transcript.pdf",
		"portfolio_url":   "https://cdn/portfolio.zip",
		"orphan":          "https://cdn/orphan.pdf",
		"already_url":     "https://cdn/already.pdf",
		"certificate_url": "   ",
	}}

	stored := Forward(values, descriptors)
	require.Equal(t, map[string]string{
		"resume_url":     "https://cdn/resume.pdf",
		"transcript_url": "https://cdn/transcript.pdf",
		"portfolio_url":  "https://cdn/portfolio.zip",
		"orphan_url":     "https://cdn/orphan.pdf",
		"already_url":    "https://cdn/already.pdf",
	}, stored.Fields)
}

func TestForwardFileByDescriptorID(t *testing.T) {
	descriptors := sampleSchema()
	transcript := descriptors[2]

	stored := Forward(Values{Files: map[string]string{transcript.ID: "https://cdn/t.pdf"}}, descriptors)
	require.Equal(t, "https://cdn/t.pdf", stored.Fields["transcript_url"])
}

func TestForwardURLSuffixIsIdempotent(t *testing.T) {
	descriptors := sampleSchema()
	keys := []string{"a", "a_url", "resume", "portfolio_url", "transcript", "transcript_url", "certificate_url"}
	for _, key := range keys {
		stored := Forward(Values{Files: map[string]string{key: "https://cdn/file"}}, descriptors)
		require.Len(t, stored.Fields, 1)
		for storedKey := range stored.Fields {
			require.NotContains(t, storedKey, "_url_url", "input key %s", key)

			again := Forward(Values{Files: map[string]string{storedKey: "https://cdn/file"}}, descriptors)
			require.Contains(t, again.Fields, storedKey, "input key %s", key)
		}
	}
}

func TestForwardDropsBlankValues(t *testing.T) {
	stored := Forward(Values{
		Plain:  map[string]string{"first_name": "  ", "last_name": "Lovelace"},
		Essays: map[string]string{EssayKey("x"): "\t\n"},
	}, nil)

	require.Equal(t, map[string]string{"last_name": "Lovelace"}, stored.Fields)
	require.Nil(t, stored.EssayResponses)
}

func TestForwardKeepsPlainValuesVerbatim(t *testing.T) {
	stored := Forward(Values{Plain: map[string]string{"program": "  Computer Science "}}, nil)
	require.Equal(t, "  Computer Science ", stored.Fields["program"])
}

func TestRoundTripRestoresValues(t *testing.T) {
	descriptors := sampleSchema()
	essay := descriptors[len(descriptors)-1]

	values := Values{
		Plain: map[string]string{
			"first_name":     "Ada",
			"website_url":    "https://ada.dev",
			"travel_benefit": "I will present at a conference.",
			"gpa":            "3.9",
		},
		Files: map[string]string{
			"resume_url":      "https://cdn/resume.pdf",
			"transcript":      "https://cdn/transcript.pdf",
			"portfolio_url":   "https://cdn/portfolio.zip",
			"certificate_url": "https://cdn/cert.pdf",
			"unknown_upload":  "https://cdn/other.pdf",
		},
		Essays: map[string]string{
			EssayKey(essay.ID): "Because I love mathematics.",
		},
	}

	restored := Inverse(Forward(values, descriptors), descriptors)
	require.Equal(t, values, restored)
}

func TestRoundTripLegacyResumeField(t *testing.T) {
	descriptors := []Descriptor{
		{ID: "r", FieldName: "resume_upload", Label: "Resume", Kind: KindFile},
	}
	values := Values{
		Plain:  map[string]string{},
		Files:  map[string]string{"resume_upload": "https://cdn/resume.pdf"},
		Essays: map[string]string{},
	}

	stored := Forward(values, descriptors)
	require.Equal(t, "https://cdn/resume.pdf", stored.Fields["resume_url"])
	require.Equal(t, values, Inverse(stored, descriptors))
}

func TestInverseFallsBackToSuffixConvention(t *testing.T) {
	stored := Stored{
		Fields: map[string]string{
			"resume_url":     "https://cdn/resume.pdf",
			"essay_url":      "https://cdn/essay.pdf",
			"program":        "Physics",
			"credits":        "",
			"Transcript_url": "https://cdn/t.pdf",
		},
		EssayResponses: map[string]string{"essay_response_9": "text"},
	}
	descriptors := []Descriptor{{ID: "t", FieldName: "transcript", Kind: KindFile}}

	values := Inverse(stored, descriptors)
	require.Equal(t, map[string]string{"program": "Physics"}, values.Plain)
	require.Equal(t, map[string]string{
		"resume":     "https://cdn/resume.pdf",
		"essay":      "https://cdn/essay.pdf",
		"transcript": "https://cdn/t.pdf",
	}, values.Files)
	require.Equal(t, map[string]string{"essay_response_9": "text"}, values.Essays)
}

func TestStoredFlattenNestsEssays(t *testing.T) {
	stored := Stored{
		Fields:         map[string]string{"first_name": "Ada"},
		EssayResponses: map[string]string{"essay_response_1": "Hello"},
	}

	flat := stored.Flatten()
	require.Equal(t, "Ada", flat["first_name"])
	require.Equal(t, map[string]interface{}{"essay_response_1": "Hello"}, flat["essayResponses"])

	require.NotContains(t, Stored{Fields: map[string]string{}}.Flatten(), "essayResponses")
}

func TestFileFieldResolvesClientKeys(t *testing.T) {
	schema := []Descriptor{
		{ID: "r-1", FieldName: "resume_url", Kind: KindFile, Archetype: ArchetypeResume},
		{ID: "p-1", FieldName: "portfolio", Kind: KindFile},
		{ID: "n-1", FieldName: "first_name", Kind: KindShortText},
	}

	d, ok := FileField("resume", schema)
	require.True(t, ok)
	require.Equal(t, "r-1", d.ID)

	d, ok = FileField("p-1", schema)
	require.True(t, ok)
	require.Equal(t, "portfolio", d.FieldName)

	_, ok = FileField("first_name", schema)
	require.False(t, ok)
	_, ok = FileField("transcript", schema)
	require.False(t, ok)
}
