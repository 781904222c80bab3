package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
)

func TestApplicationRecordReplaceContentSplitsColumnsAndExtras(t *testing.T) {
	record := ApplicationRecord{FirstName: "Old", Budget: "stale"}
	record.ReplaceContent(formschema.Stored{
		Fields: map[string]string{
			"first_name":     "Ada",
			"resume_url":     "https://cdn/resume.pdf",
			"gpa":            "3.9",
			"transcript_url": "https://cdn/t.pdf",
		},
		EssayResponses: map[string]string{"essay_response_1": "Because."},
	})

	require.Equal(t, "Ada", record.FirstName)
	require.Equal(t, "https://cdn/resume.pdf", record.ResumeURL)
	require.Empty(t, record.Budget, "keys missing from the payload are cleared")
	require.Equal(t, datatypes.JSONMap{"gpa": "3.9", "transcript_url": "https://cdn/t.pdf"}, record.ExtraFields)
	require.Equal(t, datatypes.JSONMap{"essay_response_1": "Because."}, record.EssayResponses)
}

func TestApplicationRecordStoredRoundTrip(t *testing.T) {
	stored := formschema.Stored{
		Fields: map[string]string{
			"email":          "ada@example.com",
			"travel_benefit": "Conference talk",
			"hometown":       "London",
		},
		EssayResponses: map[string]string{"essay_response_2": "Essay"},
	}

	var record ApplicationRecord
	record.ReplaceContent(stored)
	require.Equal(t, stored, record.Stored())
}

func TestApplicationRecordStoredStringifiesJSONValues(t *testing.T) {
	record := ApplicationRecord{ExtraFields: datatypes.JSONMap{"credits_completed": float64(90), "empty": nil}}
	stored := record.Stored()
	require.Equal(t, map[string]string{"credits_completed": "90"}, stored.Fields)
	require.Nil(t, stored.EssayResponses)
}

func TestApplicationRecordIsSubmitted(t *testing.T) {
	require.False(t, ApplicationRecord{Status: ApplicationStatusDraft}.IsSubmitted())
	require.True(t, ApplicationRecord{Status: ApplicationStatusUnderReview}.IsSubmitted())
}
