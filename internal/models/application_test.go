package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampStep(t *testing.T) {
	assert.Equal(t, 1, ClampStep(0))
	assert.Equal(t, 1, ClampStep(-3))
	assert.Equal(t, 7, ClampStep(7))
	assert.Equal(t, 11, ClampStep(12))
}

func TestRecord_MergeOverwritesSetGroupsOnly(t *testing.T) {
	rec := ApplicationRecord{
		Identity:         &Identity{FirstName: "Ann", Email: "ann@example.com"},
		ResidenceHistory: &ResidenceHistory{Residences: []Residence{{City: "Reno"}}},
	}
	rec.Merge(ApplicationRecord{
		Identity:  &Identity{FirstName: "Anna", Email: "anna@example.com"},
		Documents: &Documents{LicenseFrontURL: "/front"},
	})

	assert.Equal(t, "Anna", rec.Identity.FirstName)
	assert.Equal(t, "Reno", rec.ResidenceHistory.Residences[0].City)
	assert.Equal(t, "/front", rec.Documents.LicenseFrontURL)
	assert.Equal(t, "anna@example.com", rec.Email())
}

func TestRecord_NormalizeClearsToggledLists(t *testing.T) {
	rec := ApplicationRecord{
		AccidentHistory:   &AccidentHistory{HasAccidents: false, Accidents: []Accident{{Nature: "rear-end"}}},
		ConvictionHistory: &ConvictionHistory{HasConvictions: true, Convictions: []Conviction{{Violation: "speeding"}}},
		CurrentLicense:    &CurrentLicense{DeniedLicense: false, DeniedExplanation: "stale"},
		LicenseHistory:    &LicenseHistory{Licenses: []PriorLicense{{State: "NV"}}, OnlyOneLicense: true},
	}
	rec.Normalize()

	assert.Nil(t, rec.AccidentHistory.Accidents)
	assert.Len(t, rec.ConvictionHistory.Convictions, 1)
	assert.Empty(t, rec.CurrentLicense.DeniedExplanation)
	assert.False(t, rec.LicenseHistory.OnlyOneLicense)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "rear-end")
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := ApplicationRecord{AccidentHistory: &AccidentHistory{HasAccidents: true, Accidents: []Accident{{Nature: "a"}}}}
	clone := rec.Clone()
	clone.AccidentHistory.Accidents[0].Nature = "b"

	assert.Equal(t, "a", rec.AccidentHistory.Accidents[0].Nature)
	assert.False(t, rec.Equal(clone))
	assert.True(t, rec.Equal(rec.Clone()))
}

func TestApplicantName(t *testing.T) {
	rec := ApplicationRecord{Identity: &Identity{FirstName: " Ann ", LastName: "Lee"}}
	assert.Equal(t, "Ann Lee", rec.ApplicantName())
	assert.Empty(t, (&ApplicationRecord{}).ApplicantName())
}

func TestContainsRawSSN(t *testing.T) {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"identity":{"ssn_encrypted":"djE6YWJj","zip":"89501-1234","phone":"5551234567"}}`), &doc))
	assert.False(t, ContainsRawSSN(doc))

	require.NoError(t, json.Unmarshal([]byte(`{"identity":{"ssn":"123-45-6789"}}`), &doc))
	assert.True(t, ContainsRawSSN(doc))

	require.NoError(t, json.Unmarshal([]byte(`{"notes":["x","123456789"]}`), &doc))
	assert.True(t, ContainsRawSSN(doc))

	assert.False(t, IsRawSSN("***-**-6789"))
}
