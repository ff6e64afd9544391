package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapEntityType(t *testing.T) {
	cases := []struct {
		raw  string
		want EntityType
	}{
		{"PERSON", EntityPerson},
		{"person", EntityPerson},
		{"  Organization  ", EntityOrganization},
		{"contract_number", EntityContractNumber},
		{"NAICS_CODE", EntityNAICSCode},
		{"deadline", EntityDeadline},
		{"misc", EntityMisc},
		// Anything outside the closed enumeration collapses to MISC.
		{"GADGET", EntityMisc},
		{"", EntityMisc},
		{"person name", EntityMisc},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapEntityType(tc.raw), "raw=%q", tc.raw)
	}
}

func TestAnalyzeOptionsDefaults(t *testing.T) {
	var opts AnalyzeOptions
	assert.True(t, opts.EntityExtractionEnabled())
	assert.True(t, opts.SecurityAnalysisEnabled())
	assert.True(t, opts.QualityScoringEnabled())

	off := false
	opts.IncludeSecurityAnalysis = &off
	assert.False(t, opts.SecurityAnalysisEnabled())
	assert.True(t, opts.EntityExtractionEnabled())
}
