package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name        string
		currentStep string
		customPath  string
		want        string
	}{
		{"custom path wins", StepDynamicSymptoms, StepInjuryAssessment, StepInjuryAssessment},
		{"custom path wins over continued", StepDigestiveAssessment + ContinuedSuffix, StepRespiratoryAssessment, StepRespiratoryAssessment},
		{"continued marker stripped", StepDynamicSymptoms + ContinuedSuffix, "", StepDynamicSymptoms},
		{"legacy symptoms alias", StepSymptoms, "", StepCollectSymptoms},
		{"identity for fixed steps", StepPreviousHistory, "", StepPreviousHistory},
		{"identity for urgent path", StepUrgentFollowUp, "", StepUrgentFollowUp},
		{"unknown falls back to triage", "telemetry_upload", "", StepInitialAssessment},
		{"empty falls back to triage", "", "", StepInitialAssessment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.currentStep, tt.customPath))
		})
	}
}
