package dialogue

import "strings"

// stepFlow is the static step→step table: identity for the dynamic steps,
// translation for the legacy fixed intake steps.
var stepFlow = map[string]string{
	StepStart:                 StepStart,
	StepInitialAssessment:     StepInitialAssessment,
	StepDynamicSymptoms:       StepDynamicSymptoms,
	StepInjuryAssessment:      StepInjuryAssessment,
	StepInfectionAssessment:   StepInfectionAssessment,
	StepDigestiveAssessment:   StepDigestiveAssessment,
	StepRespiratoryAssessment: StepRespiratoryAssessment,
	StepChronicCondition:      StepChronicCondition,
	StepUrgentFollowUp:        StepUrgentFollowUp,
	StepEmergencyServices:     StepEmergencyServices,
	StepSymptoms:              StepCollectSymptoms,
	StepCollectSymptoms:       StepCollectSymptoms,
	StepPreviousHistory:       StepPreviousHistory,
	StepMedicationHistory:     StepMedicationHistory,
	StepAdditionalSymptoms:    StepAdditionalSymptoms,
	StepDiagnosisPrep:         StepDiagnosisPrep,
	StepDiagnosis:             StepDiagnosis,
	StepCriticality:           StepCriticality,
	StepEnd:                   StepEnd,
}

// Route resolves the step to execute next. Pure function, never fails:
//
//  1. A non-empty customPath always wins.
//  2. A continued marker is stripped so dynamic handlers keep running under
//     their base identity.
//  3. Otherwise the static table applies.
//  4. Unknown identifiers fall back to the initial triage step.
func Route(currentStep, customPath string) string {
	if customPath != "" {
		return customPath
	}
	if strings.HasSuffix(currentStep, ContinuedSuffix) {
		return strings.TrimSuffix(currentStep, ContinuedSuffix)
	}
	if next, ok := stepFlow[currentStep]; ok {
		return next
	}
	return StepInitialAssessment
}
