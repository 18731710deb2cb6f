package dialogue

import (
	"medtriage/internal/session"
)

// Step identifiers for the dialogue graph.
const (
	StepStart             = "start"
	StepInitialAssessment = "initial_assessment"

	// Legacy fixed intake path.
	StepSymptoms           = "symptoms"
	StepCollectSymptoms    = "collect_symptoms"
	StepPreviousHistory    = "previous_history"
	StepMedicationHistory  = "medication_history"
	StepAdditionalSymptoms = "additional_symptoms"

	// Dynamic category steps; these self-loop under the continued marker.
	StepDynamicSymptoms       = "dynamic_symptoms"
	StepInjuryAssessment      = "injury_assessment"
	StepInfectionAssessment   = "infection_assessment"
	StepDigestiveAssessment   = "digestive_assessment"
	StepRespiratoryAssessment = "respiratory_assessment"
	StepChronicCondition      = "chronic_condition"

	// Urgent path.
	StepUrgentFollowUp    = "urgent_follow_up"
	StepEmergencyServices = "emergency_services"

	// Diagnosis and wrap-up.
	StepDiagnosisPrep = "diagnosis_prep"
	StepDiagnosis     = "diagnosis"
	StepCriticality   = "criticality"
	StepEnd           = "end"
)

// ContinuedSuffix marks a self-loop iteration of a dynamic step.
const ContinuedSuffix = "_continued"

// Urgency levels.
const (
	UrgencyUrgent  = "urgent"
	UrgencyNormal  = "normal"
	UrgencyRoutine = "routine"
	UrgencyLow     = "low"
)

// maxDynamicTurns bounds digression on a dynamic category step: after this
// many completed turns the next invocation force-routes to diagnosis.
const maxDynamicTurns = 4

// State is the per-turn record threaded through one engine invocation. It is
// built fresh from the session plus the latest raw reply, mutated by exactly
// one handler, and its results folded back into the session afterwards.
type State struct {
	SessionID string
	Reply     string

	IsExisting         bool
	Symptoms           []string
	PreviousHistory    string
	MedicationHistory  string
	AdditionalSymptoms string
	Diagnosis          string
	Critical           bool

	CurrentQuestion string
	CurrentStep     string
	UrgencyLevel    string

	// CustomPath preempts normal routing when set by a handler.
	CustomPath string
	// CustomContext carries step-local bookkeeping (turn_count,
	// last_response, category) across turns.
	CustomContext map[string]any
}

// newState builds the per-turn state from a session snapshot.
func newState(s *session.Session, reply string) *State {
	ctx := make(map[string]any, len(s.CustomContext))
	for k, v := range s.CustomContext {
		ctx[k] = v
	}
	urgency := s.UrgencyLevel
	if urgency == "" {
		urgency = UrgencyNormal
	}
	return &State{
		SessionID:          s.ID,
		Reply:              reply,
		IsExisting:         s.IsExisting,
		Symptoms:           append([]string(nil), s.Symptoms...),
		PreviousHistory:    s.PreviousHistory,
		MedicationHistory:  s.MedicationHistory,
		AdditionalSymptoms: s.AdditionalSymptoms,
		Diagnosis:          s.Diagnosis,
		Critical:           s.Critical,
		CurrentStep:        StepStart,
		UrgencyLevel:       urgency,
		CustomContext:      ctx,
	}
}

// expectedTypes maps a step to the reply type the validator should check.
var expectedTypes = map[string]string{
	StepStart:              "symptoms",
	StepInitialAssessment:  "symptoms",
	StepSymptoms:           "symptoms",
	StepCollectSymptoms:    "symptoms",
	StepPreviousHistory:    "previous_history",
	StepMedicationHistory:  "medication_history",
	StepAdditionalSymptoms: "additional_symptoms",
	StepDiagnosisPrep:      "general",
	StepDiagnosis:          "general",
	StepCriticality:        "general",
	StepEnd:                "general",
}

func expectedTypeFor(step string) string {
	if t, ok := expectedTypes[step]; ok {
		return t
	}
	return "general"
}

// categorySteps routes an assessed medical category to its dedicated
// dynamic step.
var categorySteps = map[string]string{
	"injury":      StepInjuryAssessment,
	"infection":   StepInfectionAssessment,
	"digestive":   StepDigestiveAssessment,
	"respiratory": StepRespiratoryAssessment,
	"chronic":     StepChronicCondition,
}

// contextInt reads an integer from the custom context, tolerating the
// float64 that JSON-backed stores hand back.
func contextInt(ctx map[string]any, key string) int {
	switch v := ctx[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
