package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const fallbackCriticalityAssessment = `## URGENCY LEVEL
ROUTINE

## TIMEFRAME
See a doctor at your convenience if symptoms persist.

## PRECAUTIONS
- Rest and stay hydrated
- Monitor your symptoms for any changes
- Avoid strenuous activity until you feel better

## DISCLAIMER
This assessment is not a substitute for professional medical care. Please consult a healthcare provider for a proper evaluation.`

// diagnosisPrep builds the preliminary diagnosis card from the whole
// conversation narrative.
func (h *Handlers) diagnosisPrep(ctx context.Context, st *State) {
	sess := h.loadSession(ctx, st.SessionID)
	narrative := sess.Narrative()
	if narrative == "" {
		narrative = strings.Join(sess.Symptoms, ", ")
	}

	raw, err := h.llm.Complete(ctx, fmt.Sprintf(promptDiagnosis, narrative))
	if err != nil {
		h.log.Warn("diagnosis delegation failed, using defaults", zap.Error(err))
		raw = ""
	}

	condition, actionSteps, note := parseDiagnosisSections(raw)
	card := renderDiagnosisCard(condition, actionSteps, note)

	if raw != "" {
		h.update(ctx, st.SessionID, "diagnosis", raw, nil)
	} else {
		h.update(ctx, st.SessionID, "diagnosis", card, nil)
	}
	st.Diagnosis = raw
	st.CurrentQuestion = card
	st.CurrentStep = StepCriticality
}

// generateDiagnosis is the quick bulleted variant used when the fixed intake
// path reaches diagnosis directly.
func (h *Handlers) generateDiagnosis(ctx context.Context, st *State) {
	sess := h.loadSession(ctx, st.SessionID)

	raw, err := h.llm.Complete(ctx, fmt.Sprintf(promptBulletedDiagnosis,
		strings.Join(sess.Symptoms, ", "),
		sess.PreviousHistory,
		sess.MedicationHistory,
		sess.AdditionalSymptoms))
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			h.log.Warn("diagnosis delegation failed, using defaults", zap.Error(err))
		}
		raw = "Unable to determine specific condition from symptoms provided"
	}

	condition := raw
	if idx := strings.Index(raw, "ACTION STEPS"); idx >= 0 {
		condition = strings.TrimSpace(strings.TrimSuffix(raw[:idx], "##"))
	}
	h.update(ctx, st.SessionID, "diagnosis", raw, nil)
	st.Diagnosis = raw
	st.CurrentQuestion = renderDiagnosisCard(condition, defaultActionSteps, defaultDiagnosisNote)
	st.CurrentStep = StepCriticality
}

// criticality closes the consultation: a binary urgency check that can still
// escalate to the emergency path, otherwise the structured final assessment.
func (h *Handlers) criticality(ctx context.Context, st *State) {
	sess := h.loadSession(ctx, st.SessionID)
	symptoms := strings.Join(sess.Symptoms, ", ")

	verdict, err := h.llm.Complete(ctx, fmt.Sprintf(promptUrgencyCheck,
		symptoms, sess.PreviousHistory, sess.MedicationHistory, sess.Diagnosis))
	if err == nil && strings.ToUpper(strings.TrimSpace(verdict)) == "YES" {
		st.UrgencyLevel = UrgencyUrgent
		h.urgentFollowUp(ctx, st)
		return
	}
	if err != nil {
		h.log.Warn("urgency check delegation failed, treating as non-urgent", zap.Error(err))
	}

	assessment, err := h.llm.Complete(ctx, fmt.Sprintf(promptCriticality,
		symptoms, sess.PreviousHistory, sess.MedicationHistory, sess.Diagnosis))
	if err != nil || strings.TrimSpace(assessment) == "" {
		if err != nil {
			h.log.Warn("criticality delegation failed, using routine default", zap.Error(err))
		}
		assessment = fallbackCriticalityAssessment
	}

	critical := strings.Contains(assessment, "URGENT")
	if critical {
		h.update(ctx, st.SessionID, "critical", "yes", nil)
	} else {
		h.update(ctx, st.SessionID, "critical", "no", nil)
	}
	st.Critical = critical
	st.CurrentQuestion = assessment
	st.CurrentStep = StepEnd
}
