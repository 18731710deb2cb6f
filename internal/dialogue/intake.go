package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// commonConditions recognized inside a free-text previous-history reply.
var commonConditions = []string{
	"viral fever", "flu", "influenza", "cold", "common cold", "migraine",
	"gastritis", "food poisoning", "bronchitis", "sinusitis", "tonsillitis",
	"pneumonia", "typhoid", "dengue", "malaria",
}

// collectSymptoms records the symptom description and moves to the fixed
// history question.
func (h *Handlers) collectSymptoms(ctx context.Context, st *State) {
	if st.Reply != "" && st.Reply != "continue" {
		h.update(ctx, st.SessionID, "symptoms", st.Reply, nil)
	}
	st.CurrentQuestion = questionPreviousHistory
	st.CurrentStep = StepPreviousHistory
}

// previousHistory records the consultation answer and, when a prior
// diagnosis was disclosed, enriches the next prompt with related conditions.
// A patient who saw a doctor but left the diagnosis out is asked for it on
// the same step.
func (h *Handlers) previousHistory(ctx context.Context, st *State) {
	h.update(ctx, st.SessionID, "previous_history", st.Reply, nil)

	diagnosis := extractDiagnosis(st.Reply)
	if diagnosis == "" {
		if mentionsConsultation(st.Reply) {
			st.CurrentQuestion = questionDoctorDiagnosis
			st.CurrentStep = StepPreviousHistory
			return
		}
		st.CurrentQuestion = questionMedicationHistory
		st.CurrentStep = StepMedicationHistory
		return
	}

	sess := h.loadSession(ctx, st.SessionID)
	similar, err := h.llm.Complete(ctx, fmt.Sprintf(promptSimilarDiagnoses,
		strings.Join(sess.Symptoms, ", "), diagnosis))
	if err != nil || strings.TrimSpace(similar) == "" {
		if err != nil {
			h.log.Warn("similar diagnoses delegation failed", zap.Error(err))
		}
		st.CurrentQuestion = fmt.Sprintf("Thank you for sharing that you were diagnosed with %s. %s",
			diagnosis, questionMedicationHistory)
	} else {
		st.CurrentQuestion = fmt.Sprintf("Thank you for sharing that you were diagnosed with %s. Similar conditions to consider include: %s\n\n%s",
			diagnosis, strings.TrimSpace(similar), questionMedicationHistory)
	}
	st.CurrentStep = StepMedicationHistory
}

// mentionsConsultation reports whether a history reply affirms a doctor
// visit. Same trigger words the multi-part completeness check uses.
func mentionsConsultation(reply string) bool {
	lower := strings.ToLower(reply)
	if lower == "no" || strings.HasPrefix(lower, "no ") || strings.HasPrefix(lower, "no,") ||
		strings.Contains(lower, "not ") || strings.Contains(lower, "never") {
		return false
	}
	for _, t := range multiPartPatterns["previous_history"].triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// extractDiagnosis pulls a disclosed prior diagnosis out of a free-text
// history reply. Best effort only; an empty result just skips the
// related-conditions enrichment.
func extractDiagnosis(reply string) string {
	lower := strings.ToLower(reply)

	if idx := strings.Index(lower, "diagnosed with"); idx >= 0 {
		rest := strings.TrimSpace(reply[idx+len("diagnosed with"):])
		if end := strings.IndexAny(rest, ".,;"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(reply, ":"); idx >= 0 {
		rest := strings.TrimSpace(reply[idx+1:])
		if rest != "" {
			return rest
		}
	}
	for _, cond := range commonConditions {
		if strings.Contains(lower, cond) {
			return cond
		}
	}
	return ""
}

// medicationHistory records the medication answer; the next question is
// tailored when the validator extracted specific medications.
func (h *Handlers) medicationHistory(ctx context.Context, st *State) {
	h.update(ctx, st.SessionID, "medication_history", st.Reply, nil)

	sess := h.loadSession(ctx, st.SessionID)
	if details := sess.LastDetails(); details != nil {
		if meds := detailStrings(details, "medications"); len(meds) > 0 {
			st.CurrentQuestion = fmt.Sprintf("Thank you for letting me know about %s. %s",
				strings.Join(meds, ", "), questionAdditionalSymptoms)
			st.CurrentStep = StepAdditionalSymptoms
			return
		}
	}
	st.CurrentQuestion = questionAdditionalSymptoms
	st.CurrentStep = StepAdditionalSymptoms
}

// additionalSymptoms closes the fixed intake: record the answer, produce the
// quick bulleted diagnosis, and hand over to the criticality check.
func (h *Handlers) additionalSymptoms(ctx context.Context, st *State) {
	h.update(ctx, st.SessionID, "additional_symptoms", st.Reply, nil)

	sess := h.loadSession(ctx, st.SessionID)
	h.update(ctx, st.SessionID, "intermediate_message", messageEnoughInformation, nil)

	diagnosis, err := h.llm.Complete(ctx, fmt.Sprintf(promptBulletedDiagnosis,
		strings.Join(sess.Symptoms, ", "),
		sess.PreviousHistory,
		sess.MedicationHistory,
		sess.AdditionalSymptoms))
	if err != nil || strings.TrimSpace(diagnosis) == "" {
		if err != nil {
			h.log.Warn("bulleted diagnosis delegation failed", zap.Error(err))
		}
		diagnosis = renderDiagnosisCard(
			"Unable to determine specific condition from symptoms provided",
			defaultActionSteps, defaultDiagnosisNote)
	}

	h.update(ctx, st.SessionID, "diagnosis", diagnosis, nil)
	st.CurrentQuestion = diagnosis
	st.CurrentStep = StepCriticality
}

// detailStrings reads a list-of-strings detail that may have round-tripped
// through JSON as []any.
func detailStrings(details map[string]any, key string) []string {
	switch v := details[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
