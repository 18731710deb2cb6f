package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medtriage/internal/session"
)

const summaryInsufficientData = "## Medical Case Summary\n\nInsufficient information collected so far to produce a case summary. Please describe the patient's symptoms first."

const summaryUnavailable = "## Medical Case Summary\n\nA summary could not be generated at this time. Please try again later."

// caseSummary produces the physician-facing summary of everything collected
// so far. Works at any point in the conversation.
func (h *Handlers) caseSummary(ctx context.Context, sess *session.Session) string {
	if len(sess.Symptoms) == 0 && sess.Narrative() == "" {
		return summaryInsufficientData
	}

	urgency := "Not assessed"
	if sess.UrgencyLevel != "" {
		urgency = sess.UrgencyLevel
	}
	diagnosis := sess.Diagnosis
	if diagnosis == "" {
		diagnosis = "Not yet determined"
	}

	extracted := aggregateDetails(sess)
	extractedJSON := "{}"
	if raw, err := json.Marshal(extracted); err == nil {
		extractedJSON = string(raw)
	}

	content, err := h.llm.Complete(ctx, fmt.Sprintf(promptCaseSummary,
		strings.Join(sess.Symptoms, ", "),
		sess.PreviousHistory,
		sess.MedicationHistory,
		sess.AdditionalSymptoms,
		diagnosis,
		urgency,
		extractedJSON))
	if err != nil || strings.TrimSpace(content) == "" {
		if err != nil {
			h.log.Warn("case summary delegation failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
		return summaryUnavailable
	}
	return "## Medical Case Summary\n\n" + strings.TrimSpace(content)
}

// aggregateDetails merges the structured bits the validator extracted across
// all turns.
func aggregateDetails(sess *session.Session) map[string][]string {
	out := make(map[string][]string)
	for _, e := range sess.History {
		if e.Details == nil {
			continue
		}
		for _, key := range []string{"extracted_symptoms", "medications", "side_effects", "additional_symptoms", "medical_conditions"} {
			for _, v := range detailStrings(e.Details, key) {
				if !containsString(out[key], v) {
					out[key] = append(out[key], v)
				}
			}
		}
		if d, ok := e.Details["extracted_diagnosis"].(string); ok && d != "" {
			if !containsString(out["extracted_diagnosis"], d) {
				out["extracted_diagnosis"] = append(out["extracted_diagnosis"], d)
			}
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
