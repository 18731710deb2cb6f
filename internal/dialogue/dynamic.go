package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medtriage/internal/agent"
)

// dynamicFollowUp runs one turn of a self-looping category step: record the
// reply, either force diagnosis after the turn ceiling or ask the completion
// service for the next personalized question.
func (h *Handlers) dynamicFollowUp(ctx context.Context, st *State) {
	base := strings.TrimSuffix(st.CurrentStep, ContinuedSuffix)
	if base == "" || base == StepStart {
		base = StepDynamicSymptoms
	}

	h.update(ctx, st.SessionID, base, st.Reply, nil)
	st.CustomContext["last_response"] = st.Reply

	count := contextInt(st.CustomContext, "turn_count")
	if count >= maxDynamicTurns {
		st.CurrentQuestion = messageEnoughInformation
		st.CurrentStep = StepDiagnosisPrep
		return
	}
	st.CustomContext["turn_count"] = count + 1

	category, _ := st.CustomContext["category"].(string)
	if category == "" {
		category = "general"
	}
	keySymptoms := detailStrings(st.CustomContext, "key_symptoms")

	followUp := h.nextFollowUp(ctx, st, base, category, keySymptoms, count+1)
	for k, v := range followUp.AdditionalContext {
		st.CustomContext[k] = v
	}

	if followUp.MoveToDiagnosis {
		st.CurrentQuestion = messageMovingToDiagnosis
		st.CurrentStep = StepDiagnosisPrep
		return
	}
	st.CurrentQuestion = followUp.NextQuestion
	st.CurrentStep = base + ContinuedSuffix
}

type dynamicFollowUpResult struct {
	NextQuestion      string         `json:"next_question"`
	MoveToDiagnosis   bool           `json:"move_to_diagnosis"`
	Reasoning         string         `json:"reasoning"`
	AdditionalContext map[string]any `json:"additional_context"`
}

// nextFollowUp delegates the follow-up decision; any failure resolves to the
// fixed fallback question so the loop keeps turning.
func (h *Handlers) nextFollowUp(ctx context.Context, st *State, base, category string, keySymptoms []string, turn int) dynamicFollowUpResult {
	fallback := dynamicFollowUpResult{NextQuestion: fallbackFollowUpQuestion}

	prompt := fmt.Sprintf(promptDynamicFollowUp,
		h.recentHistory(ctx, st.SessionID),
		st.Reply,
		category,
		strings.Join(keySymptoms, ", "),
		st.UrgencyLevel,
		turn)

	raw, err := h.llm.Complete(ctx, prompt)
	if err != nil {
		h.log.Warn("dynamic follow-up delegation failed",
			zap.String("step", base), zap.Error(err))
		return fallback
	}
	var followUp dynamicFollowUpResult
	if err := agent.DecodeFirstObject(raw, &followUp); err != nil {
		h.log.Warn("dynamic follow-up not parseable",
			zap.String("step", base), zap.Error(err))
		return fallback
	}
	if strings.TrimSpace(followUp.NextQuestion) == "" && !followUp.MoveToDiagnosis {
		return fallback
	}
	return followUp
}

// recentHistory renders the last few patient-facing entries for the
// follow-up prompt.
func (h *Handlers) recentHistory(ctx context.Context, id string) string {
	sess := h.loadSession(ctx, id)

	bookkeeping := map[string]bool{
		"current_question": true,
		"current_step":     true,
		"validation":       true,
	}
	var lines []string
	for _, e := range sess.History {
		if bookkeeping[e.Key] {
			continue
		}
		lines = append(lines, fmt.Sprintf("Patient: %s", e.Value))
	}
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
