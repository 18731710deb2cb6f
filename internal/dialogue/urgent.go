package dialogue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medtriage/internal/agent"
)

// urgentFollowUp produces condition-specific emergency guidance and parks
// the conversation on the emergency-services step.
func (h *Handlers) urgentFollowUp(ctx context.Context, st *State) {
	if st.Reply != "" && st.Reply != "continue" {
		h.update(ctx, st.SessionID, "urgent_follow_up", st.Reply, nil)
	}

	sess := h.loadSession(ctx, st.SessionID)
	narrative := sess.Narrative()

	steps := defaultEmergencySteps
	raw, err := h.llm.Complete(ctx, fmt.Sprintf(promptEmergencySteps, narrative))
	if err != nil {
		h.log.Warn("emergency steps delegation failed, using defaults", zap.Error(err))
	} else if parsed := agent.NumberedSteps(raw); len(parsed) >= 3 {
		steps = parsed
	}

	st.UrgencyLevel = UrgencyUrgent
	st.CurrentQuestion = renderUrgentSteps("URGENT MEDICAL SITUATION", steps)
	st.CurrentStep = StepEmergencyServices
}
