package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medtriage/internal/agent"
	"medtriage/internal/session"
)

// Handlers owns one method per dialogue step. Every handler consumes the
// per-turn state plus the latest reply, appends to the session log, and
// leaves the next prompt and step on the state.
type Handlers struct {
	store session.Store
	llm   agent.Completer
	log   *zap.Logger
}

func NewHandlers(store session.Store, llm agent.Completer, log *zap.Logger) *Handlers {
	return &Handlers{store: store, llm: llm, log: log}
}

// update appends a log entry; store failures are logged and swallowed so a
// flaky backend degrades a turn instead of killing it.
func (h *Handlers) update(ctx context.Context, id, key, value string, details map[string]any) {
	if err := h.store.Update(ctx, id, key, value, details); err != nil {
		h.log.Error("session update failed",
			zap.String("session_id", id), zap.String("key", key), zap.Error(err))
	}
}

func (h *Handlers) loadSession(ctx context.Context, id string) *session.Session {
	s, err := h.store.Get(ctx, id)
	if err != nil {
		h.log.Error("session load failed", zap.String("session_id", id), zap.Error(err))
		return session.New(id)
	}
	return s
}

// start greets a new or returning patient without consuming a reply; a
// reply arriving at start goes straight into triage.
func (h *Handlers) start(ctx context.Context, st *State) {
	if st.Reply == "" {
		if st.IsExisting {
			st.CurrentQuestion = greetingReturning
		} else {
			st.CurrentQuestion = greetingNew
		}
		st.CurrentStep = StepInitialAssessment
		return
	}
	h.initialAssessment(ctx, st)
}

// accidentKeywords force the urgent path before any delegated judgment.
var accidentKeywords = []string{"accident", "crash", "fell", "injured", "hit", "collision", "car accident"}

// chronicFollowUps are the canned condition-specific follow-up questions.
var chronicFollowUps = map[string]string{
	"diabetes":     "Thank you for sharing that you have diabetes. Is this Type 1 or Type 2 diabetes? And are you experiencing any specific issues related to your condition right now?",
	"diabetic":     "Thank you for mentioning you're diabetic. Is this Type 1 or Type 2 diabetes? And are you experiencing any specific issues related to your condition right now?",
	"hypertension": "Thank you for letting me know about your hypertension. Are you currently experiencing any symptoms like headache, dizziness, or chest pain?",
	"asthma":       "Thank you for sharing that you have asthma. Are you currently experiencing any breathing difficulties or increased use of your rescue inhaler?",
}

// urgencyAssessment is the structured triage judgment requested from the
// completion service.
type urgencyAssessment struct {
	UrgencyLevel         string   `json:"urgency_level"`
	Category             string   `json:"category"`
	Reasoning            string   `json:"reasoning"`
	KeySymptoms          []string `json:"key_symptoms"`
	RecommendedQuestions []string `json:"recommended_questions"`
}

var fallbackAssessment = urgencyAssessment{
	UrgencyLevel: "ROUTINE",
	Category:     "general",
	Reasoning:    "Unable to determine urgency from description",
}

// initialAssessment is the urgency triage: hard keyword overrides first,
// delegated judgment only when no guard fires.
func (h *Handlers) initialAssessment(ctx context.Context, st *State) {
	reply := st.Reply
	lower := strings.ToLower(reply)

	// Accident mentions always escalate, whatever a classifier might say.
	for _, kw := range accidentKeywords {
		if strings.Contains(lower, kw) {
			h.handleAccident(ctx, st)
			return
		}
	}

	// Chronic-condition disclosures get a condition-specific follow-up.
	for _, condition := range chronicConditions {
		if strings.Contains(lower, condition) {
			h.handleChronicCondition(ctx, st, condition)
			return
		}
	}

	assessment := h.assessUrgency(ctx, reply)

	st.UrgencyLevel = strings.ToLower(assessment.UrgencyLevel)
	st.CustomContext["category"] = assessment.Category
	st.CustomContext["key_symptoms"] = assessment.KeySymptoms
	st.CustomContext["reasoning"] = assessment.Reasoning

	if raw, err := json.Marshal(assessment); err == nil {
		h.update(ctx, st.SessionID, "urgency_assessment", string(raw), nil)
	}

	if strings.EqualFold(assessment.UrgencyLevel, "URGENT") {
		h.handleUrgentGuidance(ctx, st)
		return
	}

	question, err := h.llm.Complete(ctx, fmt.Sprintf(promptNextQuestion,
		reply, assessment.Category, strings.Join(assessment.KeySymptoms, ", "), assessment.UrgencyLevel))
	if err != nil || strings.TrimSpace(question) == "" {
		h.log.Warn("follow-up question delegation failed, using fallback", zap.Error(err))
		question = fallbackFollowUpQuestion
	}
	st.CurrentQuestion = question

	if step, ok := categorySteps[strings.ToLower(assessment.Category)]; ok {
		st.CustomPath = step
		st.CurrentStep = step
	} else {
		st.CurrentStep = StepDynamicSymptoms
	}
}

func (h *Handlers) handleAccident(ctx context.Context, st *State) {
	st.UrgencyLevel = UrgencyUrgent
	st.CustomPath = StepInjuryAssessment
	st.CustomContext["category"] = "injury"
	st.CustomContext["key_symptoms"] = []string{"accident", "injury"}
	st.CustomContext["reasoning"] = "Patient mentioned being in an accident"

	h.update(ctx, st.SessionID, "accident_info", st.Reply, nil)
	h.update(ctx, st.SessionID, "symptoms", "accident injury", nil)

	st.CurrentQuestion = renderUrgentSteps("URGENT MEDICAL SITUATION", accidentEmergencySteps)
	st.CurrentStep = StepUrgentFollowUp
}

func (h *Handlers) handleChronicCondition(ctx context.Context, st *State, condition string) {
	st.UrgencyLevel = UrgencyRoutine
	st.CustomPath = StepChronicCondition
	st.CustomContext["category"] = "chronic"
	st.CustomContext["key_symptoms"] = []string{condition}
	st.CustomContext["reasoning"] = fmt.Sprintf("Patient mentioned %s, which is a chronic condition", condition)

	h.update(ctx, st.SessionID, "medical_condition", condition, nil)
	h.update(ctx, st.SessionID, "symptoms", condition, nil)

	question, ok := chronicFollowUps[condition]
	if !ok {
		question = fmt.Sprintf("Thank you for sharing that you have %s. Could you tell me more about any current symptoms or concerns related to your condition?", condition)
	}
	st.CurrentQuestion = question
	st.CurrentStep = StepChronicCondition
}

func (h *Handlers) handleUrgentGuidance(ctx context.Context, st *State) {
	advice, err := h.llm.Complete(ctx, fmt.Sprintf(promptUrgentAdvice, st.Reply))
	if err != nil || strings.TrimSpace(advice) == "" {
		h.log.Warn("urgent advice delegation failed, using default steps", zap.Error(err))
		st.CurrentQuestion = renderUrgentSteps("URGENT MEDICAL GUIDANCE", defaultEmergencySteps)
	} else {
		st.CurrentQuestion = renderUrgentAdvice("URGENT MEDICAL GUIDANCE", advice)
	}
	st.CurrentStep = StepUrgentFollowUp
}

// assessUrgency delegates the structured triage judgment, resolving any
// failure to the routine/general default.
func (h *Handlers) assessUrgency(ctx context.Context, reply string) urgencyAssessment {
	raw, err := h.llm.Complete(ctx, fmt.Sprintf(promptUrgencyAssessment, reply))
	if err != nil {
		h.log.Warn("urgency assessment delegation failed", zap.Error(err))
		return fallbackAssessment
	}
	var assessment urgencyAssessment
	if err := agent.DecodeFirstObject(raw, &assessment); err != nil {
		h.log.Warn("urgency assessment not parseable", zap.Error(err))
		return fallbackAssessment
	}
	if assessment.UrgencyLevel == "" {
		return fallbackAssessment
	}
	if assessment.Category == "" {
		assessment.Category = "general"
	}
	return assessment
}
