package dialogue

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"medtriage/internal/agent"
)

// Result is the outcome of validating one reply. When IsValid is false the
// Feedback must be shown to the user instead of advancing; a true
// partial_answer detail marks a valid-but-incomplete reply that warrants a
// same-step follow-up rather than a hard rejection.
type Result struct {
	IsValid           bool
	Feedback          string
	ProcessedResponse string
	Details           map[string]any
}

func accepted(reply string) Result {
	return Result{IsValid: true, ProcessedResponse: reply}
}

// chronicConditions are disclosures that must never be rejected for brevity.
var chronicConditions = []string{"diabetes", "diabetic", "hypertension", "asthma", "copd", "arthritis", "thyroid"}

// chronicTriggers is the quicker check that fires the chronic-condition
// bypass before the full extraction.
var chronicTriggers = []string{"diabetes", "diabetic", "hypertension", "asthma", "chronic"}

// symptomIndicators are the words that let a short reply pass as a symptom
// description.
var symptomIndicators = []string{"diabetes", "pain", "ache", "hurt", "sick"}

// multiPartPatterns describe two-part questions: a trigger word without any
// follow-up term means the second half went unanswered.
var multiPartPatterns = map[string]struct {
	parts            [2]string
	triggers         []string
	requiredFollowUp []string
}{
	"previous_history": {
		parts:            [2]string{"have you consulted a doctor", "what was their diagnosis"},
		triggers:         []string{"yes", "i have", "i did", "consulted"},
		requiredFollowUp: []string{"diagnosis", "said", "told me", "found"},
	},
	"medication_history": {
		parts:            [2]string{"have you taken any medications", "what medications and side effects"},
		triggers:         []string{"yes", "i have", "i did", "taking", "took"},
		requiredFollowUp: []string{"medication", "drug", "pill", "medicine", "paracetamol", "ibuprofen"},
	},
}

// Validator classifies whether a reply satisfies the question just asked.
// It runs an ordered cascade of local guard rules and only delegates to the
// completion service when none of them decide.
type Validator struct {
	llm agent.Completer
	log *zap.Logger
}

func NewValidator(llm agent.Completer, log *zap.Logger) *Validator {
	return &Validator{llm: llm, log: log}
}

// Validate runs the guard cascade. It never writes session state; the
// caller records the details on success.
func (v *Validator) Validate(ctx context.Context, question, reply, expectedType string) Result {
	for _, rule := range []func(question, reply, expectedType string) *Result{
		sentinelRule,
		barePartialHistoryRule,
		chronicConditionRule,
		shortReplyRule,
		multiPartRule,
	} {
		if res := rule(question, reply, expectedType); res != nil {
			return *res
		}
	}
	return v.delegate(ctx, question, reply, expectedType)
}

// sentinelRule: "continue" is the escape hatch for forced progression.
func sentinelRule(_, reply, _ string) *Result {
	if reply == "continue" {
		r := accepted(reply)
		return &r
	}
	return nil
}

// barePartialHistoryRule: a bare "yes" to the two-part consultation question
// is valid in topic but incomplete; ask for the diagnosis on the same step.
func barePartialHistoryRule(_, reply, expectedType string) *Result {
	if expectedType != "previous_history" || !strings.EqualFold(strings.TrimSpace(reply), "yes") {
		return nil
	}
	return &Result{
		IsValid:           false,
		Feedback:          "You mentioned seeing a doctor. Could you please also share what diagnosis they provided?",
		ProcessedResponse: reply,
		Details: map[string]any{
			"has_consulted_doctor": true,
			"extracted_diagnosis":  "",
			"partial_answer":       true,
		},
	}
}

// chronicConditionRule: chronic-disease disclosures are always valid
// symptom replies, whatever their length.
func chronicConditionRule(_, reply, expectedType string) *Result {
	if expectedType != "symptoms" {
		return nil
	}
	lower := strings.ToLower(reply)
	triggered := false
	for _, t := range chronicTriggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}

	var conditions []string
	for _, c := range chronicConditions {
		if strings.Contains(lower, c) {
			conditions = append(conditions, c)
		}
	}
	return &Result{
		IsValid:           true,
		ProcessedResponse: reply,
		Details: map[string]any{
			"is_valid":             true,
			"reason":               fmt.Sprintf("Patient disclosed medical condition: %s", strings.Join(conditions, ", ")),
			"is_chronic_condition": true,
			"medical_conditions":   conditions,
			"extracted_symptoms":   conditions,
		},
	}
}

// shortReplyRule handles replies of 20 characters or fewer with cheap local
// checks instead of a delegation round trip.
func shortReplyRule(_, reply, expectedType string) *Result {
	trimmed := strings.TrimSpace(reply)
	if utf8.RuneCountInString(trimmed) > 20 {
		return nil
	}
	lower := strings.ToLower(trimmed)

	switch expectedType {
	case "symptoms":
		if lower == "hi" || lower == "hello" {
			return &Result{
				IsValid:           false,
				Feedback:          "I need to understand your symptoms to help you. Could you please describe what health issues you're experiencing in more detail?",
				ProcessedResponse: reply,
				Details:           map[string]any{"is_valid": false, "reason": "Greeting instead of symptoms"},
			}
		}
		for _, w := range symptomIndicators {
			if strings.Contains(lower, w) {
				r := accepted(reply)
				return &r
			}
		}
		return &Result{
			IsValid:           false,
			Feedback:          "I notice your response is quite brief. Could you please provide more details about your current health concerns or symptoms? This will help me assist you better.",
			ProcessedResponse: reply,
			Details:           map[string]any{"is_valid": false, "reason": "The response is too brief and lacks detail about the current health concern."},
		}
	case "previous_history":
		return &Result{
			IsValid:           true,
			ProcessedResponse: reply,
			Details: map[string]any{
				"is_valid":             true,
				"has_consulted_doctor": strings.Contains(lower, "yes"),
				"extracted_diagnosis":  extractShortDiagnosis(lower),
			},
		}
	default:
		r := accepted(reply)
		return &r
	}
}

func extractShortDiagnosis(lower string) string {
	if strings.Contains(lower, "no") {
		return ""
	}
	return lower
}

// multiPartRule rejects replies that trigger a two-part question but answer
// only half of it.
func multiPartRule(question, reply, expectedType string) *Result {
	complete, missing := checkComplete(question, reply, expectedType)
	if complete {
		return nil
	}
	return &Result{
		IsValid:           false,
		Feedback:          fmt.Sprintf("Could you please also tell me about %s?", missing),
		ProcessedResponse: reply,
		Details: map[string]any{
			"is_valid":       false,
			"reason":         fmt.Sprintf("Incomplete answer to multi-part question. Missing: %s", missing),
			"partial_answer": true,
		},
	}
}

// checkComplete reports whether a reply covers both halves of a multi-part
// question; the missing part is whichever half the question itself did not
// already resolve.
func checkComplete(question, reply, expectedType string) (bool, string) {
	pattern, ok := multiPartPatterns[expectedType]
	if !ok {
		return true, ""
	}
	lowerReply := strings.ToLower(reply)

	hasTrigger := false
	for _, t := range pattern.triggers {
		if strings.Contains(lowerReply, t) {
			hasTrigger = true
			break
		}
	}
	if !hasTrigger {
		return true, ""
	}
	for _, f := range pattern.requiredFollowUp {
		if strings.Contains(lowerReply, f) {
			return true, ""
		}
	}

	missing := pattern.parts[0]
	if strings.Contains(strings.ToLower(question), pattern.parts[0]) {
		missing = pattern.parts[1]
	}
	return false, missing
}

// delegate asks the completion service for a structured judgment. Any
// failure - transport, timeout, or unparseable output - resolves to valid
// with the raw reply passed through; validation never blocks a conversation
// on a model error.
func (v *Validator) delegate(ctx context.Context, question, reply, expectedType string) Result {
	tmpl, ok := validationPrompts[expectedType]
	if !ok {
		tmpl = validationPrompts["general"]
	}
	raw, err := v.llm.Complete(ctx, fmt.Sprintf(tmpl, question, reply))
	if err != nil {
		v.log.Warn("validation delegation failed, accepting reply",
			zap.String("expected_type", expectedType), zap.Error(err))
		return accepted(reply)
	}

	var judgment map[string]any
	if err := agent.DecodeFirstObject(raw, &judgment); err != nil {
		v.log.Warn("validation response not parseable, accepting reply",
			zap.String("expected_type", expectedType), zap.Error(err))
		return accepted(reply)
	}

	isValid := true
	if b, ok := judgment["is_valid"].(bool); ok {
		isValid = b
	}
	processed := reply
	if p, ok := judgment["processed_response"].(string); ok && p != "" {
		processed = p
	}

	feedback := ""
	if !isValid {
		reason, _ := judgment["reason"].(string)
		feedback = fmt.Sprintf("I notice your response doesn't seem to address my question about %s. %s Could you please provide more specific information?", expectedType, reason)
	}
	return Result{
		IsValid:           isValid,
		Feedback:          feedback,
		ProcessedResponse: processed,
		Details:           judgment,
	}
}
