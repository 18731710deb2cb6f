package dialogue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medtriage/internal/session"
)

func newTestEngine(llm *fakeLLM) (*Engine, *session.MemoryStore) {
	store := session.NewMemoryStore()
	log := zap.NewNop()
	engine := NewEngine(store, NewValidator(llm, log), NewHandlers(store, llm, log), log)
	return engine, store
}

func TestAdvanceGreetsNewAndReturningPatients(t *testing.T) {
	engine, _ := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	turn, err := engine.Advance(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, greetingNew, turn.NextQuestion)
	assert.Equal(t, StepInitialAssessment, turn.NextStep)

	turn, err = engine.Advance(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, greetingReturning, turn.NextQuestion)
}

func TestAdvanceAccidentOverride(t *testing.T) {
	llm := &fakeLLM{}
	engine, store := newTestEngine(llm)
	ctx := context.Background()

	turn, err := engine.Advance(ctx, "sess-1", "I was in a car accident this morning")
	require.NoError(t, err)

	assert.Equal(t, StepUrgentFollowUp, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "URGENT MEDICAL SITUATION")
	assert.Contains(t, turn.NextQuestion, "Call 911 immediately")
	assert.Contains(t, turn.NextQuestion, "Loosen tight clothing")
	// No delegation on the hard-override path.
	assert.Equal(t, 0, llm.calls)

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Contains(t, sess.Symptoms, "accident injury")
	assert.Equal(t, UrgencyUrgent, sess.UrgencyLevel)
}

func TestAdvanceChronicConditionFollowUp(t *testing.T) {
	engine, store := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	turn, err := engine.Advance(ctx, "sess-1", "I have diabetes")
	require.NoError(t, err)

	assert.Equal(t, StepChronicCondition, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "Type 1 or Type 2")

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Contains(t, sess.Symptoms, "diabetes")
	assert.Equal(t, "chronic", sess.CustomContext["category"])
}

func TestAdvanceRoutineTriageRoutesByCategory(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: `{"urgency_level": "ROUTINE", "category": "digestive", "reasoning": "stomach complaint", "key_symptoms": ["stomach pain"]}`},
		{match: "generate the most relevant next question", reply: "When did the stomach pain start, and is it related to meals?"},
	}}
	engine, _ := newTestEngine(llm)

	turn, err := engine.Advance(context.Background(), "sess-1", "My stomach hurts badly after every meal this week")
	require.NoError(t, err)

	assert.Equal(t, StepDigestiveAssessment, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "stomach pain")
}

func TestAdvanceUrgentTriageReturnsGuidance(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: `{"urgency_level": "URGENT", "category": "respiratory", "reasoning": "breathing trouble", "key_symptoms": ["shortness of breath"]}`},
		{match: "urgent first aid steps", reply: "1. Call emergency services\n2. Sit upright\n3. Stay calm\n4. Loosen clothing"},
	}}
	engine, _ := newTestEngine(llm)

	turn, err := engine.Advance(context.Background(), "sess-1", "I suddenly cannot catch my breath and my chest feels tight")
	require.NoError(t, err)

	assert.Equal(t, StepUrgentFollowUp, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "URGENT MEDICAL GUIDANCE")
}

func TestAdvanceMalformedTriageJSONFallsBack(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: "I think this is probably routine, nothing structured here."},
		{match: "generate the most relevant next question", reply: "Could you describe when this started?"},
	}}
	engine, _ := newTestEngine(llm)

	turn, err := engine.Advance(context.Background(), "sess-1", "I have had a mild headache on and off for two days")
	require.NoError(t, err)

	// Fallback assessment is routine/general, which has no dedicated step.
	assert.Equal(t, StepDynamicSymptoms, turn.NextStep)
	assert.Equal(t, "Could you describe when this started?", turn.NextQuestion)
}

func TestAdvanceRejectedReplyStaysOnStep(t *testing.T) {
	engine, store := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	// Greeting turn parks the session on the triage step.
	_, err := engine.Advance(ctx, "sess-1", "")
	require.NoError(t, err)

	turn, err := engine.Advance(ctx, "sess-1", "hi")
	require.NoError(t, err)

	// A greeting is not a symptom description; the step does not move.
	assert.Equal(t, StepInitialAssessment, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "describe")

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	step, ok := sess.LastValue("current_step")
	require.True(t, ok)
	assert.Equal(t, StepInitialAssessment, step)
}

func TestAdvanceHistoryWithoutDiagnosisReAsks(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "suggest 2-3 similar", reply: "Influenza, common cold, or sinusitis."},
	}}
	engine, store := newTestEngine(llm)
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "symptoms", "fever and body aches for two days", nil))
	require.NoError(t, store.Update(ctx, "sess-1", "current_question", questionPreviousHistory, nil))
	require.NoError(t, store.Update(ctx, "sess-1", "current_step", StepPreviousHistory, nil))

	// Consulted a doctor but no diagnosis given: ask for it on the same step.
	turn, err := engine.Advance(ctx, "sess-1", "yes i saw one")
	require.NoError(t, err)
	assert.Equal(t, StepPreviousHistory, turn.NextStep)
	assert.Equal(t, questionDoctorDiagnosis, turn.NextQuestion)

	// Naming the diagnosis moves the intake forward.
	turn, err = engine.Advance(ctx, "sess-1", "viral fever")
	require.NoError(t, err)
	assert.Equal(t, StepMedicationHistory, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "viral fever")
}

func TestAdvanceHistoryDeniedMovesOn(t *testing.T) {
	engine, store := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "current_question", questionPreviousHistory, nil))
	require.NoError(t, store.Update(ctx, "sess-1", "current_step", StepPreviousHistory, nil))

	turn, err := engine.Advance(ctx, "sess-1", "no")
	require.NoError(t, err)
	assert.Equal(t, StepMedicationHistory, turn.NextStep)
	assert.Equal(t, questionMedicationHistory, turn.NextQuestion)
}

func TestAdvanceDynamicTurnCeiling(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: `{"urgency_level": "ROUTINE", "category": "digestive", "reasoning": "", "key_symptoms": ["nausea"]}`},
		{match: "generate the most relevant next question", reply: "When did it start?"},
		{match: "Turn count:", reply: `{"next_question": "Anything else about the pain?", "move_to_diagnosis": false, "reasoning": "need more"}`},
	}}
	engine, _ := newTestEngine(llm)
	ctx := context.Background()

	_, err := engine.Advance(ctx, "sess-1", "I have been nauseous and cramping since yesterday evening")
	require.NoError(t, err)

	// Four dynamic turns proceed normally.
	for i := 0; i < 4; i++ {
		turn, err := engine.Advance(ctx, "sess-1", fmt.Sprintf("some more detail %d", i))
		require.NoError(t, err)
		assert.Equal(t, StepDigestiveAssessment+ContinuedSuffix, turn.NextStep, "turn %d", i+1)
	}

	// The fifth is force-routed to diagnosis.
	turn, err := engine.Advance(ctx, "sess-1", "and even more detail")
	require.NoError(t, err)
	assert.Equal(t, StepDiagnosisPrep, turn.NextStep)
	assert.Equal(t, messageEnoughInformation, turn.NextQuestion)
}

func TestAdvanceDynamicMoveToDiagnosis(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: `{"urgency_level": "ROUTINE", "category": "infection", "reasoning": "", "key_symptoms": ["fever"]}`},
		{match: "generate the most relevant next question", reply: "How high is the fever?"},
		{match: "Turn count:", reply: `{"next_question": "", "move_to_diagnosis": true, "reasoning": "enough info"}`},
	}}
	engine, _ := newTestEngine(llm)
	ctx := context.Background()

	_, err := engine.Advance(ctx, "sess-1", "I have had a fever and chills for three days now")
	require.NoError(t, err)

	turn, err := engine.Advance(ctx, "sess-1", "It reached 39 degrees last night and today")
	require.NoError(t, err)
	assert.Equal(t, StepDiagnosisPrep, turn.NextStep)
	assert.Equal(t, messageMovingToDiagnosis, turn.NextQuestion)
}

func TestAdvanceForceDiagnosisSentinel(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "assess the medical urgency", reply: `{"urgency_level": "ROUTINE", "category": "general", "reasoning": "", "key_symptoms": []}`},
		{match: "generate the most relevant next question", reply: "Tell me more?"},
		{match: "preliminary analysis", reply: "## LIKELY CONDITION\nTension headache from stress.\n\n## ACTION STEPS\n- Rest in a dark room\n- Stay hydrated\n\n## NOTE\nSee a doctor if it persists beyond a week."},
	}}
	engine, _ := newTestEngine(llm)
	ctx := context.Background()

	_, err := engine.Advance(ctx, "sess-1", "I have a dull headache that will not go away")
	require.NoError(t, err)

	turn, err := engine.Advance(ctx, "sess-1", "get_diagnosis")
	require.NoError(t, err)
	assert.Equal(t, StepCriticality, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "Tension headache")
	assert.Contains(t, turn.NextQuestion, "Rest in a dark room")
}

func TestForceDiagnosisAsthmaOverride(t *testing.T) {
	engine, store := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "symptoms", "I have asthma and I lost my inhaler", nil))

	turn, err := engine.ForceDiagnosis(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, StepEmergencyServices, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "URGENT ASTHMA EMERGENCY")
}

func TestCriticalityClosesAndReports(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "Answer with ONLY", reply: "NO"},
		{match: "Provide a clear assessment of urgency", reply: "## URGENCY LEVEL\nURGENT\n\n## TIMEFRAME\nImmediately\n\n## PRECAUTIONS\n- Do not drive yourself\n\n## DISCLAIMER\nNot a substitute for professional care."},
	}}
	engine, store := newTestEngine(llm)
	ctx := context.Background()

	reporter := &captureReporter{reported: make(chan string, 1)}
	engine.SetReporter(reporter)

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "symptoms", "severe chest pain radiating to the left arm", nil))
	require.NoError(t, store.Update(ctx, "sess-1", "current_step", StepCriticality, nil))

	turn, err := engine.Advance(ctx, "sess-1", "continue")
	require.NoError(t, err)

	assert.Equal(t, StepEnd, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "URGENT")

	select {
	case id := <-reporter.reported:
		assert.Equal(t, "sess-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a case report to be sent")
	}

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, sess.Critical)
}

func TestCriticalityEscalatesOnYes(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "Answer with ONLY", reply: "YES"},
		{match: "emergency first aid steps", reply: "1. Call 911 now\n2. Chew an aspirin if not allergic\n3. Sit down and rest\n4. Unlock the front door for responders"},
	}}
	engine, store := newTestEngine(llm)
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "symptoms", "crushing chest pain and cold sweat", nil))
	require.NoError(t, store.Update(ctx, "sess-1", "current_step", StepCriticality, nil))

	turn, err := engine.Advance(ctx, "sess-1", "continue")
	require.NoError(t, err)

	assert.Equal(t, StepEmergencyServices, turn.NextStep)
	assert.Contains(t, turn.NextQuestion, "URGENT MEDICAL SITUATION")
	assert.Contains(t, turn.NextQuestion, "Chew an aspirin")
}

func TestSummaryWithoutDataReportsInsufficient(t *testing.T) {
	engine, store := newTestEngine(&fakeLLM{})
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)

	summary, err := engine.Summary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Contains(t, summary, "Insufficient information")
}

func TestSummaryAggregatesCase(t *testing.T) {
	llm := &fakeLLM{rules: []llmRule{
		{match: "professional medical case summary", reply: "Chief Complaint: persistent cough.\nHistory: two weeks of symptoms.\nAssessment: likely bronchitis."},
	}}
	engine, store := newTestEngine(llm)
	ctx := context.Background()

	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "sess-1", "symptoms", "persistent cough for two weeks", nil))

	summary, err := engine.Summary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Contains(t, summary, "## Medical Case Summary")
	assert.Contains(t, summary, "bronchitis")
}

type captureReporter struct {
	mu       sync.Mutex
	reported chan string
}

func (r *captureReporter) SendCaseReport(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported <- s.ID
	return nil
}
