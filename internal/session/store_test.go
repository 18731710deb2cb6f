package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := store.Get(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, s.IsExisting)
	assert.NotNil(t, s.CustomContext)

	s, err = store.Get(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, s.IsExisting)
}

func TestUpdateFansOutKnownKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Update(ctx, "p", "symptoms", "headache and fever", nil))
	require.NoError(t, store.Update(ctx, "p", "previous_history", "diagnosed with flu", nil))
	require.NoError(t, store.Update(ctx, "p", "medication_history", "paracetamol", nil))
	require.NoError(t, store.Update(ctx, "p", "diagnosis", "likely viral infection", nil))
	require.NoError(t, store.Update(ctx, "p", "critical", "yes", nil))

	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"headache and fever"}, s.Symptoms)
	assert.Equal(t, "diagnosed with flu", s.PreviousHistory)
	assert.Equal(t, "paracetamol", s.MedicationHistory)
	assert.Equal(t, "likely viral infection", s.Diagnosis)
	assert.True(t, s.Critical)
	assert.Len(t, s.History, 5)
}

func TestAdditionalSymptomsNegationRule(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Update(ctx, "p", "additional_symptoms", "no", nil))
	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, s.Symptoms, "negation phrases must not become symptoms")

	require.NoError(t, store.Update(ctx, "p", "additional_symptoms", "yes, also nausea", nil))
	s, err = store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"yes, also nausea"}, s.Symptoms)
	assert.Equal(t, "yes, also nausea", s.AdditionalSymptoms)
}

func TestUnknownKeysOnlyLogged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Update(ctx, "p", "current_question", "How can I help?", nil))
	require.NoError(t, store.Update(ctx, "p", "current_step", "initial_assessment", nil))

	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, s.Symptoms)
	assert.Len(t, s.History, 2)

	step, ok := s.LastValue("current_step")
	require.True(t, ok)
	assert.Equal(t, "initial_assessment", step)
}

func TestSaveContextPersistsTurnState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SaveContext(ctx, "p", "urgent", map[string]any{"turn_count": 2}))

	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "urgent", s.UrgencyLevel)
	assert.Equal(t, 2, s.CustomContext["turn_count"])
}

func TestNarrativeSkipsSentinelsAndShortValues(t *testing.T) {
	s := New("p")
	s.Apply("symptoms", "severe stomach pain", nil)
	s.Apply("current_question", "Anything else?", nil)
	s.Apply("additional_symptoms", "no", nil)
	s.Apply("previous_history", "continue", nil)
	s.Apply("medication_history", "took ibuprofen yesterday", nil)

	narrative := s.Narrative()
	assert.Contains(t, narrative, "severe stomach pain")
	assert.Contains(t, narrative, "took ibuprofen yesterday")
	assert.NotContains(t, narrative, "continue")
	assert.NotContains(t, narrative, "Anything else?")
}

func TestContainsHelpers(t *testing.T) {
	s := New("p")
	s.Apply("symptoms", "I have asthma and I lost my inhaler", nil)

	assert.True(t, s.ContainsAll("lost", "inhaler"))
	assert.False(t, s.ContainsAll("lost", "epipen"))
	assert.True(t, s.ContainsAny("can't breathe", "asthma"))
	assert.False(t, s.ContainsAny("chest pain"))
}
