package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderUrgentStepsPadsToFour(t *testing.T) {
	out := renderUrgentSteps("URGENT MEDICAL SITUATION", []string{"Call 911 now"})

	assert.Contains(t, out, "⚠️ URGENT MEDICAL SITUATION ⚠️")
	assert.Contains(t, out, "<strong>1.</strong> Call 911 now")
	// Padded from the defaults up to exactly four steps.
	assert.Contains(t, out, "<strong>4.</strong>")
	assert.NotContains(t, out, "<strong>5.</strong>")
	assert.Contains(t, out, urgentFooter)
}

func TestRenderUrgentStepsTruncatesExtras(t *testing.T) {
	out := renderUrgentSteps("URGENT MEDICAL SITUATION",
		[]string{"one", "two", "three", "four", "five", "six"})

	assert.Contains(t, out, "<strong>4.</strong> four")
	assert.NotContains(t, out, "five")
}

func TestParseDiagnosisSections(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		text := "## LIKELY CONDITION\nViral gastroenteritis.\n\n## ACTION STEPS\n- Sip clear fluids\n- Rest\n\n## NOTE\nSee a doctor if vomiting lasts over 48 hours."

		condition, steps, note := parseDiagnosisSections(text)
		assert.Equal(t, "Viral gastroenteritis.", condition)
		assert.Equal(t, []string{"Sip clear fluids", "Rest"}, steps)
		assert.Contains(t, note, "48 hours")
	})

	t.Run("missing headings fall back to defaults", func(t *testing.T) {
		condition, steps, note := parseDiagnosisSections("The model rambled without any structure at all.")

		assert.Contains(t, condition, "Unable to determine")
		assert.Equal(t, defaultActionSteps, steps)
		assert.Equal(t, defaultDiagnosisNote, note)
	})
}
