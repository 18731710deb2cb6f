package dialogue

import (
	"fmt"
	"strings"
)

// templates.go renders the fixed presentation blocks the chat frontend
// expects. The urgent and diagnosis cards are part of the wire contract, so
// their structure never varies even when the content is model-generated.

const urgentFooter = "If this is life-threatening, stop using this app and call emergency services (911) immediately."

// defaultEmergencySteps backstop the four-step template when the delegated
// first aid advice cannot be parsed.
var defaultEmergencySteps = []string{
	"Call emergency services (911) immediately",
	"Sit upright and try to stay calm",
	"Remove any restrictive clothing",
	"Breathe slowly through pursed lips",
}

// accidentEmergencySteps is the fixed guidance for the accident hard
// override.
var accidentEmergencySteps = []string{
	"Call 911 immediately",
	"Stay calm and seated",
	"Take aspirin if available",
	"Loosen tight clothing",
}

// defaultActionSteps backstop the diagnosis card when section parsing fails.
var defaultActionSteps = []string{
	"Rest and stay hydrated",
	"Monitor your symptoms",
	"Consult with a healthcare professional",
}

const defaultDiagnosisNote = "Consult a doctor if symptoms worsen or persist."

// renderUrgentSteps renders the four-step emergency template.
func renderUrgentSteps(header string, steps []string) string {
	// Always exactly four steps.
	padded := append([]string(nil), steps...)
	for len(padded) < 4 {
		padded = append(padded, defaultEmergencySteps[len(padded)])
	}
	var b strings.Builder
	b.WriteString(`<div class="urgent-message">` + "\n")
	fmt.Fprintf(&b, `<div class="urgent-header">⚠️ %s ⚠️</div>`+"\n", header)
	b.WriteString(`<div class="urgent-content">` + "\n")
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "  <p><strong>%d.</strong> %s</p>\n", i+1, padded[i])
	}
	b.WriteString("</div>\n")
	fmt.Fprintf(&b, `<div class="urgent-footer">%s</div>`+"\n", urgentFooter)
	b.WriteString("</div>")
	return b.String()
}

// renderUrgentAdvice renders the urgent template around free-form advice
// text that could not be split into discrete steps.
func renderUrgentAdvice(header, advice string) string {
	var b strings.Builder
	b.WriteString(`<div class="urgent-message">` + "\n")
	fmt.Fprintf(&b, `<div class="urgent-header">⚠️ %s ⚠️</div>`+"\n", header)
	fmt.Fprintf(&b, `<div class="urgent-content">`+"\n  %s\n</div>\n", advice)
	fmt.Fprintf(&b, `<div class="urgent-footer">%s</div>`+"\n", urgentFooter)
	b.WriteString("</div>")
	return b.String()
}

// renderAsthmaEmergency is the fixed override returned by force-diagnosis
// when an unresolved asthma emergency is detected in the log.
func renderAsthmaEmergency() string {
	var b strings.Builder
	b.WriteString(`<div class="urgent-message">` + "\n")
	b.WriteString(`<div class="urgent-header">⚠️ URGENT ASTHMA EMERGENCY ⚠️</div>` + "\n")
	b.WriteString(`<div class="urgent-content">` + "\n")
	steps := []string{
		"Call emergency services (911) immediately",
		"Sit upright in a comfortable position",
		"Try to remain calm and take slow breaths",
		"Remove tight clothing and stay in fresh air",
	}
	for i, s := range steps {
		fmt.Fprintf(&b, "  <p><strong>%d.</strong> %s</p>\n", i+1, s)
	}
	b.WriteString("</div>\n")
	b.WriteString(`<div class="urgent-footer">Without an inhaler, an asthma attack can be life-threatening. Seek emergency help immediately.</div>` + "\n")
	b.WriteString("</div>")
	return b.String()
}

// renderDiagnosisCard renders the three-section diagnosis presentation.
func renderDiagnosisCard(condition string, actionSteps []string, note string) string {
	var b strings.Builder
	b.WriteString(`<div class="diagnosis-card">` + "\n")
	b.WriteString(`  <div class="diagnosis-header">LIKELY CONDITION</div>` + "\n")
	fmt.Fprintf(&b, `  <div class="diagnosis-content">%s</div>`+"\n\n", condition)
	b.WriteString(`  <div class="diagnosis-header">ACTION STEPS</div>` + "\n")
	b.WriteString(`  <ul class="diagnosis-list">` + "\n")
	for _, step := range actionSteps {
		fmt.Fprintf(&b, "    <li>%s</li>\n", step)
	}
	b.WriteString("  </ul>\n\n")
	b.WriteString(`  <div class="diagnosis-header">NOTE</div>` + "\n")
	fmt.Fprintf(&b, `  <div class="diagnosis-note">%s</div>`+"\n", note)
	b.WriteString("</div>")
	return b.String()
}

// parseDiagnosisSections defensively extracts the three headed sections from
// delegated diagnosis text, substituting canned defaults for anything that
// cannot be recovered.
func parseDiagnosisSections(text string) (condition string, actionSteps []string, note string) {
	note = defaultDiagnosisNote

	if strings.Contains(text, "LIKELY CONDITION") {
		for _, part := range strings.Split(text, "##") {
			switch {
			case strings.Contains(part, "LIKELY CONDITION"):
				condition = strings.TrimSpace(strings.ReplaceAll(part, "LIKELY CONDITION", ""))
			case strings.Contains(part, "ACTION STEPS"):
				actionsText := strings.TrimSpace(strings.ReplaceAll(part, "ACTION STEPS", ""))
				actionSteps = parseBullets(actionsText)
			case strings.Contains(part, "NOTE"):
				note = strings.TrimSpace(strings.ReplaceAll(part, "NOTE", ""))
			}
		}
	}

	if condition == "" {
		condition = "Unable to determine specific condition from symptoms provided"
	}
	if len(actionSteps) == 0 {
		actionSteps = defaultActionSteps
	}
	if note == "" {
		note = defaultDiagnosisNote
	}
	return condition, actionSteps, note
}

// parseBullets pulls bullet items out of a section body, falling back to
// bare non-empty lines.
func parseBullets(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			step := strings.TrimSpace(strings.TrimLeft(line, "•-* "))
			if step != "" {
				steps = append(steps, step)
			}
		}
	}
	if len(steps) == 0 {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "##") {
				steps = append(steps, line)
			}
		}
	}
	return steps
}
