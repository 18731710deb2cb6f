package session

import (
	"strings"
	"time"
)

// Entry is one append-only record in a session's interaction log: a key/value
// pair plus optional structured facts extracted from the reply by the
// validator.
type Entry struct {
	Key       string         `json:"key"`
	Value     string         `json:"value"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is one conversant's accumulated intake data and interaction log.
// The scalar fields are denormalized, last-write-wins copies of the latest
// log entry for their key.
type Session struct {
	ID                 string         `json:"id"`
	History            []Entry        `json:"history"`
	IsExisting         bool           `json:"is_existing"`
	Critical           bool           `json:"critical"`
	Symptoms           []string       `json:"symptoms"`
	PreviousHistory    string         `json:"previous_history"`
	MedicationHistory  string         `json:"medication_history"`
	AdditionalSymptoms string         `json:"additional_symptoms"`
	Diagnosis          string         `json:"diagnosis"`
	UrgencyLevel       string         `json:"urgency_level,omitempty"`
	CustomContext      map[string]any `json:"custom_context,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// New returns an empty session for the given id.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		CustomContext: map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Negation phrases that mean "no additional symptoms"; anything else
// answered at the additional_symptoms step is itself treated as a symptom.
var negations = map[string]bool{
	"no":         true,
	"none":       true,
	"not really": true,
	"that's all": true,
}

// Apply appends a log entry and fans the value out to the matching
// denormalized field. Unknown keys (current_question, current_step,
// dynamic step names, ...) are logged only.
func (s *Session) Apply(key, value string, details map[string]any) {
	s.History = append(s.History, Entry{
		Key:       key,
		Value:     value,
		Details:   details,
		CreatedAt: time.Now(),
	})

	switch key {
	case "symptoms":
		s.Symptoms = append(s.Symptoms, value)
	case "previous_history":
		s.PreviousHistory = value
	case "medication_history":
		s.MedicationHistory = value
	case "additional_symptoms":
		s.AdditionalSymptoms = value
		if !negations[strings.ToLower(value)] {
			s.Symptoms = append(s.Symptoms, value)
		}
	case "diagnosis":
		s.Diagnosis = value
	case "critical":
		s.Critical = strings.EqualFold(value, "yes")
	}
	s.UpdatedAt = time.Now()
}

// LastValue returns the most recent logged value for key.
func (s *Session) LastValue(key string) (string, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Key == key {
			return s.History[i].Value, true
		}
	}
	return "", false
}

// LastDetails returns the most recent validation details in the log.
func (s *Session) LastDetails() map[string]any {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Details != nil {
			return s.History[i].Details
		}
	}
	return nil
}

// Keys whose values are patient free-text replies, usable when assembling a
// case narrative.
var replyKeys = map[string]bool{
	"symptoms":               true,
	"previous_history":       true,
	"medication_history":     true,
	"additional_symptoms":    true,
	"response":               true,
	"accident_info":          true,
	"urgent_follow_up":       true,
	"dynamic_symptoms":       true,
	"injury_assessment":      true,
	"infection_assessment":   true,
	"digestive_assessment":   true,
	"respiratory_assessment": true,
	"chronic_condition":      true,
}

// Narrative joins all prior free-text replies into one patient description,
// skipping trivially short values and forced-progression sentinels.
func (s *Session) Narrative() string {
	var inputs []string
	for _, e := range s.History {
		if !replyKeys[e.Key] {
			continue
		}
		if len(e.Value) <= 3 || strings.Contains(strings.ToLower(e.Value), "continue") {
			continue
		}
		inputs = append(inputs, e.Value)
	}
	return strings.Join(inputs, "\n")
}

// ContainsAll reports whether any single log value mentions every one of the
// given lowercase terms.
func (s *Session) ContainsAll(terms ...string) bool {
	for _, e := range s.History {
		v := strings.ToLower(e.Value)
		all := true
		for _, t := range terms {
			if !strings.Contains(v, t) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any log value mentions one of the given
// lowercase phrases.
func (s *Session) ContainsAny(phrases ...string) bool {
	for _, e := range s.History {
		v := strings.ToLower(e.Value)
		for _, p := range phrases {
			if strings.Contains(v, p) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate freely.
func (s *Session) Clone() *Session {
	cp := *s
	cp.History = append([]Entry(nil), s.History...)
	cp.Symptoms = append([]string(nil), s.Symptoms...)
	cp.CustomContext = make(map[string]any, len(s.CustomContext))
	for k, v := range s.CustomContext {
		cp.CustomContext[k] = v
	}
	return &cp
}
