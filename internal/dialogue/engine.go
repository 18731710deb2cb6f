package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"medtriage/internal/session"
)

// Turn is what the engine hands back to the transport after each exchange.
type Turn struct {
	NextQuestion string `json:"next_question"`
	NextStep     string `json:"next_step"`
}

// Reporter forwards a closed critical case to a physician channel.
type Reporter interface {
	SendCaseReport(ctx context.Context, s *session.Session) error
}

// Engine orchestrates the dialogue: one Advance call consumes one patient
// reply, validates it, routes it to the right step handler, and persists the
// turn. Turns for the same session are serialized.
type Engine struct {
	store     session.Store
	validator *Validator
	handlers  *Handlers
	reporter  Reporter
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store session.Store, validator *Validator, handlers *Handlers, log *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		validator: validator,
		handlers:  handlers,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SetReporter enables physician notification for critical cases.
func (e *Engine) SetReporter(r Reporter) { e.reporter = r }

func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mu, ok := e.locks[id]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	e.locks[id] = mu
	return mu
}

// forceDiagnosisSentinels are replies that jump straight to diagnosis.
var forceDiagnosisSentinels = map[string]bool{
	"get_diagnosis":     true,
	"provide diagnosis": true,
	"diagnose":          true,
}

// Advance runs one conversation turn and returns the next prompt and step.
func (e *Engine) Advance(ctx context.Context, sessionID, reply string) (Turn, error) {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Turn{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	reply = strings.TrimSpace(reply)

	if reply == "" {
		st := newState(sess, "")
		e.handlers.start(ctx, st)
		e.finishTurn(ctx, sessionID, st)
		return Turn{NextQuestion: st.CurrentQuestion, NextStep: st.CurrentStep}, nil
	}

	if forceDiagnosisSentinels[strings.ToLower(reply)] {
		st := newState(sess, "proceed to diagnosis")
		e.handlers.diagnosisPrep(ctx, st)
		e.finishTurn(ctx, sessionID, st)
		return Turn{NextQuestion: st.CurrentQuestion, NextStep: st.CurrentStep}, nil
	}

	st := newState(sess, reply)

	if !sess.IsExisting {
		// First contact: the reply is the opening symptom description.
		e.handlers.update(ctx, sessionID, "symptoms", reply, nil)
		st.CurrentStep = StepInitialAssessment
		e.dispatch(ctx, StepInitialAssessment, st)
		e.finishTurn(ctx, sessionID, st)
		return Turn{NextQuestion: st.CurrentQuestion, NextStep: st.CurrentStep}, nil
	}

	currentStep, ok := sess.LastValue("current_step")
	if !ok || currentStep == "" {
		currentStep = StepStart
	}
	st.CurrentStep = currentStep

	switch reply {
	case "continue":
		// Forced progression skips validation.
	case "continue_anyway":
		// The patient insists their last rejected reply stands.
		if last, ok := lastReplyValue(sess); ok {
			st.Reply = last
		}
	default:
		prevQuestion, ok := sess.LastValue("current_question")
		if !ok {
			prevQuestion = "How can I help you?"
		}
		res := e.validator.Validate(ctx, prevQuestion, reply, expectedTypeFor(currentStep))
		if !res.IsValid {
			if partial, _ := res.Details["partial_answer"].(bool); partial {
				e.handlers.update(ctx, sessionID, "partial_"+currentStep, reply, res.Details)
			} else {
				e.handlers.update(ctx, sessionID, "rejected_attempt", reply, res.Details)
			}
			return Turn{NextQuestion: res.Feedback, NextStep: currentStep}, nil
		}
		st.Reply = res.ProcessedResponse
		e.handlers.update(ctx, sessionID, "validation", "valid", res.Details)
	}

	next := Route(currentStep, st.CustomPath)
	e.dispatch(ctx, next, st)
	e.finishTurn(ctx, sessionID, st)
	return Turn{NextQuestion: st.CurrentQuestion, NextStep: st.CurrentStep}, nil
}

// ForceDiagnosis jumps the session to a diagnosis, with a fixed emergency
// override when the log shows an unresolved asthma crisis.
func (e *Engine) ForceDiagnosis(ctx context.Context, sessionID string) (Turn, error) {
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Turn{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	hasAsthma := sess.ContainsAny("asthma")
	inCrisis := sess.ContainsAll("lost", "inhaler") ||
		sess.ContainsAny("can't breathe", "cant breathe", "difficulty breathing")
	if hasAsthma && inCrisis {
		question := renderAsthmaEmergency()
		e.handlers.update(ctx, sessionID, "current_question", question, nil)
		e.handlers.update(ctx, sessionID, "current_step", StepEmergencyServices, nil)
		return Turn{NextQuestion: question, NextStep: StepEmergencyServices}, nil
	}

	st := newState(sess, "proceed to diagnosis")
	e.handlers.diagnosisPrep(ctx, st)
	e.finishTurn(ctx, sessionID, st)
	return Turn{NextQuestion: st.CurrentQuestion, NextStep: st.CurrentStep}, nil
}

// Summary produces the physician-facing case summary without advancing the
// conversation.
func (e *Engine) Summary(ctx context.Context, sessionID string) (string, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return e.handlers.caseSummary(ctx, sess), nil
}

// History returns the session's interaction log.
func (e *Engine) History(ctx context.Context, sessionID string) ([]session.Entry, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess.History, nil
}

// dispatch executes the handler for a resolved step. The set is closed;
// anything unknown restarts triage rather than failing the turn.
func (e *Engine) dispatch(ctx context.Context, step string, st *State) {
	h := e.handlers
	switch step {
	case StepStart:
		h.start(ctx, st)
	case StepInitialAssessment:
		h.initialAssessment(ctx, st)
	case StepCollectSymptoms, StepSymptoms:
		h.collectSymptoms(ctx, st)
	case StepPreviousHistory:
		h.previousHistory(ctx, st)
	case StepMedicationHistory:
		h.medicationHistory(ctx, st)
	case StepAdditionalSymptoms:
		h.additionalSymptoms(ctx, st)
	case StepDynamicSymptoms, StepInjuryAssessment, StepInfectionAssessment,
		StepDigestiveAssessment, StepRespiratoryAssessment, StepChronicCondition:
		h.dynamicFollowUp(ctx, st)
	case StepDiagnosisPrep:
		h.diagnosisPrep(ctx, st)
	case StepDiagnosis:
		h.generateDiagnosis(ctx, st)
	case StepCriticality:
		h.criticality(ctx, st)
	case StepUrgentFollowUp, StepEmergencyServices:
		h.urgentFollowUp(ctx, st)
	case StepEnd:
		// A reply after a closed consultation starts triage on the new concern.
		h.initialAssessment(ctx, st)
	default:
		e.log.Warn("unknown step, restarting triage", zap.String("step", step))
		h.initialAssessment(ctx, st)
	}
}

// finishTurn persists the turn outcome and fires the physician report when a
// critical consultation just closed.
func (e *Engine) finishTurn(ctx context.Context, sessionID string, st *State) {
	e.handlers.update(ctx, sessionID, "current_question", st.CurrentQuestion, nil)
	e.handlers.update(ctx, sessionID, "current_step", st.CurrentStep, nil)
	if err := e.store.SaveContext(ctx, sessionID, st.UrgencyLevel, st.CustomContext); err != nil {
		e.log.Error("session context save failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	if st.CurrentStep == StepEnd && st.Critical && e.reporter != nil {
		go e.sendReport(sessionID)
	}
}

// sendReport runs detached from the request so a slow physician channel
// never delays the patient's reply.
func (e *Engine) sendReport(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		e.log.Error("case report session load failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if err := e.reporter.SendCaseReport(ctx, sess); err != nil {
		e.log.Error("case report delivery failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	e.log.Info("critical case report sent", zap.String("session_id", sessionID))
}

// lastReplyValue finds the most recent free-text patient reply in the log.
func lastReplyValue(sess *session.Session) (string, bool) {
	for i := len(sess.History) - 1; i >= 0; i-- {
		if replyEntry(sess.History[i].Key) {
			return sess.History[i].Value, true
		}
	}
	return "", false
}

func replyEntry(key string) bool {
	switch key {
	case "current_question", "current_step", "validation", "urgency_assessment",
		"intermediate_message", "diagnosis", "critical":
		return false
	}
	return !strings.HasPrefix(key, "partial_")
}
