package dialogue

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"medtriage/internal/auth"
)

type Handler struct {
	engine *Engine
	log    *zap.Logger
}

func NewHandler(engine *Engine, log *zap.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

type ChatRequest struct {
	Response string `json:"response"`
}

// HandleChat runs one conversation turn for the authenticated user.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	turn, err := h.engine.Advance(r.Context(), auth.UserID(r.Context()), req.Response)
	if err != nil {
		h.log.Error("chat turn failed", zap.Error(err))
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(turn)
}

// HandleForceDiagnosis jumps the conversation straight to a diagnosis.
func (h *Handler) HandleForceDiagnosis(w http.ResponseWriter, r *http.Request) {
	turn, err := h.engine.ForceDiagnosis(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.log.Error("force diagnosis failed", zap.Error(err))
		http.Error(w, "Failed to generate diagnosis", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(turn)
}

// HandleGenerateSummary returns the physician-facing case summary.
func (h *Handler) HandleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Summary(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.log.Error("summary generation failed", zap.Error(err))
		http.Error(w, "Failed to generate summary", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"summary": summary})
}

// HandleChatHistory returns the session's interaction log.
func (h *Handler) HandleChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.engine.History(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.log.Error("chat history load failed", zap.Error(err))
		http.Error(w, "Failed to load chat history", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"history": history})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat", h.HandleChat)
	r.Post("/force_diagnosis", h.HandleForceDiagnosis)
	r.Post("/generate_summary", h.HandleGenerateSummary)
	r.Get("/chat_history", h.HandleChatHistory)
}
