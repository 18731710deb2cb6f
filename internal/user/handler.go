package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"medtriage/internal/auth"
)

type Handler struct {
	svc    *Service
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewHandler(svc *Service, tokens *auth.TokenManager, log *zap.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if in.Username == "" || in.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	u, err := h.svc.Register(r.Context(), in)
	if errors.Is(err, ErrUsernameTaken) {
		http.Error(w, "Username already registered", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("registration failed", zap.Error(err))
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.log.Error("token issue failed", zap.Error(err))
		http.Error(w, "Failed to register", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"user":         u,
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.issueToken(w, r, req.Username, req.Password)
}

// HandleToken is the form-encoded variant kept for OAuth2 password-flow
// clients.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.issueToken(w, r, r.PostFormValue("username"), r.PostFormValue("password"))
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, username, password string) {
	u, err := h.svc.Authenticate(r.Context(), username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, "Incorrect username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Error("login failed", zap.Error(err))
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.log.Error("token issue failed", zap.Error(err))
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.ByID(r.Context(), auth.UserID(r.Context()))
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("profile load failed", zap.Error(err))
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(u)
}

// RegisterPublicRoutes mounts the endpoints that do not require a token.
func RegisterPublicRoutes(r chi.Router, h *Handler) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/token", h.HandleToken)
}

// RegisterProtectedRoutes mounts the endpoints behind the auth middleware.
func RegisterProtectedRoutes(r chi.Router, h *Handler) {
	r.Get("/users/me", h.HandleMe)
}
