package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// Service implements registration and credential checks.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput carries the signup payload.
type RegisterInput struct {
	Username      string   `json:"username"`
	Password      string   `json:"password"`
	Gender        string   `json:"gender"`
	Age           int      `json:"age"`
	Comorbidities []string `json:"comorbidities"`
	Medications   []string `json:"medications"`
	Allergies     []string `json:"allergies"`
}

// Register creates a new account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if _, err := s.repo.ByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:            newUserID(),
		Username:      in.Username,
		PasswordHash:  string(hash),
		Gender:        in.Gender,
		Age:           in.Age,
		Comorbidities: in.Comorbidities,
		Medications:   in.Medications,
		Allergies:     in.Allergies,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.ByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ByID loads a user profile.
func (s *Service) ByID(ctx context.Context, id string) (*User, error) {
	return s.repo.ByID(ctx, id)
}

func newUserID() string {
	return "user-" + uuid.New().String()
}
