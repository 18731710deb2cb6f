package session

import (
	"context"
	"sync"
)

// Store abstracts session persistence. Get has get-or-create semantics and
// never fails on an unknown id; the returned session's IsExisting flag tells
// callers whether the id had been seen before. Implementations must be safe
// for concurrent access on distinct ids; turns for the same id are
// serialized by the caller.
type Store interface {
	// Get loads the session for id, creating an empty one if absent.
	Get(ctx context.Context, id string) (*Session, error)

	// Update appends a log entry and fans the value out to the matching
	// denormalized field (see Session.Apply).
	Update(ctx context.Context, id, key, value string, details map[string]any) error

	// SaveContext persists the per-turn conversation context so the next
	// turn sees it: urgency level and the custom-context map (turn counts,
	// last response, category bookkeeping).
	SaveContext(ctx context.Context, id, urgencyLevel string, customContext map[string]any) error
}

// MemoryStore keeps sessions in a mutex-guarded map. It is the default
// backend for single-process deployments and for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id)
		m.sessions[id] = s
		return s.Clone(), nil
	}
	cp := s.Clone()
	cp.IsExisting = true
	return cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, id, key, value string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id)
		m.sessions[id] = s
	}
	s.Apply(key, value, details)
	return nil
}

func (m *MemoryStore) SaveContext(ctx context.Context, id, urgencyLevel string, customContext map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id)
		m.sessions[id] = s
	}
	s.UrgencyLevel = urgencyLevel
	s.CustomContext = make(map[string]any, len(customContext))
	for k, v := range customContext {
		s.CustomContext[k] = v
	}
	return nil
}
