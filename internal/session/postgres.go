package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists sessions in a single table with JSONB columns for
// the interaction log and custom context, mirroring how long-lived chat
// transcripts are archived in production.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) load(ctx context.Context, id string) (*Session, bool, error) {
	const query = `
		SELECT id, history, critical, symptoms, previous_history,
		       medication_history, additional_symptoms, diagnosis,
		       urgency_level, custom_context, created_at, updated_at
		FROM sessions WHERE id = $1`

	var (
		s           Session
		historyJSON []byte
		contextJSON []byte
	)
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&historyJSON,
		&s.Critical,
		pq.Array(&s.Symptoms),
		&s.PreviousHistory,
		&s.MedicationHistory,
		&s.AdditionalSymptoms,
		&s.Diagnosis,
		&s.UrgencyLevel,
		&contextJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return New(id), false, nil
		}
		return nil, false, fmt.Errorf("load session: %w", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &s.History); err != nil {
			return nil, false, fmt.Errorf("unmarshal session history: %w", err)
		}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &s.CustomContext); err != nil {
			return nil, false, fmt.Errorf("unmarshal custom context: %w", err)
		}
	}
	if s.CustomContext == nil {
		s.CustomContext = map[string]any{}
	}
	return &s, true, nil
}

func (p *PostgresStore) save(ctx context.Context, s *Session) error {
	historyJSON, err := json.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("marshal session history: %w", err)
	}
	contextJSON, err := json.Marshal(s.CustomContext)
	if err != nil {
		return fmt.Errorf("marshal custom context: %w", err)
	}

	const query = `
		INSERT INTO sessions (id, history, critical, symptoms, previous_history,
		                      medication_history, additional_symptoms, diagnosis,
		                      urgency_level, custom_context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			history = $2,
			critical = $3,
			symptoms = $4,
			previous_history = $5,
			medication_history = $6,
			additional_symptoms = $7,
			diagnosis = $8,
			urgency_level = $9,
			custom_context = $10,
			updated_at = $12`

	_, err = p.db.ExecContext(ctx, query,
		s.ID, historyJSON, s.Critical, pq.Array(s.Symptoms),
		s.PreviousHistory, s.MedicationHistory, s.AdditionalSymptoms,
		s.Diagnosis, s.UrgencyLevel, contextJSON, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	s, existed, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existed {
		if err := p.save(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.IsExisting = true
	return s, nil
}

func (p *PostgresStore) Update(ctx context.Context, id, key, value string, details map[string]any) error {
	s, _, err := p.load(ctx, id)
	if err != nil {
		return err
	}
	s.Apply(key, value, details)
	return p.save(ctx, s)
}

func (p *PostgresStore) SaveContext(ctx context.Context, id, urgencyLevel string, customContext map[string]any) error {
	s, _, err := p.load(ctx, id)
	if err != nil {
		return err
	}
	s.UrgencyLevel = urgencyLevel
	s.CustomContext = customContext
	s.UpdatedAt = time.Now()
	return p.save(ctx, s)
}
