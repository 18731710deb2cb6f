package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists sessions in Redis: denormalized fields as one JSON
// value per session, the interaction log as an RPUSH list. Suitable for
// multi-node deployments where turns for a session may land on any node.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds connection settings for the Redis session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix defaults to "medtriage:session:".
	Prefix string
	// SessionTTL of zero means sessions never expire.
	SessionTTL time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests with
// miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "medtriage:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) metaKey(id string) string    { return r.prefix + "meta:" + id }
func (r *RedisStore) historyKey(id string) string { return r.prefix + "history:" + id }

// sessionMeta is the persisted form of a session minus its log.
type sessionMeta struct {
	ID                 string         `json:"id"`
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

func (r *RedisStore) load(ctx context.Context, id string) (*Session, bool, error) {
	data, err := r.client.Get(ctx, r.metaKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(id), false, nil
		}
		return nil, false, fmt.Errorf("get session meta: %w", err)
	}
	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("unmarshal session meta: %w", err)
	}

	raw, err := r.client.LRange(ctx, r.historyKey(id), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("load session history: %w", err)
	}
	history := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, false, fmt.Errorf("unmarshal history entry: %w", err)
		}
		history = append(history, e)
	}

	s := &Session{
		ID:                 meta.ID,
		History:            history,
		Critical:           meta.Critical,
		Symptoms:           meta.Symptoms,
		PreviousHistory:    meta.PreviousHistory,
		MedicationHistory:  meta.MedicationHistory,
		AdditionalSymptoms: meta.AdditionalSymptoms,
		Diagnosis:          meta.Diagnosis,
		UrgencyLevel:       meta.UrgencyLevel,
		CustomContext:      meta.CustomContext,
		CreatedAt:          meta.CreatedAt,
		UpdatedAt:          meta.UpdatedAt,
	}
	if s.CustomContext == nil {
		s.CustomContext = map[string]any{}
	}
	return s, true, nil
}

func (r *RedisStore) saveMeta(ctx context.Context, s *Session) error {
	meta := sessionMeta{
		ID:                 s.ID,
		Critical:           s.Critical,
		Symptoms:           s.Symptoms,
		PreviousHistory:    s.PreviousHistory,
		MedicationHistory:  s.MedicationHistory,
		AdditionalSymptoms: s.AdditionalSymptoms,
		Diagnosis:          s.Diagnosis,
		UrgencyLevel:       s.UrgencyLevel,
		CustomContext:      s.CustomContext,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}
	if err := r.client.Set(ctx, r.metaKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session meta: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	s, existed, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existed {
		// Register the session so the next turn sees a returning patient.
		if err := r.saveMeta(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.IsExisting = true
	return s, nil
}

func (r *RedisStore) Update(ctx context.Context, id, key, value string, details map[string]any) error {
	s, _, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	s.Apply(key, value, details)

	entry := s.History[len(s.History)-1]
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.RPush(ctx, r.historyKey(id), data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.historyKey(id), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return r.saveMeta(ctx, s)
}

func (r *RedisStore) SaveContext(ctx context.Context, id, urgencyLevel string, customContext map[string]any) error {
	s, _, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	s.UrgencyLevel = urgencyLevel
	s.CustomContext = customContext
	s.UpdatedAt = time.Now()
	return r.saveMeta(ctx, s)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
