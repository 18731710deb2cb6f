package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, "test:session:", 0)
}

func TestRedisStoreGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	s, err := store.Get(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, s.IsExisting)

	s, err = store.Get(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, s.IsExisting)
}

func TestRedisStoreUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	details := map[string]any{"extracted_symptoms": []any{"fever"}}
	require.NoError(t, store.Update(ctx, "p", "symptoms", "fever and chills", details))
	require.NoError(t, store.Update(ctx, "p", "additional_symptoms", "none", nil))

	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	require.Len(t, s.History, 2)
	assert.Equal(t, "symptoms", s.History[0].Key)
	assert.Equal(t, "fever and chills", s.History[0].Value)
	assert.Equal(t, []any{"fever"}, s.History[0].Details["extracted_symptoms"])
	assert.Equal(t, []string{"fever and chills"}, s.Symptoms)
	assert.Equal(t, "none", s.AdditionalSymptoms)
}

func TestRedisStoreSaveContext(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	require.NoError(t, store.Update(ctx, "p", "symptoms", "rash on arm", nil))
	require.NoError(t, store.SaveContext(ctx, "p", "routine", map[string]any{
		"turn_count": 3,
		"category":   "infection",
	}))

	s, err := store.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "routine", s.UrgencyLevel)
	// JSON round trip turns numbers into float64.
	assert.EqualValues(t, 3, s.CustomContext["turn_count"])
	assert.Equal(t, "infection", s.CustomContext["category"])
	assert.Equal(t, []string{"rash on arm"}, s.Symptoms)
}
