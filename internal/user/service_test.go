package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users map[string]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*User{}}
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	r.users[u.Username] = u
	return nil
}

func (r *fakeRepo) ByUsername(_ context.Context, username string) (*User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) ByID(_ context.Context, id string) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Username:      "alice",
		Password:      "hunter2",
		Age:           34,
		Comorbidities: []string{"asthma"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "hunter2", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Password: "pw2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
