package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrNotFound = errors.New("user not found")

// Repository persists user accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	ByUsername(ctx context.Context, username string) (*User, error)
	ByID(ctx context.Context, id string) (*User, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, gender, age, comorbidities, medications, allergies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.PasswordHash, u.Gender, u.Age,
		pq.Array(u.Comorbidities), pq.Array(u.Medications), pq.Array(u.Allergies),
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ByUsername(ctx context.Context, username string) (*User, error) {
	return r.queryOne(ctx, `
		SELECT id, username, password_hash, gender, age, comorbidities, medications, allergies, created_at
		FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) ByID(ctx context.Context, id string) (*User, error) {
	return r.queryOne(ctx, `
		SELECT id, username, password_hash, gender, age, comorbidities, medications, allergies, created_at
		FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Gender, &u.Age,
		pq.Array(&u.Comorbidities), pq.Array(&u.Medications), pq.Array(&u.Allergies),
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
