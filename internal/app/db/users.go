package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"donorlink/internal/app/user"
)

const userColumns = `id::text, username, password_hash, firstname, lastname, security_question,
	security_answer_hash, points, profile_image, password_version, created_at, updated_at`

// UserStore implements user.Repository on PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore wraps pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ user.Repository = (*UserStore)(nil)

// scanUser reads one users row.
func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Firstname, &u.Lastname, &u.SecurityQuestion,
		&u.SecurityAnswerHash, &u.Points, &u.ProfileImage, &u.PasswordVersion, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsInvalidText(err) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Create inserts u. A taken username maps to user.ErrUsernameTaken.
func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, firstname, lastname, security_question,
			security_answer_hash, points, profile_image, password_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Username, u.PasswordHash, u.Firstname, u.Lastname, u.SecurityQuestion,
		u.SecurityAnswerHash, u.Points, u.ProfileImage, u.PasswordVersion, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns the user with id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername looks a user up by exact username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// UpdatePassword sets hash and bumps password_version if it still equals expectedVersion.
func (s *UserStore) UpdatePassword(ctx context.Context, id, hash string, expectedVersion int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, password_version = password_version + 1, updated_at = now()
		WHERE id = $1 AND password_version = $3`,
		id, hash, expectedVersion,
	)
	if err != nil {
		if IsInvalidText(err) {
			return user.ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return user.ErrStalePassword
	}
	return nil
}

// UpdateProfileImage sets or clears the profile image and returns the updated user.
func (s *UserStore) UpdateProfileImage(ctx context.Context, id string, image *string) (*user.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET profile_image = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, image,
	))
}

// AddPoints adds delta to the user's points.
func (s *UserStore) AddPoints(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET points = points + $2, updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// TopByPoints returns up to limit users ordered by points, highest first.
func (s *UserStore) TopByPoints(ctx context.Context, limit int) ([]*user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY points DESC, username ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
