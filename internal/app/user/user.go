/*
Package user holds the account document and the repository contract the
handlers use to read and write it.
*/
package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when a username already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrStalePassword is returned when a password update lost a race with another update.
	ErrStalePassword = errors.New("password version changed")
)

// User is the stored account document.
type User struct {
	ID                 string
	Username           string
	PasswordHash       string
	Firstname          string
	Lastname           string
	SecurityQuestion   string
	SecurityAnswerHash string
	Points             int
	// ProfileImage is an upload key or an absolute URL; nil when unset.
	ProfileImage    *string
	PasswordVersion int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile is the public snapshot sent to clients.
type Profile struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Firstname    string  `json:"firstname"`
	Lastname     string  `json:"lastname"`
	Points       int     `json:"points"`
	ProfileImage *string `json:"profileImage"`
}

// Profile returns the client-facing snapshot of u. assetURL expands stored
// upload keys into fetchable URLs; it may be nil.
func (u *User) Profile(assetURL func(string) string) Profile {
	p := Profile{
		ID:        u.ID,
		Username:  u.Username,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Points:    u.Points,
	}
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		if assetURL != nil {
			img = assetURL(img)
		}
		p.ProfileImage = &img
	}
	return p
}

// LeaderboardEntry is one ranked donor.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	Points       int     `json:"points"`
	ProfileImage *string `json:"profileImage"`
}

// Repository persists users.
type Repository interface {
	// Create inserts u, returning ErrUsernameTaken on conflict. ID and timestamps are set by the caller.
	Create(ctx context.Context, u *User) error

	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername matches the username exactly.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePassword replaces the hash only if the stored version equals expectedVersion,
	// and bumps the version. Returns ErrStalePassword otherwise.
	UpdatePassword(ctx context.Context, id, hash string, expectedVersion int) error

	// UpdateProfileImage sets or clears the profile image and returns the updated user.
	UpdateProfileImage(ctx context.Context, id string, image *string) (*User, error)

	// AddPoints increments the user's points.
	AddPoints(ctx context.Context, id string, delta int) error

	// TopByPoints returns up to limit users ordered by points, then username.
	TopByPoints(ctx context.Context, limit int) ([]*User, error)
}
