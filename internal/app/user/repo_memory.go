package user

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

// Create stores u, rejecting a taken username.
func (r *MemoryRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[u.Username]; ok {
		return ErrUsernameTaken
	}
	cp := clone(u)
	r.byID[u.ID] = cp
	r.byUsername[u.Username] = u.ID
	return nil
}

// GetByID returns a copy of the user with id.
func (r *MemoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

// GetByUsername looks a user up by exact username.
func (r *MemoryRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

// UpdatePassword sets hash and bumps the password version if it still equals expectedVersion.
func (r *MemoryRepo) UpdatePassword(_ context.Context, id, hash string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if u.PasswordVersion != expectedVersion {
		return ErrStalePassword
	}
	u.PasswordHash = hash
	u.PasswordVersion++
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProfileImage sets or clears the profile image and returns the updated user.
func (r *MemoryRepo) UpdateProfileImage(_ context.Context, id string, image *string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if image == nil {
		u.ProfileImage = nil
	} else {
		img := *image
		u.ProfileImage = &img
	}
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

// AddPoints adds delta to the user's points.
func (r *MemoryRepo) AddPoints(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Points += delta
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// TopByPoints returns up to limit users ordered by points, highest first.
func (r *MemoryRepo) TopByPoints(_ context.Context, limit int) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// clone returns a deep copy of u.
func clone(u *User) *User {
	cp := *u
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		cp.ProfileImage = &img
	}
	return &cp
}
