package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoUsernameUnique(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	require.NoError(t, r.Create(ctx, &User{ID: "1", Username: "alice"}))
	assert.ErrorIs(t, r.Create(ctx, &User{ID: "2", Username: "alice"}), ErrUsernameTaken)

	_, err := r.GetByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoPasswordVersion(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	require.NoError(t, r.Create(ctx, &User{ID: "1", Username: "alice", PasswordHash: "old"}))

	require.NoError(t, r.UpdatePassword(ctx, "1", "new", 0))
	assert.ErrorIs(t, r.UpdatePassword(ctx, "1", "newer", 0), ErrStalePassword)

	u, err := r.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "new", u.PasswordHash)
	assert.Equal(t, 1, u.PasswordVersion)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	img := "avatars/a.png"
	require.NoError(t, r.Create(ctx, &User{ID: "1", Username: "alice", ProfileImage: &img}))

	u, _ := r.GetByID(ctx, "1")
	*u.ProfileImage = "mutated"
	u.Points = 99

	again, _ := r.GetByID(ctx, "1")
	assert.Equal(t, "avatars/a.png", *again.ProfileImage)
	assert.Equal(t, 0, again.Points)
}

func TestMemoryRepoTopByPoints(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	for _, u := range []*User{{ID: "1", Username: "cara"}, {ID: "2", Username: "bob"}, {ID: "3", Username: "abe"}} {
		require.NoError(t, r.Create(ctx, u))
	}
	require.NoError(t, r.AddPoints(ctx, "1", 30))
	require.NoError(t, r.AddPoints(ctx, "2", 10))
	require.NoError(t, r.AddPoints(ctx, "3", 10))

	top, err := r.TopByPoints(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "cara", top[0].Username)
	assert.Equal(t, "abe", top[1].Username)
}

func TestProfileExpandsImage(t *testing.T) {
	img := "avatars/a.png"
	u := &User{ID: "1", Username: "alice", ProfileImage: &img}
	p := u.Profile(func(k string) string { return "https://cdn.test/" + k })
	require.NotNil(t, p.ProfileImage)
	assert.Equal(t, "https://cdn.test/avatars/a.png", *p.ProfileImage)

	u.ProfileImage = nil
	assert.Nil(t, u.Profile(nil).ProfileImage)
}
