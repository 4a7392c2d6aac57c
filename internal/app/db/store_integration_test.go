package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink/internal/app/donation"
	"donorlink/internal/app/user"
	"donorlink/internal/pkg/randx"
)

// Runs only against a disposable database: DONORLINK_TEST_DATABASE_URL=postgres://...
func newStoresForTests(t *testing.T) (*UserStore, *DonationStore) {
	t.Helper()
	dsn := os.Getenv("DONORLINK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DONORLINK_TEST_DATABASE_URL not set")
	}
	pool, err := NewPool(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewUserStore(pool), NewDonationStore(pool)
}

func TestUserStoreRoundTrip(t *testing.T) {
	users, _ := newStoresForTests(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	u := &user.User{
		ID: randx.ID(), Username: "it" + randx.ID()[:8], PasswordHash: "h", Firstname: "A", Lastname: "B",
		SecurityQuestion: "Q", SecurityAnswerHash: "R", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, &user.User{ID: randx.ID(), Username: u.Username, CreatedAt: now, UpdatedAt: now}), user.ErrUsernameTaken)

	got, err := users.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.ProfileImage)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "h2", 0))
	assert.ErrorIs(t, users.UpdatePassword(ctx, u.ID, "h3", 0), user.ErrStalePassword)

	_, err = users.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestDonationStoreConditionalUpdate(t *testing.T) {
	users, donations := newStoresForTests(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	donor := &user.User{ID: randx.ID(), Username: "it" + randx.ID()[:8], CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(ctx, donor))

	d := &donation.Donation{
		ID: randx.ID(), DonorID: donor.ID, Title: "Toys", Category: donation.CategoryToys, ItemCount: 2,
		Attributes: map[string]string{"age": "3+"}, Photos: []string{}, Status: donation.StatusListed,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, donations.Create(ctx, d))

	d.Status = donation.StatusScheduled
	d.Pickup = &donation.Pickup{Address: "1 Main St", WindowStart: now.Add(time.Hour), WindowEnd: now.Add(2 * time.Hour), Code: "abc123"}
	require.NoError(t, donations.Update(ctx, d, donation.StatusListed))
	assert.ErrorIs(t, donations.Update(ctx, d, donation.StatusListed), donation.ErrConflict)

	got, err := donations.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Pickup)
	assert.Equal(t, "abc123", got.Pickup.Code)
	assert.Equal(t, "3+", got.Attributes["age"])
}
