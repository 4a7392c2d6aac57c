package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink/internal/client/account"
	"donorlink/internal/client/clienterr"
	"donorlink/internal/pkg/logx"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlStore, err := Open(context.Background(), ":memory:", logx.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]Store{
		"sqlite": sqlStore,
		"memory": NewMemoryStore(),
	}
}

func sampleCreds(n int) Credentials {
	img := "https://cdn.test/p.png"
	return Credentials{
		Token: fmt.Sprintf("token-%d", n),
		User: &account.User{
			ID:           fmt.Sprintf("user-%d", n),
			Username:     "newuser1",
			Firstname:    "A",
			Lastname:     "B",
			Points:       n,
			ProfileImage: &img,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			want := sampleCreds(7)
			require.NoError(t, s.Save(ctx, want))

			got, ok, err := s.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.Token, got.Token)
			assert.Equal(t, want.User, got.User)

			require.NoError(t, s.Save(ctx, sampleCreds(8)))
			got, _, _ = s.Load(ctx)
			assert.Equal(t, "token-8", got.Token)
			assert.Equal(t, "user-8", got.User.ID)
		})
	}
}

func TestClearRemovesBoth(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, sampleCreds(1)))
			require.NoError(t, s.Set(ctx, KeyDonationCartNeedsRefresh, "true"))

			require.NoError(t, s.Clear(ctx))

			_, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, _ = s.Get(ctx, KeyToken)
			assert.False(t, ok)
			_, ok, _ = s.Get(ctx, KeyUser)
			assert.False(t, ok)

			v, ok, _ := s.Get(ctx, KeyDonationCartNeedsRefresh)
			assert.True(t, ok, "auxiliary keys survive sign-out")
			assert.Equal(t, "true", v)
		})
	}
}

func TestHalfPairIsDiscarded(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, KeyToken, "orphan"))

			_, ok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, _ = s.Get(ctx, KeyToken)
			assert.False(t, ok, "orphan token is removed")

			require.NoError(t, s.Set(ctx, KeyToken, "t"))
			require.NoError(t, s.Set(ctx, KeyUser, "{not json"))
			_, ok, err = s.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSaveRejectsIncompletePair(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save(context.Background(), Credentials{Token: "t"})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, clienterr.KindValidation, clienterr.KindOf(err))
		})
	}
}

func TestTakeReturnsValueOnce(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, KeyResetToken, "ticket"))

			v, ok, err := s.Take(ctx, KeyResetToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "ticket", v)

			_, ok, err = s.Take(ctx, KeyResetToken)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestConcurrentLoadNeverSeesMixedPair(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, sampleCreds(0)))

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				for i := 1; i <= 50; i++ {
					assert.NoError(t, s.Save(ctx, sampleCreds(i)))
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					c, ok, err := s.Load(ctx)
					if !assert.NoError(t, err) || !assert.True(t, ok) {
						return
					}
					assert.Equal(t, strings.TrimPrefix(c.Token, "token-"), strings.TrimPrefix(c.User.ID, "user-"))
				}
			}()
			wg.Wait()
		})
	}
}

func TestMemoryStoreWriteFailure(t *testing.T) {
	s := NewMemoryStore()
	s.FailWith(errors.New("disk full"))

	err := s.Save(context.Background(), sampleCreds(1))
	assert.Equal(t, clienterr.KindPersistence, clienterr.KindOf(err))

	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
