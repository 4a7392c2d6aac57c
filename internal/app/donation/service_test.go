package donation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink/internal/app/user"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/randx"
)

func newServiceForTests(t *testing.T) (*Service, *user.MemoryRepo, time.Time) {
	t.Helper()
	users := user.NewMemoryRepo()
	for _, u := range []*user.User{{ID: "donor", Username: "donor1"}, {ID: "driver", Username: "driver1"}, {ID: "driver2", Username: "driver2"}} {
		require.NoError(t, users.Create(context.Background(), u))
	}
	svc := NewService(NewMemoryRepo(), users, logx.Discard())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, users, now
}

func validInput() Input {
	return Input{
		Title:      " Winter coats ",
		Category:   "Clothing",
		ItemCount:  3,
		Attributes: map[string]string{"size": "M", "condition": "good"},
		Photos:     []string{"donations/a.jpg", " "},
	}
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	svc, _, _ := newServiceForTests(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, "donor", validInput())
	require.NoError(t, err)
	assert.Equal(t, "Winter coats", d.Title)
	assert.Equal(t, CategoryClothing, d.Category)
	assert.Equal(t, []string{"donations/a.jpg"}, d.Photos)
	assert.Equal(t, StatusListed, d.Status)

	bad := validInput()
	bad.Category = "furniture"
	_, err = svc.Create(ctx, "donor", bad)
	assert.ErrorIs(t, err, ErrInvalid)

	bad = validInput()
	bad.ItemCount = 0
	_, err = svc.Create(ctx, "donor", bad)
	assert.Error(t, err)
}

func TestPickupLifecycleAwardsPoints(t *testing.T) {
	svc, users, now := newServiceForTests(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, "donor", validInput())
	require.NoError(t, err)

	d, err = svc.SchedulePickup(ctx, "donor", d.ID, PickupRequest{
		Address:     "12 Market Street",
		WindowStart: now.Add(2 * time.Hour),
		WindowEnd:   now.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, d.Status)
	assert.True(t, randx.IsValidPickupCode(d.Pickup.Code))

	avail, err := svc.Available(ctx, "driver", 10)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Empty(t, avail[0].ForViewer("driver").Pickup.Code)
	assert.Equal(t, d.Pickup.Code, d.ForViewer("donor").Pickup.Code)

	mine, err := svc.Available(ctx, "donor", 10)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = svc.Claim(ctx, "donor", d.ID)
	assert.ErrorIs(t, err, ErrOwnDonation)

	_, err = svc.Claim(ctx, "driver", d.ID)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "driver2", d.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, "donor", d.ID, validInput())
	assert.ErrorIs(t, err, ErrLocked)

	_, err = svc.Complete(ctx, "driver2", d.ID, d.Pickup.Code)
	assert.ErrorIs(t, err, ErrNotDriver)

	_, err = svc.Complete(ctx, "driver", d.ID, "zzzzzz")
	assert.ErrorIs(t, err, ErrWrongCode)

	done, err := svc.Complete(ctx, "driver", d.ID, d.Pickup.Code)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	donor, err := users.GetByID(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 3*PointsPerItem, donor.Points)
}

func TestScheduleRejectsBadWindow(t *testing.T) {
	svc, _, now := newServiceForTests(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, "donor", validInput())
	require.NoError(t, err)

	_, err = svc.SchedulePickup(ctx, "donor", d.ID, PickupRequest{Address: "12 Market Street", WindowStart: now.Add(-time.Hour), WindowEnd: now.Add(time.Hour)})
	assert.Error(t, err)

	_, err = svc.SchedulePickup(ctx, "donor", d.ID, PickupRequest{Address: "12 Market Street", WindowStart: now.Add(time.Hour), WindowEnd: now.Add(time.Hour + time.Minute)})
	assert.Error(t, err)

	_, err = svc.SchedulePickup(ctx, "driver", d.ID, PickupRequest{Address: "12 Market Street", WindowStart: now.Add(time.Hour), WindowEnd: now.Add(2 * time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	svc, _, now := newServiceForTests(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, "donor", validInput())
	require.NoError(t, err)
	_, err = svc.SchedulePickup(ctx, "donor", d.ID, PickupRequest{Address: "12 Market Street", WindowStart: now.Add(time.Hour), WindowEnd: now.Add(2 * time.Hour)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, driver := range []string{"driver", "driver2", "driver", "driver2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.Claim(ctx, id, d.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(driver)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestDeleteAndVisibility(t *testing.T) {
	svc, _, _ := newServiceForTests(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, "donor", validInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "driver", d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "driver", d.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "donor", d.ID))
	_, err = svc.Get(ctx, "donor", d.ID)
	assert.True(t, IsNotFound(err))
}
