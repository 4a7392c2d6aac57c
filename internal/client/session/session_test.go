package session

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink/internal/client/account"
	"donorlink/internal/client/api"
	"donorlink/internal/client/clienterr"
	"donorlink/internal/client/credstore"
	"donorlink/internal/client/notice"
	"donorlink/internal/client/pending"
	"donorlink/internal/pkg/logx"
)

type fakeAPI struct {
	mu       sync.Mutex
	loginErr error
	block    chan struct{}
	logins   int
	signups  int
}

func (f *fakeAPI) auth(username string) api.AuthResponse {
	return api.AuthResponse{
		Token: "tok-" + username,
		User:  &account.User{ID: "id-" + username, Username: username},
	}
}

func (f *fakeAPI) Signup(_ context.Context, req api.SignupRequest) (api.AuthResponse, error) {
	f.mu.Lock()
	f.signups++
	f.mu.Unlock()
	return f.auth(req.Username), nil
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (api.AuthResponse, error) {
	f.mu.Lock()
	f.logins++
	block, err := f.block, f.loginErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return api.AuthResponse{}, err
	}
	return f.auth(username), nil
}

func (f *fakeAPI) UpdateProfileImage(_ context.Context, _, userID string, image *string) (*account.User, error) {
	return &account.User{ID: userID, Username: "dana", ProfileImage: image}, nil
}

func (f *fakeAPI) RequestPasswordReset(context.Context, string) (string, error) {
	return "First pet?", nil
}

func (f *fakeAPI) VerifySecurityAnswer(context.Context, string, string) (string, error) {
	return "ticket", nil
}

func (f *fakeAPI) ResetPassword(context.Context, string, string) (string, error) {
	return "Password has been reset.", nil
}

type navCall struct {
	Path   string
	Params map[string]string
}

type navRecorder struct {
	mu    sync.Mutex
	calls []navCall
}

func (n *navRecorder) Navigate(path string, params map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, navCall{Path: path, Params: params})
}

func (n *navRecorder) paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		out = append(out, c.Path)
	}
	return out
}

type harness struct {
	m     *Manager
	api   *fakeAPI
	store *credstore.MemoryStore
	queue *pending.Queue
	sched *notice.ManualScheduler
	nav   *navRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:   &fakeAPI{},
		store: credstore.NewMemoryStore(),
		sched: &notice.ManualScheduler{},
		nav:   &navRecorder{},
	}
	h.queue = pending.New(h.store, logx.Discard())
	h.m = New(Deps{
		API:       h.api,
		Store:     h.store,
		Queue:     h.queue,
		Notifier:  notice.New(h.sched, logx.Discard()),
		Navigator: h.nav,
		Logger:    logx.Discard(),
	})
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.m.Login(context.Background(), "dana", "Secret!1")
	require.NoError(t, err)
}

func TestRestoreFromStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.store.Save(ctx, credstore.Credentials{
		Token: "stored",
		User:  &account.User{ID: "u1", Username: "dana"},
	}))

	snap, err := h.m.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "stored", snap.Token)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Zero(t, h.api.logins)
}

func TestRestoreEmptyStoreStaysAnonymous(t *testing.T) {
	h := newHarness(t)

	snap, err := h.m.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAnonymous, snap.State)
	assert.False(t, h.m.IsAuthenticated())
}

func TestLoginPersistsBeforePublishing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var seen []Snapshot
	h.m.OnChange(func(s Snapshot) {
		if s.State == StateAuthenticated {
			c, ok, err := h.store.Load(ctx)
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, s.Token, c.Token)
			assert.Equal(t, s.User, c.User)
		}
		seen = append(seen, s)
	})

	u, err := h.m.Login(ctx, " dana ", "Secret!1")
	require.NoError(t, err)
	assert.Equal(t, "dana", u.Username)

	require.Len(t, seen, 2)
	assert.Equal(t, StateAuthenticating, seen[0].State)
	assert.Equal(t, StateAuthenticated, seen[1].State)
}

func TestLoginFailureReturnsToAnonymous(t *testing.T) {
	h := newHarness(t)
	h.api.loginErr = clienterr.New("Login", clienterr.KindAuth, "Invalid username or password.")

	_, err := h.m.Login(context.Background(), "dana", "wrong!")
	require.Error(t, err)
	assert.True(t, clienterr.Is(err, clienterr.KindAuth))
	assert.Equal(t, "Invalid username or password.", clienterr.MessageOf(err))
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)
}

func TestLoginRequiresFields(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.Login(context.Background(), "  ", "")
	assert.True(t, clienterr.Is(err, clienterr.KindValidation))
	assert.Zero(t, h.api.logins)
}

func TestLoginPersistenceFailureLeavesAnonymous(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.FailWith(errors.New("disk full"))

	_, err := h.m.Login(ctx, "dana", "Secret!1")
	require.Error(t, err)
	assert.True(t, clienterr.Is(err, clienterr.KindPersistence))
	assert.Equal(t, StateAnonymous, h.m.Snapshot().State)

	_, ok, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentLoginIsBusy(t *testing.T) {
	h := newHarness(t)
	h.api.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.m.Login(context.Background(), "dana", "Secret!1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return h.m.Snapshot().State == StateAuthenticating
	}, time.Second, time.Millisecond)

	_, err := h.m.Login(context.Background(), "dana", "Secret!1")
	assert.ErrorIs(t, err, ErrBusy)

	close(h.api.block)
	require.NoError(t, <-done)
	assert.True(t, h.m.IsAuthenticated())
}

func TestSignUpChecksPolicyLocally(t *testing.T) {
	h := newHarness(t)
	req := api.SignupRequest{
		Username:         "dana",
		Password:         "simple",
		Firstname:        "Dana",
		Lastname:         "Reyes",
		SecurityQuestion: "First pet?",
		SecurityAnswer:   "Rex",
	}

	_, err := h.m.SignUp(context.Background(), req)
	require.Error(t, err)
	assert.True(t, clienterr.Is(err, clienterr.KindValidation))
	assert.Contains(t, clienterr.MessageOf(err), "special character")
	assert.Zero(t, h.api.signups)

	req.Password = "Simple!1"
	u, err := h.m.SignUp(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "dana", u.Username)
	assert.True(t, h.m.IsAuthenticated())
}

func TestRequireAuthRunsActionWhenSignedIn(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	ran := false
	ok := h.m.RequireAuth(context.Background(), func() { ran = true }, "Please sign in.", "/donate", nil)
	assert.True(t, ok)
	assert.True(t, ran)
	assert.Empty(t, h.sched.Pending())

	_, queued, err := h.queue.Peek(context.Background())
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestRequireAuthSchedulesSingleRedirect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ran := false
	assert.False(t, h.m.RequireAuth(ctx, func() { ran = true }, "Please sign in to donate.", "/donate", map[string]string{"category": "toys"}))
	assert.False(t, h.m.RequireAuth(ctx, func() { ran = true }, "Please sign in to donate.", "/leaderboard", nil))
	assert.False(t, ran)

	assert.Equal(t, []time.Duration{DefaultRedirectDelay}, h.sched.Pending())
	assert.Equal(t, "Please sign in to donate.", h.m.Notifier().Current().Message)

	a, ok, err := h.queue.Peek(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/donate", a.Pathname)

	assert.Equal(t, 1, h.sched.Fire())
	assert.Equal(t, []string{DefaultSignInRoute}, h.nav.paths())
	assert.False(t, h.m.Notifier().Current().Visible)

	// The redirect is over, so the gate may prompt again.
	assert.False(t, h.m.RequireAuth(ctx, nil, "Please sign in.", "", nil))
	assert.Len(t, h.sched.Pending(), 1)
}

func TestDismissedRedirectReleasesGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.m.RequireAuth(ctx, nil, "Please sign in.", "", nil)
	h.m.Notifier().Dismiss()
	assert.Empty(t, h.sched.Pending())

	h.m.RequireAuth(ctx, nil, "Please sign in.", "", nil)
	assert.Len(t, h.sched.Pending(), 1)
}

func TestPendingActionReplayedOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.m.RequireAuth(ctx, nil, "Please sign in.", "/donate", map[string]string{"category": "toys"})
	h.sched.Fire()
	h.login(t)

	assert.Equal(t, []string{DefaultSignInRoute, "/donate"}, h.nav.paths())
	assert.Equal(t, map[string]string{"category": "toys"}, h.nav.calls[1].Params)

	require.NoError(t, h.m.Logout(ctx))
	h.sched.Fire()
	h.login(t)

	assert.Equal(t, []string{DefaultSignInRoute, "/donate", DefaultSignOutRoute}, h.nav.paths())
}

func TestLoginCancelsPendingRedirect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.m.RequireAuth(ctx, nil, "Please sign in.", "/donate", nil)
	h.login(t)

	assert.Empty(t, h.sched.Pending())
	assert.Equal(t, []string{"/donate"}, h.nav.paths())
}

func TestLogoutClearsStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.m.Logout(ctx))

	snap := h.m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)

	_, ok, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, DefaultSignOutMessage, h.m.Notifier().Current().Message)
	assert.Equal(t, []time.Duration{DefaultSignOutDelay}, h.sched.Pending())
	h.sched.Fire()
	assert.Equal(t, []string{DefaultSignOutRoute}, h.nav.paths())

	// A fresh manager on the same store finds nothing to restore.
	fresh := New(Deps{API: h.api, Store: h.store, Logger: logx.Discard()})
	snap, err = fresh.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, snap.IsAuthenticated())
}

func TestLogoutWhileAnonymousIsNoop(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.m.Logout(context.Background()))
	assert.Empty(t, h.sched.Pending())
}

func TestLogoutPersistenceFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.store.FailWith(errors.New("disk full"))

	err := h.m.Logout(context.Background())
	require.Error(t, err)
	assert.True(t, clienterr.Is(err, clienterr.KindPersistence))
	assert.True(t, h.m.IsAuthenticated())
	assert.Empty(t, h.sched.Pending())
}

func TestUpdateProfileImage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	img := "uploads/profile/id-dana/a.png"
	u, err := h.m.UpdateProfileImage(ctx, &img)
	require.NoError(t, err)
	require.NotNil(t, u.ProfileImage)
	assert.Equal(t, img, *u.ProfileImage)

	c, ok, err := h.store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, img, *c.User.ProfileImage)
	assert.Equal(t, img, *h.m.Snapshot().User.ProfileImage)

	u, err = h.m.UpdateProfileImage(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, u.ProfileImage)
	assert.Nil(t, h.m.Snapshot().User.ProfileImage)
}

func TestUpdateProfileImageRequiresSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.UpdateProfileImage(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, clienterr.Is(err, clienterr.KindAuth))
}

func TestUpdateProfileImagePersistenceFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.store.FailWith(errors.New("disk full"))

	img := "https://example.com/a.png"
	_, err := h.m.UpdateProfileImage(context.Background(), &img)
	assert.True(t, clienterr.Is(err, clienterr.KindPersistence))
	assert.Nil(t, h.m.Snapshot().User.ProfileImage)
}

func TestRejectedTokenInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":1002,"message":"Authentication required."}`))
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL, api.Options{Logger: logx.Discard()})
	require.NoError(t, err)

	store := credstore.NewMemoryStore()
	require.NoError(t, store.Save(ctx, credstore.Credentials{
		Token: "expired",
		User:  &account.User{ID: "u1", Username: "dana"},
	}))

	m := New(Deps{API: client, Store: store, Logger: logx.Discard()})
	_, err = m.Restore(ctx)
	require.NoError(t, err)
	require.True(t, m.IsAuthenticated())

	_, err = m.UpdateProfileImage(ctx, nil)
	require.Error(t, err)
	assert.True(t, clienterr.Is(err, clienterr.KindAuth))

	assert.Equal(t, StateAnonymous, m.Snapshot().State)
	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoveryUsesManagerAPI(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	flow := h.m.Recovery(ctx)

	q, err := flow.RequestReset(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, "First pet?", q)
}

func TestSignInAndOutMarkDonationsStale(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	stale, err := h.m.TakeDonationsRefresh(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	h.login(t)
	stale, err = h.m.TakeDonationsRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	stale, err = h.m.TakeDonationsRefresh(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	require.NoError(t, h.m.Logout(ctx))
	stale, err = h.m.TakeDonationsRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestSignUpPersistsExactSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	u, err := h.m.SignUp(ctx, api.SignupRequest{
		Username:         "dana",
		Password:         "Simple!1",
		Firstname:        "Dana",
		Lastname:         "Reyes",
		SecurityQuestion: "First pet?",
		SecurityAnswer:   "Rex",
	})
	require.NoError(t, err)

	c, ok, err := h.store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-dana", c.Token)
	assert.Equal(t, &account.User{ID: "id-dana", Username: "dana"}, c.User)
	assert.Equal(t, u, c.User)

	snap := h.m.Snapshot()
	assert.Equal(t, c.Token, snap.Token)
	assert.Equal(t, c.User, snap.User)
}

func TestSignOutNoticeDoesNotOverrideReplay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.m.Logout(ctx))
	h.m.RequireAuth(ctx, nil, "Please sign in.", "/donate", nil)
	h.m.Notifier().Dismiss()
	h.login(t)
	assert.Equal(t, []string{"/donate"}, h.nav.paths())

	// Sign back in while the sign-out notice is still counting down.
	require.NoError(t, h.m.Logout(ctx))
	h.login(t)
	assert.False(t, h.m.Notifier().Current().Visible)

	h.sched.Fire()
	assert.Equal(t, []string{"/donate"}, h.nav.paths())
	assert.True(t, h.m.IsAuthenticated())
}

func TestClosedNotifierDoesNotBlockGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.m.Notifier().Close()

	assert.False(t, h.m.RequireAuth(ctx, nil, "Please sign in.", "/donate", nil))
	assert.Empty(t, h.sched.Pending())

	h.m.mu.Lock()
	redirecting := h.m.redirecting
	h.m.mu.Unlock()
	assert.False(t, redirecting)

	h.login(t)
	require.NoError(t, h.m.Logout(ctx))

	ran := false
	h.login(t)
	assert.True(t, h.m.RequireAuth(ctx, func() { ran = true }, "Please sign in.", "", nil))
	assert.True(t, ran)
}

func TestComponentTaggedOnce(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	m := New(Deps{
		API:      &fakeAPI{},
		Store:    credstore.NewMemoryStore(),
		Notifier: notice.New(&notice.ManualScheduler{}, zerolog.New(&buf)),
		Logger:   zerolog.New(&buf),
	})

	_, err := m.Login(ctx, "dana", "Secret!1")
	require.NoError(t, err)

	flow := m.Recovery(ctx)
	_, err = flow.RequestReset(ctx, "dana")
	require.NoError(t, err)
	require.NoError(t, flow.VerifyAnswer(ctx, "Rex"))
	_, err = flow.ResetPassword(ctx, "Fresh!22")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	}
	assert.Contains(t, buf.String(), `"component":"recovery"`)
	assert.Contains(t, buf.String(), `"component":"session"`)
}
