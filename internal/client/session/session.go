/*
Package session owns the signed-in state of the app: who the user is, the
token that proves it, and what happens around signing in and out.

A Manager moves through ANONYMOUS -> AUTHENTICATING -> AUTHENTICATED ->
SIGNING_OUT -> ANONYMOUS. Every change to the token and user is written to
the credential store before it becomes visible in memory, so a reader never
sees a session the device could not persist.

RequireAuth is the gate in front of protected actions. An anonymous caller gets
a notice and, after a short delay, is sent to the sign-in screen; the
destination they wanted is kept in the pending queue and replayed once after
the next successful sign-in.
*/
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"donorlink/internal/client/account"
	"donorlink/internal/client/api"
	"donorlink/internal/client/clienterr"
	"donorlink/internal/client/credstore"
	"donorlink/internal/client/notice"
	"donorlink/internal/client/pending"
	"donorlink/internal/client/recovery"
	"donorlink/internal/pkg/policy"
)

// State is the session lifecycle state.
type State string

const (
	StateAnonymous      State = "ANONYMOUS"
	StateAuthenticating State = "AUTHENTICATING"
	StateAuthenticated  State = "AUTHENTICATED"
	StateSigningOut     State = "SIGNING_OUT"
)

const (
	DefaultSignInRoute    = "/login"
	DefaultSignOutRoute   = "/"
	DefaultRedirectDelay  = 1500 * time.Millisecond
	DefaultSignOutDelay   = 1500 * time.Millisecond
	DefaultSignOutMessage = "You have been signed out."
)

var (
	// ErrBusy is returned when a sign-in or sign-out is already running.
	ErrBusy = errors.New("session: another operation is in progress")

	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// API is the part of the backend the session talks to.
type API interface {
	recovery.API
	Signup(ctx context.Context, req api.SignupRequest) (api.AuthResponse, error)
	Login(ctx context.Context, username, password string) (api.AuthResponse, error)
	UpdateProfileImage(ctx context.Context, token, userID string, image *string) (*account.User, error)
}

// Navigator moves the app to another screen.
type Navigator interface {
	Navigate(path string, params map[string]string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string, params map[string]string)

func (f NavigatorFunc) Navigate(path string, params map[string]string) { f(path, params) }

// Options tunes routes and delays. Zero values take the defaults.
type Options struct {
	SignInRoute    string
	SignOutRoute   string
	RedirectDelay  time.Duration
	SignOutDelay   time.Duration
	SignOutMessage string
}

func (o Options) withDefaults() Options {
	if o.SignInRoute == "" {
		o.SignInRoute = DefaultSignInRoute
	}
	if o.SignOutRoute == "" {
		o.SignOutRoute = DefaultSignOutRoute
	}
	if o.RedirectDelay <= 0 {
		o.RedirectDelay = DefaultRedirectDelay
	}
	if o.SignOutDelay <= 0 {
		o.SignOutDelay = DefaultSignOutDelay
	}
	if o.SignOutMessage == "" {
		o.SignOutMessage = DefaultSignOutMessage
	}
	return o
}

// Deps are the collaborators of a Manager.
type Deps struct {
	API       API
	Store     credstore.Store
	Queue     *pending.Queue
	Notifier  *notice.Notifier
	Navigator Navigator
	Logger    zerolog.Logger
	Options   Options
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State State
	Token string
	User  *account.User
}

// IsAuthenticated reports whether the snapshot holds a signed-in user.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.Token != "" && s.User != nil
}

// Manager is the session state machine.
type Manager struct {
	api      API
	store    credstore.Store
	base     zerolog.Logger
	queue    *pending.Queue
	notifier *notice.Notifier
	nav      Navigator
	logger   zerolog.Logger
	opts     Options

	// persistMu orders store writes with the memory updates that follow them.
	persistMu sync.Mutex

	mu          sync.Mutex
	state       State
	token       string
	user        *account.User
	redirecting bool
	listeners   []func(Snapshot)
}

// New creates an anonymous Manager. Call Restore to pick up a stored session.
// When the API client supports it, a 401 on an authenticated request
// invalidates the session.
func New(deps Deps) *Manager {
	m := &Manager{
		api:      deps.API,
		store:    deps.Store,
		base:     deps.Logger,
		queue:    deps.Queue,
		notifier: deps.Notifier,
		nav:      deps.Navigator,
		logger:   deps.Logger.With().Str("component", "session").Logger(),
		opts:     deps.Options.withDefaults(),
		state:    StateAnonymous,
	}
	if m.queue == nil {
		m.queue = pending.New(m.store, deps.Logger)
	}
	if m.notifier == nil {
		m.notifier = notice.New(nil, deps.Logger)
	}
	if m.nav == nil {
		m.nav = NavigatorFunc(func(string, map[string]string) {})
	}

	// A hidden notice ends any sign-in redirect, whether it fired or was dismissed.
	m.notifier.OnChange(func(n notice.Notice) {
		if !n.Visible {
			m.mu.Lock()
			m.redirecting = false
			m.mu.Unlock()
		}
	})

	if h, ok := deps.API.(interface{ SetUnauthorizedHandler(func()) }); ok {
		h.SetUnauthorizedHandler(func() {
			if err := m.Invalidate(context.Background()); err != nil {
				m.logger.Warn().Err(err).Msg("Failed to clear rejected session")
			}
		})
	}
	return m
}

// OnChange registers fn to receive every session change. fn runs outside the lock.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Snapshot returns the current state, token and user together.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// Notifier returns the notifier the manager shows its notices on.
func (m *Manager) Notifier() *notice.Notifier { return m.notifier }

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Token: m.token, User: m.user.Clone()}
}

// setLocked changes state and returns the listeners to notify.
func (m *Manager) setLocked(state State, token string, u *account.User) ([]func(Snapshot), Snapshot) {
	m.state = state
	m.token = token
	m.user = u
	return append([]func(Snapshot){}, m.listeners...), m.snapshotLocked()
}

func (m *Manager) transition(state State, token string, u *account.User) {
	m.mu.Lock()
	listeners, snap := m.setLocked(state, token, u)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Restore loads a stored session. A complete pair makes the manager
// authenticated without contacting the server; the token is checked on first use.
func (m *Manager) Restore(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.state != StateAnonymous {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	m.mu.Unlock()

	c, ok, err := m.store.Load(ctx)
	if err != nil {
		return m.Snapshot(), err
	}
	if !ok {
		return m.Snapshot(), nil
	}

	m.mu.Lock()
	if m.state != StateAnonymous {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	listeners, snap := m.setLocked(StateAuthenticated, c.Token, c.User)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}

	m.logger.Info().Str("user_id", c.User.ID).Msg("Session restored")
	return snap, nil
}

// begin claims the anonymous manager for a sign-in.
func (m *Manager) begin(op string) error {
	m.mu.Lock()
	if m.state != StateAnonymous {
		m.mu.Unlock()
		return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: "Please wait for the current sign-in to finish.", Err: ErrBusy}
	}
	listeners, snap := m.setLocked(StateAuthenticating, "", nil)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

// establish persists a fresh session, publishes it and replays the pending
// action. On any failure the manager returns to ANONYMOUS.
func (m *Manager) establish(ctx context.Context, res api.AuthResponse) (*account.User, error) {
	c := credstore.Credentials{Token: res.Token, User: res.User}
	m.persistMu.Lock()
	if err := m.store.Save(ctx, c); err != nil {
		m.transition(StateAnonymous, "", nil)
		m.persistMu.Unlock()
		return nil, err
	}
	m.transition(StateAuthenticated, c.Token, c.User)
	m.persistMu.Unlock()
	m.logger.Info().Str("user_id", c.User.ID).Msg("Signed in")

	// A sign-in prompt or sign-out notice still counting down is moot now.
	m.notifier.Dismiss()

	m.markDonationsStale(ctx)
	m.replayPending(ctx)
	return c.User.Clone(), nil
}

func (m *Manager) replayPending(ctx context.Context) {
	a, ok, err := m.queue.TakeIfPresent(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read pending action")
		return
	}
	if ok {
		m.logger.Debug().Str("path", a.Pathname).Msg("Replaying pending action")
		m.nav.Navigate(a.Pathname, a.Params)
	}
}

// SignUp creates an account and signs it in.
func (m *Manager) SignUp(ctx context.Context, req api.SignupRequest) (*account.User, error) {
	const op = "session.SignUp"
	req.Username = strings.TrimSpace(req.Username)
	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	req.SecurityQuestion = strings.TrimSpace(req.SecurityQuestion)
	req.SecurityAnswer = strings.TrimSpace(req.SecurityAnswer)

	if err := req.Validate(); err != nil {
		return nil, clienterr.Wrap(op, clienterr.KindValidation, "Please fill in all fields.", err)
	}
	if err := policy.ValidateUsername(req.Username); err != nil {
		return nil, clienterr.Wrap(op, clienterr.KindValidation, err.Error(), err)
	}
	if err := policy.ValidatePassword(req.Password); err != nil {
		return nil, clienterr.Wrap(op, clienterr.KindValidation, err.Error(), err)
	}

	if err := m.begin(op); err != nil {
		return nil, err
	}
	res, err := m.api.Signup(ctx, req)
	if err != nil {
		m.transition(StateAnonymous, "", nil)
		return nil, err
	}
	return m.establish(ctx, res)
}

// Login signs in with a username and password.
func (m *Manager) Login(ctx context.Context, username, password string) (*account.User, error) {
	const op = "session.Login"
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, clienterr.New(op, clienterr.KindValidation, "Please enter your username and password.")
	}

	if err := m.begin(op); err != nil {
		return nil, err
	}
	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.transition(StateAnonymous, "", nil)
		return nil, err
	}
	return m.establish(ctx, res)
}

// Logout clears the stored session, then shows the sign-out notice and
// navigates to the sign-out route once it elapses. Logging out while
// anonymous is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	const op = "session.Logout"
	m.mu.Lock()
	switch m.state {
	case StateAnonymous:
		m.mu.Unlock()
		return nil
	case StateAuthenticated:
	default:
		m.mu.Unlock()
		return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: "Please wait for the current sign-in to finish.", Err: ErrBusy}
	}
	token, u := m.token, m.user
	listeners, snap := m.setLocked(StateSigningOut, token, u)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}

	m.persistMu.Lock()
	if err := m.store.Clear(ctx); err != nil {
		m.transition(StateAuthenticated, token, u)
		m.persistMu.Unlock()
		return err
	}
	m.transition(StateAnonymous, "", nil)
	m.persistMu.Unlock()
	m.logger.Info().Str("user_id", u.ID).Msg("Signed out")
	m.markDonationsStale(ctx)

	m.notifier.Show(m.opts.SignOutMessage, m.opts.SignOutRoute, m.opts.SignOutDelay, func(path string) {
		if m.Snapshot().State == StateAnonymous {
			m.nav.Navigate(path, nil)
		}
	})
	return nil
}

// Invalidate drops a session the server no longer accepts. Memory is cleared
// even when the store cannot be; the error is returned so the caller may retry.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	m.transition(StateAnonymous, "", nil)
	m.logger.Info().Msg("Session rejected by server, signed out")
	return err
}

// RequireAuth runs action when a user is signed in and returns true.
//
// Otherwise it shows message and schedules a redirect to the sign-in route,
// remembering destination (when set) for replay after sign-in, and returns
// false. While such a redirect is pending further calls do nothing.
func (m *Manager) RequireAuth(ctx context.Context, action func(), message, destination string, params map[string]string) bool {
	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.mu.Unlock()
		if action != nil {
			action()
		}
		return true
	}
	if m.redirecting {
		m.mu.Unlock()
		return false
	}
	m.redirecting = true
	m.mu.Unlock()

	if destination != "" {
		if err := m.queue.Set(ctx, pending.Action{Pathname: destination, Params: params}); err != nil {
			m.logger.Warn().Err(err).Str("path", destination).Msg("Failed to remember destination")
		}
	}

	shown := m.notifier.Show(message, m.opts.SignInRoute, m.opts.RedirectDelay, func(path string) {
		if m.Snapshot().State != StateAuthenticated {
			m.nav.Navigate(path, nil)
		}
	})
	if !shown {
		m.mu.Lock()
		m.redirecting = false
		m.mu.Unlock()
	}
	return false
}

// UpdateProfileImage sets or, with nil, clears the user's profile image and
// stores the user the server returns.
func (m *Manager) UpdateProfileImage(ctx context.Context, image *string) (*account.User, error) {
	const op = "session.UpdateProfileImage"
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil, &clienterr.Error{Op: op, Kind: clienterr.KindAuth, Message: "Please sign in first.", Err: ErrNotAuthenticated}
	}
	token, userID := m.token, m.user.ID
	m.mu.Unlock()

	u, err := m.api.UpdateProfileImage(ctx, token, userID, image)
	if err != nil {
		return nil, err
	}

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	current := m.state == StateAuthenticated && m.token == token
	m.mu.Unlock()
	if !current {
		return nil, &clienterr.Error{Op: op, Kind: clienterr.KindAuth, Message: "Your session changed. Please try again.", Err: ErrNotAuthenticated}
	}

	if err := m.store.Save(ctx, credstore.Credentials{Token: token, User: u}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	listeners, snap := m.setLocked(StateAuthenticated, token, u)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return u.Clone(), nil
}

// Recovery starts a password recovery flow. It works in any state.
func (m *Manager) Recovery(ctx context.Context) *recovery.Flow {
	return recovery.New(ctx, m.api, m.store, m.base)
}
