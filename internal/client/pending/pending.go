/*
Package pending records the one navigation a signed-out user was trying to
make, so it can be replayed after the next successful sign-in.

At most one action is kept; Set overwrites. TakeIfPresent reads and deletes
in one step, so an action is handed out at most once. A stale action left by
an abandoned sign-in is harmless and is simply overwritten later.
*/
package pending

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"donorlink/internal/client/clienterr"
	"donorlink/internal/client/credstore"
)

// Action is a deferred navigation.
type Action struct {
	Pathname string            `json:"pathname"`
	Params   map[string]string `json:"params,omitempty"`
}

// Queue stores the pending action under credstore.KeyPendingAuthAction.
type Queue struct {
	mu     sync.Mutex
	store  credstore.Store
	logger zerolog.Logger
}

// New creates a Queue backed by store.
func New(store credstore.Store, logger zerolog.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger.With().Str("component", "pending").Logger(),
	}
}

// Set replaces any pending action with a.
func (q *Queue) Set(ctx context.Context, a Action) error {
	const op = "pending.Set"
	if strings.TrimSpace(a.Pathname) == "" {
		return clienterr.New(op, clienterr.KindValidation, "A destination is required.")
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return clienterr.Persistence(op, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Set(ctx, credstore.KeyPendingAuthAction, string(raw))
}

// TakeIfPresent returns the pending action and removes it. ok is false when none was stored.
func (q *Queue) TakeIfPresent(ctx context.Context) (a Action, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, found, err := q.store.Take(ctx, credstore.KeyPendingAuthAction)
	if err != nil || !found {
		return Action{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil || strings.TrimSpace(a.Pathname) == "" {
		q.logger.Warn().Msg("Dropped unreadable pending action")
		return Action{}, false, nil
	}
	return a, true, nil
}

// Peek returns the pending action without consuming it.
func (q *Queue) Peek(ctx context.Context) (Action, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, found, err := q.store.Get(ctx, credstore.KeyPendingAuthAction)
	if err != nil || !found {
		return Action{}, false, err
	}
	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Action{}, false, nil
	}
	return a, true, nil
}
