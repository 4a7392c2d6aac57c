/*
Package recovery drives the security-question password reset:
IDENTIFY -> CHALLENGE -> RESET -> DONE.

The reset ticket lives only in memory and is dropped once used; a flow is not
resumable after the app restarts. A failed step leaves the flow where it was
so the user can retry.
*/
package recovery

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"donorlink/internal/client/clienterr"
	"donorlink/internal/client/credstore"
	"donorlink/internal/pkg/policy"
)

// Step is the position in the flow.
type Step string

const (
	StepIdentify  Step = "IDENTIFY"
	StepChallenge Step = "CHALLENGE"
	StepReset     Step = "RESET"
	StepDone      Step = "DONE"
)

var (
	// ErrWrongStep is returned when an operation does not belong to the current step.
	ErrWrongStep = errors.New("recovery: operation not allowed in current step")

	// ErrBusy is returned while another step is in flight.
	ErrBusy = errors.New("recovery: busy")
)

// API is the part of the backend the flow talks to.
type API interface {
	RequestPasswordReset(ctx context.Context, identifier string) (string, error)
	VerifySecurityAnswer(ctx context.Context, identifier, answer string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error)
}

// State is what the recovery screens render.
type State struct {
	Step             Step
	Identifier       string
	SecurityQuestion string
}

// Flow is one password recovery attempt.
type Flow struct {
	mu       sync.Mutex
	api      API
	store    credstore.Store
	logger   zerolog.Logger
	step     Step
	busy     bool
	ident    string
	question string
	ticket   string
}

// New starts a flow at IDENTIFY. store may be nil; when set, any reset ticket
// an older build left on the device is removed.
func New(ctx context.Context, api API, store credstore.Store, logger zerolog.Logger) *Flow {
	f := &Flow{
		api:    api,
		store:  store,
		logger: logger.With().Str("component", "recovery").Logger(),
		step:   StepIdentify,
	}
	if store != nil {
		if err := store.Delete(ctx, credstore.KeyResetToken); err != nil {
			f.logger.Warn().Err(err).Msg("Failed to remove stale reset ticket")
		}
	}
	return f
}

// State returns the current step and what the user has entered so far.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{Step: f.step, Identifier: f.ident, SecurityQuestion: f.question}
}

// begin claims the flow for op if the current step is one of allowed.
func (f *Flow) begin(op string, allowed ...Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: "Please wait for the current step to finish.", Err: ErrBusy}
	}
	for _, s := range allowed {
		if f.step == s {
			f.busy = true
			return nil
		}
	}
	return &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: "This step is not available right now.", Err: ErrWrongStep}
}

func (f *Flow) end(apply func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if apply != nil {
		apply()
	}
	f.busy = false
}

// RequestReset looks the account up and moves to CHALLENGE with its security question.
// It may also be called from CHALLENGE to switch to another account.
func (f *Flow) RequestReset(ctx context.Context, identifier string) (string, error) {
	const op = "recovery.RequestReset"
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", clienterr.New(op, clienterr.KindValidation, "Please enter your username.")
	}
	if err := f.begin(op, StepIdentify, StepChallenge); err != nil {
		return "", err
	}

	question, err := f.api.RequestPasswordReset(ctx, identifier)
	if err != nil {
		f.end(nil)
		return "", err
	}

	f.end(func() {
		f.step = StepChallenge
		f.ident = identifier
		f.question = question
	})
	return question, nil
}

// VerifyAnswer checks the answer and moves to RESET holding the reset ticket.
func (f *Flow) VerifyAnswer(ctx context.Context, answer string) error {
	const op = "recovery.VerifyAnswer"
	if strings.TrimSpace(answer) == "" {
		return clienterr.New(op, clienterr.KindValidation, "Please enter your answer.")
	}
	if err := f.begin(op, StepChallenge); err != nil {
		return err
	}

	f.mu.Lock()
	ident := f.ident
	f.mu.Unlock()

	ticket, err := f.api.VerifySecurityAnswer(ctx, ident, answer)
	if err != nil {
		f.end(nil)
		return err
	}

	f.end(func() {
		f.step = StepReset
		f.ticket = ticket
	})
	return nil
}

// ResetPassword sets the new password with the held ticket and finishes the flow.
func (f *Flow) ResetPassword(ctx context.Context, newPassword string) (string, error) {
	const op = "recovery.ResetPassword"
	if err := policy.ValidatePassword(newPassword); err != nil {
		return "", &clienterr.Error{Op: op, Kind: clienterr.KindValidation, Message: err.Error(), Err: err}
	}
	if err := f.begin(op, StepReset); err != nil {
		return "", err
	}

	f.mu.Lock()
	ticket := f.ticket
	f.mu.Unlock()

	message, err := f.api.ResetPassword(ctx, ticket, newPassword)
	if err != nil {
		f.end(nil)
		return "", err
	}

	f.end(func() {
		f.step = StepDone
		f.ticket = ""
	})
	f.logger.Info().Msg("Password reset completed")
	return message, nil
}

// Restart drops everything and returns to IDENTIFY.
func (f *Flow) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = StepIdentify
	f.ident = ""
	f.question = ""
	f.ticket = ""
}
