/*
Package notice shows one transient message at a time, optionally followed by
a timed navigation.

A new notice replaces the current one and cancels its timer. Dismiss and
Close cancel the pending navigation deterministically: every notice carries a
generation number, and a timer that fires for an older generation does
nothing.
*/
package notice

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notice is what the UI renders.
type Notice struct {
	Message      string
	RedirectPath string
	Visible      bool
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler uses time.AfterFunc.
var RealScheduler Scheduler = realScheduler{}

// Notifier owns the active notice and its timer.
type Notifier struct {
	mu        sync.Mutex
	sched     Scheduler
	logger    zerolog.Logger
	current   Notice
	timer     Timer
	gen       uint64
	closed    bool
	listeners []func(Notice)
}

// New creates a Notifier. A nil sched means RealScheduler.
func New(sched Scheduler, logger zerolog.Logger) *Notifier {
	if sched == nil {
		sched = RealScheduler
	}
	return &Notifier{
		sched:  sched,
		logger: logger.With().Str("component", "notice").Logger(),
	}
}

// OnChange registers fn to receive every notice change. fn runs outside the lock.
func (n *Notifier) OnChange(fn func(Notice)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Show displays message, replacing any current notice. When delay elapses the
// notice is hidden and, if redirectPath is set, onFire is called with it.
// It reports false when the notifier is closed and nothing was shown.
func (n *Notifier) Show(message, redirectPath string, delay time.Duration, onFire func(path string)) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false
	}
	n.stopLocked()
	n.gen++
	gen := n.gen
	n.current = Notice{Message: message, RedirectPath: redirectPath, Visible: true}
	n.timer = n.sched.AfterFunc(delay, func() { n.fire(gen, onFire) })
	snapshot, listeners := n.current, n.listenersLocked()
	n.mu.Unlock()

	n.logger.Debug().Str("redirect", redirectPath).Dur("delay", delay).Msg("Notice shown")
	notify(listeners, snapshot)
	return true
}

func (n *Notifier) fire(gen uint64, onFire func(string)) {
	n.mu.Lock()
	if n.closed || gen != n.gen {
		n.mu.Unlock()
		return
	}
	path := n.current.RedirectPath
	n.current = Notice{}
	n.timer = nil
	listeners := n.listenersLocked()
	n.mu.Unlock()

	notify(listeners, Notice{})
	if path != "" && onFire != nil {
		onFire(path)
	}
}

// Dismiss hides the current notice and cancels its navigation.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if !n.current.Visible && n.timer == nil {
		n.mu.Unlock()
		return
	}
	n.stopLocked()
	n.gen++
	n.current = Notice{}
	listeners := n.listenersLocked()
	n.mu.Unlock()

	notify(listeners, Notice{})
}

// Close dismisses the notice and ignores every later Show. Call it on teardown.
func (n *Notifier) Close() {
	n.Dismiss()
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

// Current returns the active notice.
func (n *Notifier) Current() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) listenersLocked() []func(Notice) {
	return append([]func(Notice){}, n.listeners...)
}

func notify(listeners []func(Notice), nt Notice) {
	for _, fn := range listeners {
		fn(nt)
	}
}
