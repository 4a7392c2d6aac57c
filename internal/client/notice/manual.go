package notice

import (
	"sync"
	"time"
)

// ManualScheduler holds callbacks until Fire is called. For tests and hosts
// that drive time themselves.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Pending returns the delays of timers that are neither stopped nor fired.
func (s *ManualScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			out = append(out, t.delay)
		}
		t.mu.Unlock()
	}
	return out
}

// Fire runs every pending timer and returns how many ran.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()

	ran := 0
	for _, t := range timers {
		t.mu.Lock()
		due := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if due {
			t.f()
			ran++
		}
	}
	return ran
}
