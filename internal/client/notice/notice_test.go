package notice

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink/internal/pkg/logx"
)

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *navRecorder) navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *navRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestShowThenFireNavigates(t *testing.T) {
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())
	nav := &navRecorder{}

	n.Show("Please sign in", "/login", 1500*time.Millisecond, nav.navigate)
	assert.Equal(t, Notice{Message: "Please sign in", RedirectPath: "/login", Visible: true}, n.Current())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, sched.Pending())

	assert.Equal(t, 1, sched.Fire())
	assert.Equal(t, []string{"/login"}, nav.get())
	assert.False(t, n.Current().Visible)
}

func TestDismissCancelsNavigation(t *testing.T) {
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())
	nav := &navRecorder{}

	n.Show("Signed out", "/", time.Second, nav.navigate)
	n.Dismiss()

	assert.Empty(t, sched.Pending())
	sched.Fire()
	assert.Empty(t, nav.get())
	assert.False(t, n.Current().Visible)
}

func TestLaterNoticeSupersedes(t *testing.T) {
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())
	nav := &navRecorder{}

	n.Show("first", "/a", time.Second, nav.navigate)
	n.Show("second", "/b", time.Second, nav.navigate)

	assert.Equal(t, "second", n.Current().Message)
	assert.Len(t, sched.Pending(), 1)
	sched.Fire()
	assert.Equal(t, []string{"/b"}, nav.get())
}

func TestStaleTimerIsIgnored(t *testing.T) {
	// A timer whose Stop lost the race still must not act.
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())
	nav := &navRecorder{}

	n.Show("first", "/a", time.Second, nav.navigate)
	first := sched.timers[0]
	n.Show("second", "", time.Second, nav.navigate)

	first.f()
	assert.Empty(t, nav.get())
	assert.Equal(t, "second", n.Current().Message)
}

func TestCloseStopsEverything(t *testing.T) {
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())
	nav := &navRecorder{}

	assert.True(t, n.Show("bye", "/", time.Second, nav.navigate))
	n.Close()
	assert.False(t, n.Show("after close", "/x", time.Second, nav.navigate))

	sched.Fire()
	assert.Empty(t, nav.get())
	assert.False(t, n.Current().Visible)
}

func TestListenersSeeChanges(t *testing.T) {
	sched := &ManualScheduler{}
	n := New(sched, logx.Discard())

	var seen []Notice
	n.OnChange(func(nt Notice) { seen = append(seen, nt) })

	n.Show("hello", "", time.Second, nil)
	sched.Fire()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Visible)
	assert.False(t, seen[1].Visible)
}

func TestRealSchedulerFires(t *testing.T) {
	n := New(nil, logx.Discard())
	done := make(chan string, 1)

	n.Show("soon", "/login", 10*time.Millisecond, func(p string) { done <- p })

	select {
	case p := <-done:
		assert.Equal(t, "/login", p)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}
