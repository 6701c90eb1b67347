package presence

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"photochat/internal/event"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []event.Outbound
	closed atomic.Bool
	full   bool
}

func (f *fakeConn) Send(ev event.Outbound) bool {
	if f.closed.Load() || f.full {
		return false
	}
	f.mu.Lock()
	f.frames = append(f.frames, ev)
	f.mu.Unlock()
	return true
}

func (f *fakeConn) Close() { f.closed.Store(true) }

func (f *fakeConn) received() []event.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Outbound(nil), f.frames...)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	_, ok := r.Lookup(1)
	req.False(ok)

	c := &fakeConn{}
	prev, replaced := r.Register(1, c)
	req.Nil(prev)
	req.False(replaced)

	got, ok := r.Lookup(1)
	req.True(ok)
	req.Same(c, got)
	req.Equal(1, r.Count())
}

func TestRegistry_RegisterReturnsSupersededConn(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	first, second := &fakeConn{}, &fakeConn{}
	r.Register(7, first)

	prev, replaced := r.Register(7, second)
	req.True(replaced)
	req.Same(first, prev)

	got, _ := r.Lookup(7)
	req.Same(second, got)
	req.Equal(1, r.Count())

	// Re-registering the same handle is not a replacement.
	prev, replaced = r.Register(7, second)
	req.Nil(prev)
	req.False(replaced)
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Register(3, &fakeConn{})

	r.Unregister(3)
	r.Unregister(3)
	r.Unregister(42)

	_, ok := r.Lookup(3)
	req.False(ok)
	req.Zero(r.Count())
}

func TestRegistry_ReleaseOnlyOwnEntry(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	old, current := &fakeConn{}, &fakeConn{}
	r.Register(5, old)
	r.Register(5, current)

	req.False(r.Release(5, old))
	got, ok := r.Lookup(5)
	req.True(ok)
	req.Same(current, got)

	req.True(r.Release(5, current))
	_, ok = r.Lookup(5)
	req.False(ok)
	req.False(r.Release(5, current))
}

func TestRegistry_Forward(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.False(r.Forward(9, event.Typing(1)))

	c := &fakeConn{}
	r.Register(9, c)
	req.True(r.Forward(9, event.Typing(1)))
	req.Equal([]event.Outbound{event.Typing(1)}, c.received())

	c.full = true
	req.False(r.Forward(9, event.Typing(1)))
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.Register(1, &fakeConn{})
	r.Register(2, &fakeConn{})

	snap := r.Snapshot()
	req.Len(snap, 2)

	delete(snap, 1)
	req.Equal(2, r.Count())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := &fakeConn{}
			r.Register(id%5, c)
			r.Lookup(id % 5)
			r.Forward(id%5, event.Read(id))
			r.Release(id%5, c)
		}(int64(i))
	}
	wg.Wait()

	require.LessOrEqual(t, r.Count(), 5)
}

func TestOnlineTracker_MarkAndExpire(t *testing.T) {
	req := require.New(t)
	tracker, err := NewOnlineTracker(time.Second, zaptest.NewLogger(t))
	req.NoError(err)
	t.Cleanup(func() { _ = tracker.Close() })

	req.False(tracker.IsOnline(10))

	tracker.MarkOnline(10)
	req.True(tracker.IsOnline(10))
	req.False(tracker.IsOnline(11))

	req.Eventually(func() bool {
		return !tracker.IsOnline(10)
	}, 5*time.Second, 100*time.Millisecond)
}

func TestOnlineTracker_DefaultTTL(t *testing.T) {
	tracker, err := NewOnlineTracker(0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	require.Equal(t, DefaultOnlineTTL, tracker.TTL())
}
