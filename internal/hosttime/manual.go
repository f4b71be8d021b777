// internal/hosttime/manual.go

package hosttime

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

var _ Source = (*Manual)(nil)

// Manual is a virtual-time Source. Nothing fires until Advance is called,
// and callbacks run on the goroutine calling Advance, one at a time.
//
// A non-zero latency makes every callback fire that much later than asked,
// which is how a coarse best-effort host timer behaves.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	latency time.Duration
	seq     uint64
	pending *redblacktree.Tree // nodeKey -> *manualHandle, ordered by due time then seq
}

// NewManual creates a Manual source whose clock reads start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		pending: redblacktree.NewWith(cmp),
	}
}

// SetLatency sets the extra delay added to every callback scheduled from now on.
func (m *Manual) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.latency = d
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc queues f to run once virtual time reaches now+d+latency.
func (m *Manual) AfterFunc(d time.Duration, f func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	h := &manualHandle{
		m:   m,
		key: nodeKey{due: m.now.Add(d + m.latency), seq: m.seq},
		fn:  f,
	}
	m.pending.Put(h.key, h)
	return h
}

// Advance moves virtual time forward by d, firing every callback that
// comes due on the way in due order, including callbacks scheduled by the
// ones being fired. It returns how many callbacks ran.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		node := m.pending.Left()
		if node == nil || node.Key.(nodeKey).due.After(target) {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		h := node.Value.(*manualHandle)
		m.pending.Remove(h.key)
		if h.key.due.After(m.now) {
			m.now = h.key.due
		}
		m.mu.Unlock()

		// run outside the lock so the callback may schedule again
		h.fn()
		fired++
	}
}

// Pending returns the number of callbacks waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending.Size()
}

type manualHandle struct {
	m   *Manual
	key nodeKey
	fn  func()
}

func (h *manualHandle) Stop() bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if _, found := h.m.pending.Get(h.key); !found {
		return false
	}
	h.m.pending.Remove(h.key)
	return true
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	due time.Time
	seq uint64
}

// cmp orders nodeKeys by due time, then by scheduling order.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.due.Before(kb.due):
		return -1
	case ka.due.After(kb.due):
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}
