package review

import (
	"strings"
	"sync"
	"time"
)

// Debouncer coalesces rapid edit events into one trailing invocation
// per key. Re-triggering a pending key supersedes it; the function runs
// once, after the window has been quiet.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
}

func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = time.Second
	}
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger schedules fn for the key, replacing any pending invocation
// for the same key.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending invocation.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// CancelPair drops every pending invocation keyed under one pair; a
// new selection supersedes whatever revalidation cycle an old edit
// scheduled.
func (d *Debouncer) CancelPair(pairID string) {
	prefix := pairID + "/"
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.timers {
		if strings.HasPrefix(key, prefix) {
			t.Stop()
			delete(d.timers, key)
		}
	}
}

// Key builds the pair-scoped debounce key for a segment.
func Key(pairID, segmentID string) string {
	return pairID + "/" + segmentID
}
