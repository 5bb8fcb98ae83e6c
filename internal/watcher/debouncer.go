package watcher

import (
	"sync"
	"time"
)

// Debouncer delays execution per key until a quiet period has passed.
// The function given by the latest Trigger for a key is the one that runs.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]func()
	stopped bool
}

// NewDebouncer creates a new debouncer with the specified delay
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]func()),
	}
}

// Trigger schedules or resets the debounced function for key
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[key] = fn

	// Reset or create timer
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[key] != t {
			// superseded by a later Trigger
			d.mu.Unlock()
			return
		}
		fn := d.pending[key]
		delete(d.timers, key)
		delete(d.pending, key)
		d.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
	d.timers[key] = t
}

// Cancel drops the pending execution for key, if any, and reports whether
// one was dropped
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.timers[key]
	if ok {
		t.Stop()
		delete(d.timers, key)
	}
	delete(d.pending, key)
	return ok
}

// Stop cancels everything pending; later Triggers are ignored
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = make(map[string]*time.Timer)
	d.pending = make(map[string]func())
}

// Pending returns the number of keys waiting to fire
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
