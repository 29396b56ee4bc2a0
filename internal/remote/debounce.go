package remote

import (
	"sync"
	"time"

	"postit/internal/clock"
)

// debouncer runs the latest function scheduled for a key once no newer
// one arrives within the window.
type debouncer struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	timers map[string]*debounced
	// running counts callbacks whose timer fired. Add and Wait both happen
	// under mu.
	running sync.WaitGroup
}

type debounced struct {
	timer clock.Timer
	fn    func()
}

func newDebouncer(c clock.Clock, window time.Duration) *debouncer {
	return &debouncer{clock: c, window: window, timers: make(map[string]*debounced)}
}

// schedule replaces any pending function for key and restarts its window.
func (d *debouncer) schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.timers[key]; ok {
		prev.timer.Stop()
	}
	entry := &debounced{fn: fn}
	entry.timer = d.clock.AfterFunc(d.window, func() {
		if d.take(key, entry) {
			defer d.running.Done()
			fn()
		}
	})
	d.timers[key] = entry
}

// take removes entry if it is still the pending one for key and counts it
// as running.
func (d *debouncer) take(key string, entry *debounced) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timers[key] != entry {
		return false
	}
	delete(d.timers, key)
	d.running.Add(1)
	return true
}

// cancel drops the pending function for key without running it.
func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.timers[key]; ok {
		prev.timer.Stop()
		delete(d.timers, key)
	}
}

// flush runs every pending function now and waits for callbacks whose
// window closed just before.
func (d *debouncer) flush() {
	d.mu.Lock()
	entries := d.timers
	d.timers = make(map[string]*debounced)
	d.mu.Unlock()

	for _, e := range entries {
		e.timer.Stop()
		e.fn()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.running.Wait()
}

// pending returns the number of keys waiting for their window to close.
func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
