// Package debounce coalesces bursts of triggers into a single trailing call.
// The editor autosave path uses it so a keystroke storm becomes one save; the
// underlying save/sync is correct at any call rate, this only reduces churn.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once the configured quiet period has elapsed since the
// last Trigger. Safe for concurrent use.
type Debouncer struct {
	d  time.Duration
	fn func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func New(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{d: d, fn: fn}
}

// Trigger (re)starts the quiet period. fn fires d after the last Trigger.
func (b *Debouncer) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.d, b.fn)
}

// Flush runs fn immediately if a call is pending.
func (b *Debouncer) Flush() {
	b.mu.Lock()
	pending := b.timer != nil && b.timer.Stop()
	b.timer = nil
	b.mu.Unlock()
	if pending {
		b.fn()
	}
}

// Stop cancels any pending call and ignores further triggers.
func (b *Debouncer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
