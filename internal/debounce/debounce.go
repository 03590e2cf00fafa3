// Package debounce coalesces bursts of calls into one call after a quiet
// period. A newer call always supersedes the pending one.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once no new call has
// arrived for the configured delay. All methods are safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
	seq     uint64 // detects superseded timer callbacks
}

// New creates a debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Call schedules fn, cancelling any call that is still waiting.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn
	d.seq++
	current := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.seq != current || d.pending == nil {
			d.mu.Unlock()
			return
		}
		run := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()
		run()
	})
}

// Flush runs the pending call immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	run := d.pending
	d.pending = nil
	d.mu.Unlock()

	if run != nil {
		run()
	}
}

// Cancel drops the pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = nil
}

// Pending reports whether a call is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Group keeps one Debouncer per key so edits to one field never cancel a
// pending save of another.
type Group[K comparable] struct {
	mu    sync.Mutex
	delay time.Duration
	items map[K]*Debouncer
}

// NewGroup creates an empty keyed group sharing one delay.
func NewGroup[K comparable](delay time.Duration) *Group[K] {
	return &Group[K]{delay: delay, items: map[K]*Debouncer{}}
}

// Call schedules fn on the debouncer for key.
func (g *Group[K]) Call(key K, fn func()) {
	g.mu.Lock()
	d, ok := g.items[key]
	if !ok {
		d = New(g.delay)
		g.items[key] = d
	}
	g.mu.Unlock()
	d.Call(fn)
}

// CancelAll drops every pending call.
func (g *Group[K]) CancelAll() {
	g.mu.Lock()
	items := make([]*Debouncer, 0, len(g.items))
	for _, d := range g.items {
		items = append(items, d)
	}
	g.mu.Unlock()
	for _, d := range items {
		d.Cancel()
	}
}

// FlushAll runs every pending call immediately.
func (g *Group[K]) FlushAll() {
	g.mu.Lock()
	items := make([]*Debouncer, 0, len(g.items))
	for _, d := range g.items {
		items = append(items, d)
	}
	g.mu.Unlock()
	for _, d := range items {
		d.Flush()
	}
}
