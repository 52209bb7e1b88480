// Package debounce delays propagation of a rapidly changing value until it has been
// stable for a configured delay.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is used when a negative delay is given.
const DefaultDelay = 500 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

type Option[T comparable] func(*Debouncer[T])

// WithAfterFunc replaces the timer source, mainly for tests.
func WithAfterFunc[T comparable](fn AfterFunc) Option[T] {
	return func(d *Debouncer[T]) {
		d.afterFunc = fn
	}
}

// OnSettle registers a callback invoked with every newly settled value.
func OnSettle[T comparable](fn func(T)) Option[T] {
	return func(d *Debouncer[T]) {
		d.onSettle = fn
	}
}

// Debouncer exposes the settled value of an input that may change rapidly.
type Debouncer[T comparable] struct {
	mu        sync.Mutex
	delay     time.Duration
	latest    T
	settled   T
	pending   bool
	timer     Timer
	gen       uint64
	stopped   bool
	afterFunc AfterFunc
	onSettle  func(T)

	// emitMu orders settle callbacks; emitted is the sequence of the last one delivered.
	emitMu  sync.Mutex
	seq     uint64
	emitted uint64
}

func New[T comparable](initial T, delay time.Duration, opts ...Option[T]) *Debouncer[T] {
	if delay < 0 {
		delay = DefaultDelay
	}

	d := &Debouncer[T]{
		delay:   delay,
		latest:  initial,
		settled: initial,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Value returns the settled value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Latest returns the most recent input, settled or not.
func (d *Debouncer[T]) Latest() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Pending reports whether a settle is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Set feeds a new input value. Equal consecutive values do not restart the timer.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || v == d.latest {
		return
	}
	d.latest = v
	d.scheduleLocked()
}

// SetDelay changes the delay; a pending settle restarts with the new delay.
func (d *Debouncer[T]) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if delay < 0 {
		delay = DefaultDelay
	}
	if d.stopped || delay == d.delay {
		return
	}
	d.delay = delay
	if d.pending {
		d.scheduleLocked()
	}
}

// Stop cancels any outstanding timer. Nothing settles after Stop returns.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) scheduleLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.afterFunc(d.delay, func() {
		d.fire(gen)
	})
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// a timer that lost the race with Set/Stop must not emit
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	changed := d.settled != d.latest
	d.settled = d.latest
	value := d.settled
	cb := d.onSettle
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if !changed || cb == nil {
		return
	}
	d.emit(seq, value, cb)
}

// emit delivers value unless a later settle was already delivered or Stop was called.
func (d *Debouncer[T]) emit(seq uint64, value T, cb func(T)) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped || seq < d.emitted {
		return
	}
	d.emitted = seq
	cb(value)
}
