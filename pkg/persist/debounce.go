package persist

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before progress is written.
const DefaultDebounce = 400 * time.Millisecond

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on another goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Clock schedules with time.AfterFunc.
var Clock Scheduler = clockScheduler{}

// Debouncer coalesces bursts of triggers into one call after a quiet period.
// Only the most recent trigger's function runs.
type Debouncer struct {
	delay time.Duration
	sched Scheduler

	mu      sync.Mutex
	timer   Timer
	seq     uint64
	pending func()
}

// NewDebouncer returns a debouncer with the given delay; a nil scheduler uses
// Clock and a non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration, sched Scheduler) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if sched == nil {
		sched = Clock
	}
	return &Debouncer{delay: delay, sched: sched}
}

// Trigger cancels any pending call and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Stop cancels the pending call. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.pending = nil
	d.timer = nil
	return true
}

// Flush runs the pending call now, if any.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	if fn == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
