package cartsync

import (
	"sync"
	"time"
)

// Debouncer runs at most one pending callback per key. Scheduling again
// before the delay elapses replaces the pending callback and restarts the delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCall
	seq     uint64
}

type pendingCall struct {
	timer *time.Timer
	seq   uint64
	fn    func()
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*pendingCall)}
}

// Schedule arranges for fn to run after the delay unless replaced or cancelled first.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	p := &pendingCall{seq: seq, fn: fn}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(key, seq) })
	d.pending[key] = p
}

// fire runs the callback only if it is still the latest one for key.
// A timer that fired concurrently with Schedule or Cancel finds a newer seq and does nothing.
func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	p.fn()
}

// Pending reports whether a callback is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops the pending callback for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Flush runs the pending callback for key immediately on the calling goroutine.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		p.fn()
	}
}

// Stop cancels every pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
