// Package timerwheel implements a single-worker-thread timer dispatcher: one
// goroutine owns the set of armed timers and a cached pointer to whichever
// one is due to fire next, sleeping until that expiry (or a bounded idle
// wait) rather than polling.
package timerwheel

import (
	"log"
	"sync"
	"time"

	"github.com/banshee-data/rtls/internal/timeutil"
)

// fireTolerance is how close to its expiry a timer must be before the
// dispatch loop fires it rather than re-sleeping for the remainder.
const fireTolerance = 10 * time.Microsecond

// maxWait bounds how long the dispatch loop sleeps when no timer is armed,
// so Stop and newly-armed timers are never held up for long.
const maxWait = 100 * time.Millisecond

// Callback is invoked on the wheel's own goroutine when a timer fires.
type Callback func(t *Timer)

// Timer is a single armed or disarmed timer. The zero value is not usable;
// construct one with Wheel.NewTimer.
type Timer struct {
	wheel    *Wheel
	callback Callback
	expiry   time.Time
	period   time.Duration // zero for one-shot timers
	armed    bool
}

// Expiry returns the time this timer is next scheduled to fire.
func (t *Timer) Expiry() time.Time {
	t.wheel.mu.Lock()
	defer t.wheel.mu.Unlock()
	return t.expiry
}

// Armed reports whether the timer currently has a pending expiry.
func (t *Timer) Armed() bool {
	t.wheel.mu.Lock()
	defer t.wheel.mu.Unlock()
	return t.armed
}

// Wheel is the timer dispatcher. Arm, Unarm and Stop may be called from any
// goroutine; Callback runs on the wheel's own goroutine.
type Wheel struct {
	clock timeutil.Clock

	mu      sync.Mutex
	timers  map[*Timer]struct{}
	next    *Timer
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// New creates a Wheel driven by clk and starts its dispatch goroutine.
func New(clk timeutil.Clock) *Wheel {
	w := &Wheel{
		clock:  clk,
		timers: make(map[*Timer]struct{}),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// NewTimer creates a disarmed timer bound to this wheel.
func (w *Wheel) NewTimer(cb Callback) *Timer {
	return &Timer{wheel: w, callback: cb}
}

// ArmedCount reports how many timers are currently armed, for the
// admin debug surface.
func (w *Wheel) ArmedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// NextExpiry reports the expiry of the next timer due to fire, and
// whether any timer is armed at all.
func (w *Wheel) NextExpiry() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.next == nil {
		return time.Time{}, false
	}
	return w.next.expiry, true
}

// Arm schedules t to fire once at when, replacing any schedule t already
// had.
func (w *Wheel) Arm(t *Timer, when time.Time) {
	w.mu.Lock()
	t.expiry = when
	t.period = 0
	t.armed = true
	w.timers[t] = struct{}{}
	w.recomputeNextLocked()
	w.mu.Unlock()
	w.signal()
}

// ArmPeriodic schedules t to fire at first, then every period thereafter.
// Each rearm is computed from the previous expiry, not from the wall clock
// at fire time, so the period does not drift under dispatch latency.
func (w *Wheel) ArmPeriodic(t *Timer, first time.Time, period time.Duration) {
	w.mu.Lock()
	t.expiry = first
	t.period = period
	t.armed = true
	w.timers[t] = struct{}{}
	w.recomputeNextLocked()
	w.mu.Unlock()
	w.signal()
}

// Unarm cancels t. If t was not armed this is a no-op. Once Unarm returns,
// t.callback will not be invoked for the cancelled schedule; a callback
// already running on the wheel goroutine is unaffected.
func (w *Wheel) Unarm(t *Timer) {
	w.mu.Lock()
	delete(w.timers, t)
	t.armed = false
	w.recomputeNextLocked()
	w.mu.Unlock()
	w.signal()
}

// Stop halts the dispatch goroutine and waits for it to exit. No armed
// timer fires after Stop returns.
func (w *Wheel) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.signal()
	<-w.done
}

func (w *Wheel) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Wheel) recomputeNextLocked() {
	var next *Timer
	for t := range w.timers {
		if next == nil || t.expiry.Before(next.expiry) {
			next = t
		}
	}
	w.next = next
}

func (w *Wheel) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		next := w.next
		var wait time.Duration
		if next == nil {
			wait = maxWait
		} else {
			wait = next.expiry.Sub(w.clock.Now())
			if wait > maxWait {
				wait = maxWait
			}
		}
		w.mu.Unlock()

		if next != nil && wait <= fireTolerance {
			w.fireDue()
			continue
		}

		timer := w.clock.NewTimer(wait)
		select {
		case <-timer.C():
		case <-w.wake:
			timer.Stop()
		}
	}
}

// fireDue pops the timer whose expiry is due, rearms it if periodic, and
// invokes its callback.
func (w *Wheel) fireDue() {
	w.mu.Lock()
	t := w.next
	if t == nil {
		w.mu.Unlock()
		return
	}
	delete(w.timers, t)
	if t.period > 0 {
		t.expiry = t.expiry.Add(t.period)
		w.timers[t] = struct{}{}
	} else {
		t.armed = false
	}
	w.recomputeNextLocked()
	w.mu.Unlock()

	w.invoke(t)
}

func (w *Wheel) invoke(t *Timer) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("timerwheel: callback panic: %v", r)
		}
	}()
	t.callback(t)
}
