package session

import (
	"sync"
	"time"
)

// Watchdog is a restartable single-shot inactivity timer. Every activity
// signal fully resets the deadline (debounced, not throttled). The
// generation counter makes a fire racing a concurrent Stop or restart an
// effective no-op: a stale timer callback never reaches onFire twice.
//
// onFire receives the generation of the countdown that elapsed. The fire
// may block on a lock held by whoever is restarting the watchdog, so the
// callback must call Stale with that generation once it holds its own
// lock and stand down when the countdown has been superseded.
type Watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	gen      uint64
	onFire   func(gen uint64)
}

// NewWatchdog builds a watchdog that invokes onFire when the countdown
// elapses with no activity.
func NewWatchdog(onFire func(gen uint64)) *Watchdog {
	return &Watchdog{onFire: onFire}
}

// Start arms the timer for the given duration, canceling any previous
// countdown first. A non-positive duration leaves the watchdog disarmed.
func (w *Watchdog) Start(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelLocked()
	if d <= 0 {
		w.duration = 0
		return
	}
	w.duration = d
	w.armLocked()
}

// OnActivity re-arms the countdown from zero with the same duration. It is
// a no-op while the watchdog is disarmed.
func (w *Watchdog) OnActivity() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil || w.duration <= 0 {
		return
	}
	w.cancelLocked()
	w.armLocked()
}

// Stop cancels the countdown without firing.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	w.duration = 0
}

// Stale reports whether the countdown that produced gen has been
// superseded by a later Start, OnActivity or Stop.
func (w *Watchdog) Stale(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return gen != w.gen
}

func (w *Watchdog) armLocked() {
	gen := w.gen
	w.timer = time.AfterFunc(w.duration, func() { w.fire(gen) })
}

func (w *Watchdog) cancelLocked() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen {
		// canceled or re-armed after this callback was scheduled
		w.mu.Unlock()
		return
	}
	w.timer = nil
	onFire := w.onFire
	w.mu.Unlock()

	// invoked outside the mutex: onFire takes the state machine's lock,
	// and must re-check Stale(gen) once it holds it
	if onFire != nil {
		onFire(gen)
	}
}
