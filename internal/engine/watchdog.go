package engine

import (
	"sync"
	"time"
)

// DeadManInterval and DeadManThreshold implement spec.md §4.5: every 5s
// while playing, compare now-lastProgressTime to 30s.
const (
	DeadManInterval  = 5 * time.Second
	DeadManThreshold = 30 * time.Second
)

// deadManWatchdog ticks every DeadManInterval while armed, invoking onStall
// if lastProgress is older than DeadManThreshold. Grounded on the
// teacher's tts/sync/manager.go ticker-driven syncLoop shape, adapted to
// a single stall check instead of drift correction.
type deadManWatchdog struct {
	mu           sync.Mutex
	ticker       *time.Ticker
	stopCh       chan struct{}
	lastProgress time.Time
	onStall      func()
}

func newDeadManWatchdog(onStall func()) *deadManWatchdog {
	return &deadManWatchdog{onStall: onStall}
}

// Arm starts the periodic check; safe to call when already armed (no-op).
func (w *deadManWatchdog) Arm(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ticker != nil {
		return
	}
	w.lastProgress = now
	w.ticker = time.NewTicker(DeadManInterval)
	w.stopCh = make(chan struct{})
	ticker := w.ticker
	stopCh := w.stopCh
	go func() {
		for {
			select {
			case <-stopCh:
				return
			case t := <-ticker.C:
				w.check(t)
			}
		}
	}()
}

func (w *deadManWatchdog) check(now time.Time) {
	w.mu.Lock()
	last := w.lastProgress
	w.mu.Unlock()
	if now.Sub(last) > DeadManThreshold {
		w.onStall()
	}
}

// Progress refreshes lastProgressTime (called on every sentence completion
// and on visibility-visible per §4.4).
func (w *deadManWatchdog) Progress(now time.Time) {
	w.mu.Lock()
	w.lastProgress = now
	w.mu.Unlock()
}

// Disarm stops the ticker goroutine.
func (w *deadManWatchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ticker == nil {
		return
	}
	w.ticker.Stop()
	close(w.stopCh)
	w.ticker = nil
	w.stopCh = nil
}
