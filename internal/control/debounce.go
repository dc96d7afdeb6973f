package control

import (
	"sync"
	"time"
)

// Debounce windows for outbound control updates.
const (
	PromptDebounce = 300 * time.Millisecond
	ConfigDebounce = 200 * time.Millisecond
)

// Debouncer coalesces a burst of updates into a single flush per quiescent
// window. Every Trigger within the window restarts the timer, so the flush
// always observes the state as of the last edit, not the first.
type Debouncer struct {
	window time.Duration
	flush  func()

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(window time.Duration, flush func()) *Debouncer {
	return &Debouncer{window: window, flush: flush}
}

// Trigger schedules a flush after the quiescent window, cancelling any
// pending one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// Cancel drops any pending flush.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
