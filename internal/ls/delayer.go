package ls

import (
	"sync"
	"time"
)

// Delayer debounces a parameterless action with a trailing delay. A trigger
// while a firing is pending replaces both the action and the delay.
type Delayer struct {
	defaultDelay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

func newDelayer(defaultDelay time.Duration) *Delayer {
	return &Delayer{defaultDelay: defaultDelay}
}

func (d *Delayer) Trigger(action func()) {
	d.TriggerWithDelay(action, d.defaultDelay)
}

func (d *Delayer) TriggerWithDelay(action func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = action
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

func (d *Delayer) fire() {
	d.mu.Lock()
	action := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if action != nil {
		action()
	}
}

// Cancel drops any pending firing.
func (d *Delayer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
