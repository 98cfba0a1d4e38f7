// Package countdown drives the per-attempt timer of a live test session.
//
// A Countdown moves Running -> Submitting -> Terminal. The move out of Running
// happens at most once, either when the timer reaches zero or when a manual
// submission claims it, so an attempt is never submitted twice by the same session.
package countdown

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a countdown.
type State int

const (
	Running State = iota
	Submitting
	Terminal
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Submitting:
		return "submitting"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Countdown is a second-resolution timer with a single guarded expiry transition.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	state     State
	onExpire  func()

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a running countdown. onExpire is called once, synchronously from
// the Tick that reaches zero, and never after a manual BeginSubmit.
func New(seconds int, onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		remaining: seconds,
		state:     Running,
		onExpire:  onExpire,
		stop:      make(chan struct{}),
	}
}

// Tick decrements the remaining time by one second. It reports whether this
// call performed the expiry transition. Ticks outside Running are no-ops.
func (c *Countdown) Tick() (remaining int, fired bool) {
	c.mu.Lock()
	if c.state != Running {
		remaining = c.remaining
		c.mu.Unlock()
		return remaining, false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.state = Submitting
		fired = true
	}
	remaining = c.remaining
	c.mu.Unlock()

	if fired && c.onExpire != nil {
		c.onExpire()
	}
	return remaining, fired
}

// BeginSubmit claims the submission for a manual submit.
// Returns false when the countdown already left Running.
func (c *Countdown) BeginSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return false
	}
	c.state = Submitting
	return true
}

// Resume returns a failed manual submission to Running with seconds left.
// Ticks are ignored while Submitting, so the caller passes the time left
// against the real deadline.
func (c *Countdown) Resume(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Submitting {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	c.state = Running
	c.remaining = seconds
}

// Finish moves the countdown to Terminal.
func (c *Countdown) Finish() {
	c.mu.Lock()
	c.state = Terminal
	c.mu.Unlock()
}

// Sync overwrites the remaining seconds while Running.
func (c *Countdown) Sync(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// State returns the current state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop ends Run. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Run ticks every interval until ctx is done, Stop is called, or the countdown
// reaches Terminal. onTick receives the remaining seconds after each tick that
// happened while Running.
func (c *Countdown) Run(ctx context.Context, interval time.Duration, onTick func(remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if c.State() == Terminal {
				return
			}
			running := c.State() == Running
			remaining, _ := c.Tick()
			if running && onTick != nil {
				onTick(remaining)
			}
		}
	}
}
