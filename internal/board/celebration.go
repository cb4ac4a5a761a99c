package board

import (
	"sync"
	"time"
)

// DefaultCelebrationDuration is how long the completion effect stays visible.
const DefaultCelebrationDuration = 2 * time.Second

// Timer is the subset of *time.Timer the celebration needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, fn func()) Timer

// Celebration is the one-shot cosmetic effect shown after a task reaches
// Done. It never touches task state.
type Celebration struct {
	// endMu serializes end callbacks against Stop.
	endMu     sync.Mutex
	mu        sync.Mutex
	duration  time.Duration
	afterFunc AfterFunc
	onEnd     func()

	active  bool
	stopped bool
	gen     uint64
	timer   Timer
}

// CelebrationOption configures a Celebration.
type CelebrationOption func(*Celebration)

// WithAfterFunc replaces the timer factory, mainly for tests.
func WithAfterFunc(fn AfterFunc) CelebrationOption {
	return func(c *Celebration) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithCelebrationEnd registers a callback run when the effect expires. The
// callback must not call Stop.
func WithCelebrationEnd(fn func()) CelebrationOption {
	return func(c *Celebration) {
		c.onEnd = fn
	}
}

// NewCelebration builds an idle celebration. Non-positive durations fall back
// to DefaultCelebrationDuration.
func NewCelebration(d time.Duration, opts ...CelebrationOption) *Celebration {
	if d <= 0 {
		d = DefaultCelebrationDuration
	}
	c := &Celebration{
		duration: d,
		afterFunc: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Duration returns the configured effect length.
func (c *Celebration) Duration() time.Duration {
	return c.duration
}

// Trigger starts the effect, restarting the timer if it is already running.
// It is a no-op after Stop.
func (c *Celebration) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.active = true
	c.timer = c.afterFunc(c.duration, func() {
		c.expire(gen)
	})
}

// Active reports whether the effect is currently showing.
func (c *Celebration) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Stop cancels any pending expiry and disables further triggers. The end
// callback never runs after Stop returns.
func (c *Celebration) Stop() {
	c.endMu.Lock()
	defer c.endMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.active = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// expire ends the effect for generation gen; stale generations are ignored.
func (c *Celebration) expire(gen uint64) {
	c.endMu.Lock()
	defer c.endMu.Unlock()
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.timer = nil
	onEnd := c.onEnd
	c.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}
