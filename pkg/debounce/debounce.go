// Package debounce implements trailing-debounce write coalescing: updates
// accumulate in a pending buffer and a single flush fires after a quiet
// period, restarted on every new update.
package debounce

import (
	"sync"
	"time"
)

// FlushFunc receives the coalesced batch. It runs outside the controller
// lock, on the timer goroutine for debounced flushes or on the caller's
// goroutine for FlushNow.
type FlushFunc func(pending map[string]any)

// Controller owns one pending buffer and one timer. It replaces the ambient
// timer/buffer closures with an explicit object so teardown and tests stay
// deterministic.
type Controller struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]any
	timer   *time.Timer
	flushFn FlushFunc
}

func New(delay time.Duration, flushFn FlushFunc) *Controller {
	return &Controller{
		delay:   delay,
		pending: map[string]any{},
		flushFn: flushFn,
	}
}

// Schedule buffers one update and restarts the quiet-period timer. Repeated
// updates to the same key overwrite the buffered value, last write wins. A
// non-positive delay flushes synchronously.
func (c *Controller) Schedule(key string, value any) {
	if c.delay <= 0 {
		c.mu.Lock()
		c.pending[key] = value
		c.mu.Unlock()
		c.flush()
		return
	}

	c.mu.Lock()
	c.pending[key] = value
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.flush)
	c.mu.Unlock()
}

// ScheduleBatch buffers several updates and restarts the quiet-period timer
// once. Callers with a multi-key update must use it instead of repeated
// Schedule calls so a synchronous flush sees the whole batch.
func (c *Controller) ScheduleBatch(entries map[string]any) {
	if len(entries) == 0 {
		return
	}

	c.mu.Lock()
	for key, value := range entries {
		c.pending[key] = value
	}
	if c.delay <= 0 {
		c.mu.Unlock()
		c.flush()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.flush)
	c.mu.Unlock()
}

// FlushNow cancels the pending timer and flushes synchronously. Use it for
// explicit save actions and on teardown so a stale debounced write can never
// clobber a manual one.
func (c *Controller) FlushNow() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.flush()
}

// Cancel stops the timer and discards unflushed updates.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = map[string]any{}
	c.mu.Unlock()
}

// Pending returns the number of buffered updates.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Controller) flush() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = map[string]any{}
	c.timer = nil
	c.mu.Unlock()

	c.flushFn(batch)
}
