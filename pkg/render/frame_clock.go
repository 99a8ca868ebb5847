// Package render models the render backend the probe observes: a frame
// clock that signals frame completion, and the hardware latency counters
// some platforms expose.
package render

import (
	"sync"
	"time"
)

// Frame identifies one completed frame.
type Frame struct {
	Index       uint64
	CompletedAt time.Time
}

// FrameClock broadcasts frame completion to every waiter registered before
// the frame ended. It is driven by whoever owns the render loop.
type FrameClock struct {
	mu      sync.Mutex
	waiters []chan Frame
	last    Frame
	stopped bool
}

// NewFrameClock creates a frame clock with no completed frames.
func NewFrameClock() *FrameClock {
	return &FrameClock{}
}

// NextFrame registers a waiter for the next frame completion. The returned
// channel receives exactly one Frame, or is closed without a value if the
// clock is stopped first.
func (c *FrameClock) NextFrame() <-chan Frame {
	ch := make(chan Frame, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		close(ch)
		return ch
	}
	c.waiters = append(c.waiters, ch)
	return ch
}

// EndFrame marks the current frame as rendered at completedAt and releases
// all waiters registered so far.
func (c *FrameClock) EndFrame(completedAt time.Time) Frame {
	c.mu.Lock()
	c.last = Frame{Index: c.last.Index + 1, CompletedAt: completedAt}
	frame := c.last
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- frame
	}
	return frame
}

// Waiting returns the number of waiters registered for the next frame.
func (c *FrameClock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// LastFrame returns the most recently completed frame.
func (c *FrameClock) LastFrame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Stop closes all pending waiters; later NextFrame calls return closed channels.
func (c *FrameClock) Stop() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.stopped = true
	c.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}
