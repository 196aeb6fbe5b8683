// Package timeutil abstracts the time source of the autoplay scheduler and
// the viewer loop so both can be driven by hand in tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source for autoplay scheduling and the viewer loop.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// MockClock only moves when told to. Set jumps without ticking; Advance
// ticks every ticker whose deadline it crosses.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

// NewMockClock returns a MockClock reading start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

// Now returns the mocked time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t without firing tickers. Deadlines already
// passed fire on the next Advance.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and fires due tickers.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	c.tickers = live
	due := append([]*MockTicker(nil), live...)
	c.mu.Unlock()

	for _, t := range due {
		t.fire(now)
	}
}

// NewTicker returns a MockTicker first due one interval from now.
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timeutil: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		deadline: c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// MockTicker holds at most one pending tick; a slow reader loses ticks the
// way it would with time.Ticker.
type MockTicker struct {
	ch       chan time.Time
	interval time.Duration

	mu       sync.Mutex
	deadline time.Time
	stopped  bool
}

func (t *MockTicker) C() <-chan time.Time { return t.ch }

func (t *MockTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *MockTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire sends one tick if now has reached the deadline, then moves the
// deadline past now in whole intervals.
func (t *MockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || now.Before(t.deadline) {
		return
	}
	for !t.deadline.After(now) {
		t.deadline = t.deadline.Add(t.interval)
	}
	select {
	case t.ch <- now:
	default:
	}
}
