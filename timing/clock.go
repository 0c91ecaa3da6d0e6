package timing

import (
	"sync/atomic"
)

// CounterClock is a clock that moves forward by one tick every time it is
// read. It never returns tick 0.
type CounterClock struct {
	curr atomic.Uint64
}

// NewCounterClock creates a CounterClock whose first reading is 1.
func NewCounterClock() *CounterClock {
	return &CounterClock{}
}

// Now advances the clock and returns the new tick.
func (c *CounterClock) Now() Tick {
	return c.curr.Add(1)
}

// ManualClock only changes when it is told to. Tests and replay tools drive
// it explicitly.
type ManualClock struct {
	curr atomic.Uint64
}

// NewManualClock creates a ManualClock that starts at the given tick.
func NewManualClock(start Tick) *ManualClock {
	c := &ManualClock{}
	c.curr.Store(start)

	return c
}

// Now returns the current tick without changing it.
func (c *ManualClock) Now() Tick {
	return c.curr.Load()
}

// Set moves the clock to the given tick. Unlike real clocks, a ManualClock
// may be moved backwards so that tests can replay arbitrary tick sequences.
func (c *ManualClock) Set(t Tick) {
	c.curr.Store(t)
}

// Advance moves the clock forward by n ticks and returns the new tick.
func (c *ManualClock) Advance(n Tick) Tick {
	return c.curr.Add(n)
}
