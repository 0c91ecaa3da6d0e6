// Package timing defines the tick type and the clocks that produce ticks.
package timing

// Tick is the scheduler's unit of time. Tick 0 is reserved to mean "never".
//
// Ticks are plain unsigned counters. A Tick wraps after 2^64 increments and
// wraparound is not handled, so every Clock must be monotonic.
type Tick = uint64

// A Clock can tell the current tick.
type Clock interface {
	Now() Tick
}
