package sched

import (
	"github.com/sarchlab/mtloop/timing"
)

// SlotState is a read-only view of a slot.
type SlotState struct {
	Task        string      `json:"task"`
	Kind        string      `json:"kind"`
	StartTime   timing.Tick `json:"start_time"`
	MinDuration timing.Tick `json:"min_duration"`
	Padding     timing.Tick `json:"padding"`
	RightEdge   timing.Tick `json:"right_edge"`
	Ran         bool        `json:"ran"`
	LastStart   timing.Tick `json:"last_start"`
	LastStop    timing.Tick `json:"last_stop"`
	Runs        uint64      `json:"runs"`
	Declines    uint64      `json:"declines"`
	Panics      uint64      `json:"panics"`
}

// ChainState is a read-only view of a chain.
type ChainState struct {
	Current int         `json:"current"`
	Slots   []SlotState `json:"slots"`
}

// LoopState is a read-only view of a loop.
type LoopState struct {
	Tick     timing.Tick  `json:"tick"`
	Current  int          `json:"current"`
	Capacity int          `json:"capacity"`
	Chains   []ChainState `json:"chains"`
}

// State returns a view of the slot with its right edge evaluated at now.
func (s *TimeSlot) State(now timing.Tick) SlotState {
	return SlotState{
		Task:        s.task.Name(),
		Kind:        s.task.Kind(),
		StartTime:   s.startTime,
		MinDuration: s.minDuration,
		Padding:     s.padding,
		RightEdge:   s.RightEdge(now),
		Ran:         s.Ran(),
		LastStart:   s.task.LastStart(),
		LastStop:    s.task.LastStop(),
		Runs:        s.task.Runs(),
		Declines:    s.task.Declines(),
		Panics:      s.task.Panics(),
	}
}

// State returns a view of the chain with right edges evaluated at now.
func (c *TimeSlotChain) State(now timing.Tick) ChainState {
	st := ChainState{
		Current: c.current,
		Slots:   make([]SlotState, len(c.slots)),
	}

	for i := range c.slots {
		st.Slots[i] = c.slots[i].State(now)
	}

	return st
}

// Snapshot returns a view of the loop at the tick of the last Run call. It
// does not read the clock, since some clocks move when read.
func (l *Loop) Snapshot() LoopState {
	st := LoopState{
		Tick:     l.lastTick,
		Current:  l.current,
		Capacity: cap(l.chains),
		Chains:   make([]ChainState, len(l.chains)),
	}

	for i := range l.chains {
		st.Chains[i] = l.chains[i].State(l.lastTick)
	}

	return st
}
