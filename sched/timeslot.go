package sched

import (
	"github.com/sarchlab/mtloop/timing"
)

// A TimeSlot gives one task a window of ticks.
//
// The window opens at the start time and is at least minDuration ticks wide.
// The slot is pending until its task has run inside the current window and
// ran afterwards. After the task stops, the slot stays closed for at least
// padding ticks before the next slot may open.
type TimeSlot struct {
	task        TaskAdapter
	startTime   timing.Tick
	minDuration timing.Tick
	padding     timing.Tick
}

// NewTimeSlot creates a slot for the task. The slot starts at tick 1 until
// its chain re-anchors it.
func NewTimeSlot(task TaskAdapter, minDuration, padding timing.Tick) *TimeSlot {
	return &TimeSlot{
		task:        task,
		startTime:   1,
		minDuration: minDuration,
		padding:     padding,
	}
}

// Task returns the adapter owned by the slot.
func (s *TimeSlot) Task() *TaskAdapter {
	return &s.task
}

// StartTime returns the left edge of the current window.
func (s *TimeSlot) StartTime() timing.Tick {
	return s.startTime
}

// LeftEdge is the same as StartTime.
func (s *TimeSlot) LeftEdge() timing.Tick {
	return s.startTime
}

// SetStartTime re-anchors the window. Tick 0 is reserved and panics.
func (s *TimeSlot) SetStartTime(t timing.Tick) {
	if t == 0 {
		panic("slot start time must be at least 1")
	}

	s.startTime = t
}

// MinDuration returns the guaranteed width of the window.
func (s *TimeSlot) MinDuration() timing.Tick {
	return s.minDuration
}

// Padding returns the quiet gap kept after the task stops.
func (s *TimeSlot) Padding() timing.Tick {
	return s.padding
}

// Ran tells if the task has run since the slot was last anchored.
func (s *TimeSlot) Ran() bool {
	return s.task.lastStart != 0 && s.task.lastStart >= s.startTime
}

// Run runs the task if the window is open and the task has not run in it yet.
// It returns false if the window has not opened or the task did not complete,
// and true if the task has run in this window, now or earlier.
func (s *TimeSlot) Run(now timing.Tick, env Env) bool {
	if now < s.startTime {
		return false
	}

	if s.Ran() {
		return true
	}

	return s.task.Execute(env)
}

// NominalEdge returns the last tick of the window if the task never overruns.
func (s *TimeSlot) NominalEdge() timing.Tick {
	end := s.startTime + s.minDuration
	if end == 0 {
		return 0
	}

	return end - 1
}

// RightEdge returns the tick at which the slot effectively closes.
//
// A slot whose task ran closes at the later of its nominal edge and the task
// stop tick plus padding. A pending slot polled past its nominal edge is
// pushed to now plus padding. Otherwise the nominal edge applies.
func (s *TimeSlot) RightEdge(now timing.Tick) timing.Tick {
	nominal := s.NominalEdge()

	if s.Ran() {
		return max(nominal, s.task.lastStop+s.padding)
	}

	if now > nominal {
		return now + s.padding
	}

	return nominal
}

// Clone returns a deep copy of the slot with its own task adapter.
func (s *TimeSlot) Clone() *TimeSlot {
	c := *s
	c.task = s.task.Clone()

	return &c
}

// Close releases the task adapter.
func (s *TimeSlot) Close() error {
	return s.task.Close()
}
