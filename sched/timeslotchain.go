package sched

import (
	"errors"

	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/timing"
)

// A TimeSlotChain is a fixed, circular sequence of slots sharing one cursor.
type TimeSlotChain struct {
	slots   []TimeSlot
	current int
}

// NewTimeSlotChain creates a chain that owns copies of the given slots.
func NewTimeSlotChain(slots ...*TimeSlot) *TimeSlotChain {
	if len(slots) == 0 {
		panic("a chain needs at least one slot")
	}

	c := &TimeSlotChain{
		slots: make([]TimeSlot, len(slots)),
	}

	for i, s := range slots {
		if s == nil {
			panic("slot must not be nil")
		}

		c.slots[i] = *s.Clone()
	}

	return c
}

// Size returns the number of slots.
func (c *TimeSlotChain) Size() int {
	return len(c.slots)
}

// Current returns the index of the active slot.
func (c *TimeSlotChain) Current() int {
	return c.current
}

// Slot returns the slot at index i.
func (c *TimeSlotChain) Slot(i int) *TimeSlot {
	return &c.slots[i]
}

// CurrentSlot returns the active slot.
func (c *TimeSlotChain) CurrentSlot() *TimeSlot {
	return &c.slots[c.current]
}

// SetStartTime anchors the active slot.
func (c *TimeSlotChain) SetStartTime(t timing.Tick) {
	c.slots[c.current].SetStartTime(t)
}

// Run polls the active slot. If the slot reports that its task has run, the
// chain moves to the next slot, anchors it one tick after the effective right
// edge of the slot it leaves, and returns true.
func (c *TimeSlotChain) Run(now timing.Tick, env Env) bool {
	from := c.current
	env.Where.Slot = from
	slot := &c.slots[from]

	if !slot.Run(now, env) {
		return false
	}

	edge := slot.RightEdge(now)
	c.current = (from + 1) % len(c.slots)
	c.slots[c.current].SetStartTime(edge + 1)

	env.invoke(hooking.HookPosSlotAdvance, hooking.SlotAdvance{
		Chain:     env.Where.Chain,
		From:      from,
		To:        c.current,
		RightEdge: edge,
		NewStart:  edge + 1,
	})

	return true
}

// Clone returns a deep copy of the chain, cursor included.
func (c *TimeSlotChain) Clone() *TimeSlotChain {
	n := &TimeSlotChain{
		slots:   make([]TimeSlot, len(c.slots)),
		current: c.current,
	}

	for i := range c.slots {
		n.slots[i] = *c.slots[i].Clone()
	}

	return n
}

// Close releases every slot.
func (c *TimeSlotChain) Close() error {
	var err error
	for i := range c.slots {
		err = errors.Join(err, c.slots[i].Close())
	}

	return err
}
