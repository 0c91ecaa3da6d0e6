package sched

import (
	"errors"

	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/id"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
)

// A Loop owns up to a fixed number of chains and gives one chain a turn on
// every Run call.
type Loop struct {
	hooking.HookableBase

	clock    timing.Clock
	logger   logging.Logger
	policy   PanicPolicy
	ids      id.IDGenerator
	chains   []TimeSlotChain
	current  int
	lastTick timing.Tick
}

// LoopOption configures a Loop.
type LoopOption func(l *Loop)

// WithPanicPolicy sets how task panics are handled.
func WithPanicPolicy(p PanicPolicy) LoopOption {
	return func(l *Loop) {
		l.policy = p
	}
}

// WithIDGenerator sets the generator of execution IDs passed to hooks.
func WithIDGenerator(g id.IDGenerator) LoopOption {
	return func(l *Loop) {
		l.ids = g
	}
}

// NewLoop creates a loop that can hold up to capacity chains. A nil logger
// drops all messages.
func NewLoop(
	capacity int,
	clock timing.Clock,
	logger logging.Logger,
	opts ...LoopOption,
) *Loop {
	if capacity <= 0 {
		panic("loop capacity must be positive")
	}

	if clock == nil {
		panic("loop needs a clock")
	}

	l := &Loop{
		clock:  clock,
		logger: logging.Safe(logger),
		ids:    id.NewIDGenerator(),
		chains: make([]TimeSlotChain, 0, capacity),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Attach builds a chain from the slots and adds it to the loop. It returns
// false and changes nothing when the loop is full.
func (l *Loop) Attach(slots ...*TimeSlot) bool {
	if l.Full() {
		return false
	}

	l.chains = append(l.chains, *NewTimeSlotChain(slots...))

	return true
}

// AttachChain adds a copy of the chain to the loop. It returns false and
// changes nothing when the loop is full.
func (l *Loop) AttachChain(chain *TimeSlotChain) bool {
	if l.Full() {
		return false
	}

	l.chains = append(l.chains, *chain.Clone())

	return true
}

// Full tells if no more chains can be attached.
func (l *Loop) Full() bool {
	return len(l.chains) == cap(l.chains)
}

// Size returns the number of attached chains.
func (l *Loop) Size() int {
	return len(l.chains)
}

// Capacity returns the maximum number of chains.
func (l *Loop) Capacity() int {
	return cap(l.chains)
}

// Current returns the index of the chain that runs next.
func (l *Loop) Current() int {
	return l.current
}

// Chain returns the chain at index i.
func (l *Loop) Chain(i int) *TimeSlotChain {
	return &l.chains[i]
}

// Clock returns the clock of the loop.
func (l *Loop) Clock() timing.Clock {
	return l.clock
}

// Logger returns the logger of the loop.
func (l *Loop) Logger() logging.Logger {
	return l.logger
}

// PanicPolicy returns how task panics are handled.
func (l *Loop) PanicPolicy() PanicPolicy {
	return l.policy
}

// LastTick returns the tick read by the most recent Run call, or 0 before
// the first one.
func (l *Loop) LastTick() timing.Tick {
	return l.lastTick
}

// Run reads the clock once, gives the current chain a turn, and moves the
// cursor to the next chain whatever the result, including a propagated task
// panic. It panics if no chain has
// been attached.
func (l *Loop) Run() bool {
	if len(l.chains) == 0 {
		panic("loop has no chain attached")
	}

	now := l.clock.Now()
	l.lastTick = now

	chainIndex := l.current
	defer func() {
		l.current = (chainIndex + 1) % len(l.chains)
	}()

	return l.chains[chainIndex].Run(now, l.env(chainIndex))
}

func (l *Loop) env(chainIndex int) Env {
	return Env{
		Clock:  l.clock,
		Logger: l.logger,
		Policy: l.policy,
		Hooks:  l,
		IDs:    l.ids,
		Where:  hooking.Location{Chain: chainIndex},
	}
}

// Close releases every chain.
func (l *Loop) Close() error {
	var err error
	for i := range l.chains {
		err = errors.Join(err, l.chains[i].Close())
	}

	return err
}
