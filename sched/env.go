// Package sched implements a cooperative, single-threaded time-slot
// scheduler.
//
// A Loop owns a fixed number of TimeSlotChains and gives one of them a turn
// on every Run call. A chain is a circular list of TimeSlots. A slot runs its
// task at most once per window, and the chain moves to the next slot only
// after the current slot has run. The next window starts one tick after the
// effective right edge of the previous one, so a task that overruns its
// nominal duration pushes the whole chain back instead of being cut off.
//
// Nothing in this package blocks or locks. Callers that poll from more than
// one goroutine must serialize the calls themselves.
package sched

import (
	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/id"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
)

// PanicPolicy decides what happens when a task panics.
type PanicPolicy int

const (
	// PanicCapture recovers the panic, reports it, and counts the task as
	// run but failed.
	PanicCapture PanicPolicy = iota

	// PanicPropagate records the execution and then re-panics.
	PanicPropagate
)

func (p PanicPolicy) String() string {
	switch p {
	case PanicCapture:
		return "capture"
	case PanicPropagate:
		return "propagate"
	default:
		return "unknown"
	}
}

// Env carries what a slot needs from its owner while running a task.
type Env struct {
	Clock  timing.Clock
	Logger logging.Logger
	Policy PanicPolicy
	Hooks  hooking.Invoker
	IDs    id.IDGenerator
	Where  hooking.Location
}

// NewEnv creates an Env with the given clock and logger and no hooks.
func NewEnv(clock timing.Clock, logger logging.Logger) Env {
	return Env{
		Clock:  clock,
		Logger: logging.Safe(logger),
	}
}

func (e Env) now() timing.Tick {
	if e.Clock == nil {
		panic("env has no clock")
	}

	return e.Clock.Now()
}

func (e Env) logger() logging.Logger {
	if e.Logger == nil {
		return logging.Nop
	}

	return e.Logger
}

func (e Env) newID() string {
	if e.IDs == nil {
		return ""
	}

	return e.IDs.Generate()
}

func (e Env) invoke(pos *hooking.HookPos, item any) {
	if e.Hooks == nil || e.Hooks.NumHooks() == 0 {
		return
	}

	e.Hooks.InvokeHook(hooking.HookCtx{
		Domain: e.Hooks,
		Pos:    pos,
		Item:   item,
	})
}
