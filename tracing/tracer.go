// Package tracing collects statistics and traces from task executions.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/mtloop/hooking"
)

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task hooking.TaskStart)
	EndTask(task hooking.TaskEnd)
}

// An AdvanceTracer also wants to know when chains move to their next slot.
type AdvanceTracer interface {
	Tracer
	AdvanceSlot(advance hooking.SlotAdvance)
}

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf("domain already has tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook is a hook that traces tasks
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hooking.HookPosTaskStart:
		h.t.StartTask(ctx.Item.(hooking.TaskStart))
	case hooking.HookPosTaskEnd:
		h.t.EndTask(ctx.Item.(hooking.TaskEnd))
	case hooking.HookPosSlotAdvance:
		if at, ok := h.t.(AdvanceTracer); ok {
			at.AdvanceSlot(ctx.Item.(hooking.SlotAdvance))
		}
	}
}

func accept(filter hooking.TaskFilter, task hooking.TaskStart) bool {
	return filter == nil || filter(task)
}
