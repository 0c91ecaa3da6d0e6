package sched

import (
	"fmt"

	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/logging"
)

// TaskLogger is a hook that writes task and slot events into a logger.
type TaskLogger struct {
	logger  logging.Logger
	verbose bool
}

// NewTaskLogger returns a hook that logs task completions, declines and slot
// advances. With verbose set, task starts are logged too.
func NewTaskLogger(logger logging.Logger, verbose bool) *TaskLogger {
	return &TaskLogger{
		logger:  logging.Safe(logger),
		verbose: verbose,
	}
}

// Func writes the event into the logger.
func (h *TaskLogger) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case hooking.TaskStart:
		if h.verbose && ctx.Pos == hooking.HookPosTaskStart {
			h.logger.Log(fmt.Sprintf("%d: chain %d slot %d: %s started",
				item.Tick, item.Where.Chain, item.Where.Slot, item.Task))
		}
	case hooking.TaskEnd:
		if ctx.Pos != hooking.HookPosTaskEnd {
			return
		}

		h.logger.Log(fmt.Sprintf("%d: chain %d slot %d: %s %s after %d ticks",
			item.Stop, item.Where.Chain, item.Where.Slot, item.Task,
			outcome(item), item.Duration()))
	case hooking.SlotAdvance:
		h.logger.Log(fmt.Sprintf(
			"chain %d: slot %d -> %d, closed at %d, next opens at %d",
			item.Chain, item.From, item.To, item.RightEdge, item.NewStart))
	}
}

func outcome(e hooking.TaskEnd) string {
	switch {
	case e.Panicked:
		return "panicked"
	case e.Declined:
		return "declined"
	default:
		return "completed"
	}
}
