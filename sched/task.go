package sched

import (
	"fmt"
	"io"

	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
)

// A Runnable is a unit of work with its own state. Run returns false when the
// runnable declines to run.
type Runnable interface {
	Run(logger logging.Logger) bool
}

// A Named object has a name.
type Named interface {
	Name() string
}

type taskKind int

const (
	kindNone taskKind = iota
	kindFunc
	kindProc
	kindBorrowed
	kindOwned
)

func (k taskKind) String() string {
	switch k {
	case kindFunc:
		return "func"
	case kindProc:
		return "proc"
	case kindBorrowed:
		return "runnable"
	case kindOwned:
		return "owned"
	default:
		return "none"
	}
}

// ownedRunnable is shared by every copy of an owned task adapter. The
// runnable is closed when the last copy is closed, and never twice.
type ownedRunnable struct {
	r      Runnable
	refs   int
	closed bool
}

// TaskAdapter wraps one of four shapes of work behind a single Execute
// operation and keeps the statistics of the most recent execution.
//
// The zero value is not usable; build adapters with FuncTask, ProcTask,
// RunnableTask or OwnedTask.
type TaskAdapter struct {
	kind     taskKind
	name     string
	fn       func() bool
	proc     func()
	runnable Runnable
	owned    *ownedRunnable

	lastStart timing.Tick
	lastStop  timing.Tick
	runs      uint64
	declines  uint64
	panics    uint64
}

// TaskOption configures a TaskAdapter.
type TaskOption func(t *TaskAdapter)

// WithName sets the name that hooks and logs use for the task.
func WithName(name string) TaskOption {
	return func(t *TaskAdapter) {
		t.name = name
	}
}

// FuncTask wraps a function that reports whether it ran.
func FuncTask(fn func() bool, opts ...TaskOption) TaskAdapter {
	if fn == nil {
		panic("task function must not be nil")
	}

	return newTaskAdapter(TaskAdapter{kind: kindFunc, fn: fn}, opts)
}

// ProcTask wraps a function that always counts as successful.
func ProcTask(proc func(), opts ...TaskOption) TaskAdapter {
	if proc == nil {
		panic("task function must not be nil")
	}

	return newTaskAdapter(TaskAdapter{kind: kindProc, proc: proc}, opts)
}

// RunnableTask wraps a runnable whose lifetime is managed elsewhere.
func RunnableTask(r Runnable, opts ...TaskOption) TaskAdapter {
	if r == nil {
		panic("runnable must not be nil")
	}

	return newTaskAdapter(TaskAdapter{kind: kindBorrowed, runnable: r}, opts)
}

// OwnedTask takes over a runnable. If the runnable is an io.Closer, it is
// closed when the last adapter referring to it is closed.
//
// The returned value holds one reference. Use Clone to hand the task to more
// than one owner; plain copies share that single reference, and the first
// of them to close releases the runnable.
func OwnedTask(r Runnable, opts ...TaskOption) TaskAdapter {
	if r == nil {
		panic("runnable must not be nil")
	}

	t := TaskAdapter{
		kind:  kindOwned,
		owned: &ownedRunnable{r: r, refs: 1},
	}

	return newTaskAdapter(t, opts)
}

func newTaskAdapter(t TaskAdapter, opts []TaskOption) TaskAdapter {
	t.name = defaultTaskName(t)

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

func defaultTaskName(t TaskAdapter) string {
	var r Runnable

	switch t.kind {
	case kindBorrowed:
		r = t.runnable
	case kindOwned:
		r = t.owned.r
	}

	if named, ok := r.(Named); ok && named.Name() != "" {
		return named.Name()
	}

	return t.kind.String() + "-task"
}

// Name returns the name of the task.
func (t *TaskAdapter) Name() string {
	return t.name
}

// Kind returns the shape of the wrapped work: func, proc, runnable or owned.
func (t *TaskAdapter) Kind() string {
	return t.kind.String()
}

// LastStart returns the tick at which the last counted execution started, or
// 0 if the task has never run.
func (t *TaskAdapter) LastStart() timing.Tick {
	return t.lastStart
}

// LastStop returns the tick at which the last counted execution stopped, or
// 0 if the task has never run.
func (t *TaskAdapter) LastStop() timing.Tick {
	return t.lastStop
}

// Runs returns the number of successful executions.
func (t *TaskAdapter) Runs() uint64 {
	return t.runs
}

// Declines returns the number of times the task declined to run.
func (t *TaskAdapter) Declines() uint64 {
	return t.declines
}

// Panics returns the number of executions that panicked.
func (t *TaskAdapter) Panics() uint64 {
	return t.panics
}

// Execute runs the wrapped work and records the ticks before and after it.
//
// A declined run (false) leaves the previous statistics untouched, so the
// owning slot stays pending and retries on its next poll. A panicking run
// keeps its statistics and returns false; with PanicPropagate the panic is
// raised again after the statistics are recorded.
func (t *TaskAdapter) Execute(env Env) bool {
	if t.kind == kindNone {
		panic("task adapter is empty")
	}

	if t.kind == kindOwned && (t.owned == nil || t.owned.closed) {
		panic("task adapter is closed")
	}

	prevStart, prevStop := t.lastStart, t.lastStop
	execID := env.newID()

	t.lastStart = env.now()
	env.invoke(hooking.HookPosTaskStart, hooking.TaskStart{
		ID:    execID,
		Task:  t.name,
		Where: env.Where,
		Tick:  t.lastStart,
	})

	ok, panicked, panicValue := t.call(env.logger())

	t.lastStop = env.now()
	end := hooking.TaskEnd{
		ID:       execID,
		Task:     t.name,
		Where:    env.Where,
		Start:    t.lastStart,
		Stop:     t.lastStop,
		Success:  ok,
		Panicked: panicked,
	}

	switch {
	case panicked:
		t.panics++
		t.reportPanic(env, execID, panicValue)
		env.invoke(hooking.HookPosTaskEnd, end)

		if env.Policy == PanicPropagate {
			panic(panicValue)
		}

		return false
	case !ok:
		t.declines++
		t.lastStart, t.lastStop = prevStart, prevStop
		end.Declined = true
		env.invoke(hooking.HookPosTaskDeclined, end)
		env.invoke(hooking.HookPosTaskEnd, end)

		return false
	}

	t.runs++
	env.invoke(hooking.HookPosTaskEnd, end)

	return true
}

func (t *TaskAdapter) call(logger logging.Logger) (
	ok bool,
	panicked bool,
	panicValue any,
) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			panicked = true
			panicValue = r
		}
	}()

	switch t.kind {
	case kindFunc:
		ok = t.fn()
	case kindProc:
		t.proc()
		ok = true
	case kindBorrowed:
		ok = t.runnable.Run(logger)
	case kindOwned:
		ok = t.owned.r.Run(logger)
	}

	return ok, false, nil
}

func (t *TaskAdapter) reportPanic(env Env, execID string, value any) {
	env.logger().Log(fmt.Sprintf(
		"task %s panicked at tick %d (chain %d, slot %d): %v",
		t.name, t.lastStart, env.Where.Chain, env.Where.Slot, value))

	env.invoke(hooking.HookPosTaskPanic, hooking.TaskPanic{
		ID:    execID,
		Task:  t.name,
		Where: env.Where,
		Value: value,
	})
}

// Clone returns an independent copy of the adapter. The copy starts with the
// same statistics but never shares them. Owned runnables are shared by
// reference, not rebuilt.
func (t *TaskAdapter) Clone() TaskAdapter {
	c := *t
	if c.owned != nil {
		c.owned.refs++
	}

	return c
}

// Close releases the adapter. An owned runnable is closed when its last
// adapter is closed. Closing other kinds of adapters does nothing.
func (t *TaskAdapter) Close() error {
	if t.kind != kindOwned || t.owned == nil {
		return nil
	}

	o := t.owned
	t.owned = nil

	if o.closed {
		return nil
	}

	o.refs--
	if o.refs > 0 {
		return nil
	}

	o.closed = true

	if closer, ok := o.r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
