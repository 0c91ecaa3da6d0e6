package config

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/sched"
	"github.com/sarchlab/mtloop/timing"
)

// Deps are what task factories may use.
type Deps struct {
	Clock  timing.Clock
	Logger logging.Logger
}

// A Factory builds the task of a slot.
type Factory func(spec SlotSpec, deps Deps) (sched.TaskAdapter, error)

// Registry maps task kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in task kinds.
//
//   - log: logs params.message, or "<name> IS RUN".
//   - noop: does nothing.
//   - busy: reads the clock until params.ticks (default 1) ticks passed.
//   - flaky: declines params.declines (default 1) times, then succeeds once.
//   - fail: always declines.
//   - panic: panics with params.message.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("log", newLogTask)
	r.Register("noop", newNoopTask)
	r.Register("busy", newBusyTask)
	r.Register("flaky", newFlakyTask)
	r.Register("fail", newFailTask)
	r.Register("panic", newPanicTask)

	return r
}

// Register adds a factory. Registering a kind twice panics.
func (r *Registry) Register(kind string, f Factory) {
	if _, found := r.factories[kind]; found {
		panic(fmt.Sprintf("task kind %s already registered", kind))
	}

	r.factories[kind] = f
}

// Kinds returns the registered kinds in alphabetical order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

// Build creates the task of a slot.
func (r *Registry) Build(spec SlotSpec, deps Deps) (sched.TaskAdapter, error) {
	f, found := r.factories[spec.Task]
	if !found {
		return sched.TaskAdapter{}, fmt.Errorf("unknown task kind %q", spec.Task)
	}

	return f(spec, deps)
}

func taskName(spec SlotSpec) string {
	if spec.Name != "" {
		return spec.Name
	}

	return spec.Task
}

func uintParam(spec SlotSpec, key string, def uint64) (uint64, error) {
	v, found := spec.Params[key]
	if !found {
		return def, nil
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}

	return n, nil
}

// messageTask logs a message every time it runs.
type messageTask struct {
	name    string
	message string
}

func (t *messageTask) Name() string {
	return t.name
}

func (t *messageTask) Run(logger logging.Logger) bool {
	logger.Log(t.message)
	return true
}

func newLogTask(spec SlotSpec, _ Deps) (sched.TaskAdapter, error) {
	name := taskName(spec)

	msg, found := spec.Params["message"]
	if !found {
		msg = name + " IS RUN"
	}

	return sched.OwnedTask(&messageTask{name: name, message: msg}), nil
}

func newNoopTask(spec SlotSpec, _ Deps) (sched.TaskAdapter, error) {
	return sched.ProcTask(func() {}, sched.WithName(taskName(spec))), nil
}

func newBusyTask(spec SlotSpec, deps Deps) (sched.TaskAdapter, error) {
	ticks, err := uintParam(spec, "ticks", 1)
	if err != nil {
		return sched.TaskAdapter{}, err
	}

	clock := deps.Clock

	return sched.ProcTask(func() {
		start := clock.Now()
		for clock.Now()-start < ticks {
		}
	}, sched.WithName(taskName(spec))), nil
}

func newFlakyTask(spec SlotSpec, _ Deps) (sched.TaskAdapter, error) {
	declines, err := uintParam(spec, "declines", 1)
	if err != nil {
		return sched.TaskAdapter{}, err
	}

	var attempts uint64

	return sched.FuncTask(func() bool {
		if attempts < declines {
			attempts++
			return false
		}

		attempts = 0

		return true
	}, sched.WithName(taskName(spec))), nil
}

func newFailTask(spec SlotSpec, _ Deps) (sched.TaskAdapter, error) {
	return sched.FuncTask(func() bool { return false },
		sched.WithName(taskName(spec))), nil
}

func newPanicTask(spec SlotSpec, _ Deps) (sched.TaskAdapter, error) {
	msg, found := spec.Params["message"]
	if !found {
		msg = taskName(spec) + " failed"
	}

	return sched.ProcTask(func() { panic(msg) },
		sched.WithName(taskName(spec))), nil
}
