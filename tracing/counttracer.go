package tracing

import (
	"sync"

	"github.com/sarchlab/mtloop/hooking"
)

// Outcome counts of a task.
type Outcome struct {
	Runs     uint64 `json:"runs"`
	Declines uint64 `json:"declines"`
	Panics   uint64 `json:"panics"`
}

// CountTracer counts how often each named task completed, declined and
// panicked.
type CountTracer struct {
	filter    hooking.TaskFilter
	lock      sync.Mutex
	traced    map[string]bool
	taskNames []string
	counts    map[string]*Outcome
	advances  map[int]uint64
}

// NewCountTracer creates a new CountTracer. A nil filter counts every task.
func NewCountTracer(filter hooking.TaskFilter) *CountTracer {
	return &CountTracer{
		filter:   filter,
		traced:   make(map[string]bool),
		counts:   make(map[string]*Outcome),
		advances: make(map[int]uint64),
	}
}

// TaskNames returns the names of the tasks seen, in order of first appearance.
func (t *CountTracer) TaskNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.taskNames))
	copy(names, t.taskNames)

	return names
}

// Count returns the outcome counts of a task.
func (t *CountTracer) Count(taskName string) Outcome {
	t.lock.Lock()
	defer t.lock.Unlock()

	if c, ok := t.counts[taskName]; ok {
		return *c
	}

	return Outcome{}
}

// Advances returns how many times a chain moved to its next slot.
func (t *CountTracer) Advances(chain int) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.advances[chain]
}

// StartTask remembers the tasks that pass the filter.
func (t *CountTracer) StartTask(task hooking.TaskStart) {
	if !accept(t.filter, task) {
		return
	}

	t.lock.Lock()
	t.traced[task.ID] = true
	t.lock.Unlock()
}

// EndTask counts the outcome of the task.
func (t *CountTracer) EndTask(task hooking.TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.traced[task.ID] {
		return
	}

	delete(t.traced, task.ID)

	c, ok := t.counts[task.Task]
	if !ok {
		c = &Outcome{}
		t.counts[task.Task] = c
		t.taskNames = append(t.taskNames, task.Task)
	}

	switch {
	case task.Panicked:
		c.Panics++
	case task.Declined:
		c.Declines++
	default:
		c.Runs++
	}
}

// AdvanceSlot counts chain advances.
func (t *CountTracer) AdvanceSlot(advance hooking.SlotAdvance) {
	t.lock.Lock()
	t.advances[advance.Chain]++
	t.lock.Unlock()
}
