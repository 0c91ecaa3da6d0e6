package tracing

import (
	"sync"

	"github.com/sarchlab/mtloop/hooking"
)

// AverageTimeTracer computes the average number of ticks a kind of task takes.
// Declined executions are not counted.
type AverageTimeTracer struct {
	filter        hooking.TaskFilter
	lock          sync.Mutex
	averageTime   float64
	inflightTasks map[string]hooking.TaskStart
	taskCount     uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer
func NewAverageTimeTracer(filter hooking.TaskFilter) *AverageTimeTracer {
	return &AverageTimeTracer{
		filter:        filter,
		inflightTasks: make(map[string]hooking.TaskStart),
	}
}

// AverageTicks returns the average duration of the traced tasks.
func (t *AverageTimeTracer) AverageTicks() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageTime
}

// TotalCount returns the total number of tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start time
func (t *AverageTimeTracer) StartTask(task hooking.TaskStart) {
	if !accept(t.filter, task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *AverageTimeTracer) EndTask(task hooking.TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; !ok {
		return
	}

	delete(t.inflightTasks, task.ID)

	if task.Declined {
		return
	}

	t.averageTime = (t.averageTime*float64(t.taskCount) +
		float64(task.Duration())) / float64(t.taskCount+1)
	t.taskCount++
}
