package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/mtloop/hooking"
)

type interval struct {
	start, end uint64
}

// BusyTimeTracer counts the ticks during which at least one traced task was
// running. Overlapping executions are counted once.
type BusyTimeTracer struct {
	filter   hooking.TaskFilter
	lock     sync.Mutex
	inflight map[string]uint64
	finished []interval
	busy     uint64
	horizon  uint64
}

// NewBusyTimeTracer creates a new BusyTimeTracer. A nil filter traces every
// task.
func NewBusyTimeTracer(filter hooking.TaskFilter) *BusyTimeTracer {
	return &BusyTimeTracer{
		filter:   filter,
		inflight: make(map[string]uint64),
	}
}

// BusyTicks returns the number of ticks covered by completed executions.
func (t *BusyTimeTracer) BusyTicks() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busy + coveredTicks(t.finished)
}

// StartTask records the task start tick.
func (t *BusyTimeTracer) StartTask(task hooking.TaskStart) {
	if !accept(t.filter, task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = task.Tick
	t.lock.Unlock()
}

// EndTask records the end of the task.
func (t *BusyTimeTracer) EndTask(task hooking.TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)

	t.finished = append(t.finished, interval{start: start, end: task.Stop})
	t.collapse()
}

// TerminateAllTasks ends all inflight tasks at the given tick.
func (t *BusyTimeTracer) TerminateAllTasks(now uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.inflight {
		t.finished = append(t.finished, interval{start: start, end: now})
		delete(t.inflight, id)
	}

	t.collapse()
}

// collapse merges the finished intervals and folds every merged block that
// ends no later than the earliest inflight start into the busy counter.
func (t *BusyTimeTracer) collapse() {
	limit, found := t.earliestInflight()

	var pending []interval

	for _, block := range merge(t.finished) {
		if found && block.end > limit {
			pending = append(pending, block)
			continue
		}

		t.busy += block.end - block.start
	}

	t.finished = pending
}

func (t *BusyTimeTracer) earliestInflight() (uint64, bool) {
	found := false

	var earliest uint64

	for _, start := range t.inflight {
		if !found || start < earliest {
			earliest = start
			found = true
		}
	}

	return earliest, found
}

func coveredTicks(intervals []interval) uint64 {
	var total uint64

	for _, block := range merge(intervals) {
		total += block.end - block.start
	}

	return total
}

func merge(intervals []interval) []interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	merged := []interval{sorted[0]}

	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.start <= last.end {
			if next.end > last.end {
				last.end = next.end
			}

			continue
		}

		merged = append(merged, next)
	}

	return merged
}
