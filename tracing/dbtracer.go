package tracing

import (
	"sync"

	"github.com/sarchlab/mtloop/datarecording"
	"github.com/sarchlab/mtloop/hooking"
	"github.com/tebeka/atexit"
)

// Table names used by the DBTracer.
const (
	ExecutionTable = "mtloop_execution"
	AdvanceTable   = "mtloop_advance"
)

// ExecutionEntry is a row of the execution table.
type ExecutionEntry struct {
	ID       string
	Task     string
	Chain    int
	Slot     int
	Start    uint64
	Stop     uint64
	Success  bool
	Declined bool
	Panicked bool
}

// AdvanceEntry is a row of the advance table.
type AdvanceEntry struct {
	Chain     int
	FromSlot  int
	ToSlot    int
	RightEdge uint64
	NewStart  uint64
}

// DBTracer is a tracer that stores task executions and slot advances into a
// DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime, endTime uint64

	tracingTasks map[string]hooking.TaskStart
	terminated   bool
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(ExecutionTable, ExecutionEntry{})
	dataRecorder.CreateTable(AdvanceTable, AdvanceEntry{})

	t := &DBTracer{
		backend:      dataRecorder,
		tracingTasks: make(map[string]hooking.TaskStart),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits tracing to the tasks that overlap [startTime, endTime].
// A zero bound is open.
func (t *DBTracer) SetTimeRange(startTime, endTime uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task hooking.TaskStart) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.ID == "" {
		panic("task ID must be set")
	}

	if t.endTime > 0 && task.Tick > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

// EndTask writes the execution.
func (t *DBTracer) EndTask(task hooking.TaskEnd) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tracingTasks[task.ID]; !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	if t.terminated || (t.startTime > 0 && task.Stop < t.startTime) {
		return
	}

	t.backend.InsertData(ExecutionTable, ExecutionEntry{
		ID:       task.ID,
		Task:     task.Task,
		Chain:    task.Where.Chain,
		Slot:     task.Where.Slot,
		Start:    task.Start,
		Stop:     task.Stop,
		Success:  task.Success,
		Declined: task.Declined,
		Panicked: task.Panicked,
	})
}

// AdvanceSlot writes the slot advance.
func (t *DBTracer) AdvanceSlot(advance hooking.SlotAdvance) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated || !t.inRange(advance.RightEdge) {
		return
	}

	t.backend.InsertData(AdvanceTable, AdvanceEntry{
		Chain:     advance.Chain,
		FromSlot:  advance.From,
		ToSlot:    advance.To,
		RightEdge: advance.RightEdge,
		NewStart:  advance.NewStart,
	})
}

func (t *DBTracer) inRange(tick uint64) bool {
	if t.startTime > 0 && tick < t.startTime {
		return false
	}

	if t.endTime > 0 && tick > t.endTime {
		return false
	}

	return true
}

// Terminate stops tracing and flushes the backend. Unfinished tasks are not
// written.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true
	t.tracingTasks = make(map[string]hooking.TaskStart)
	t.backend.Flush()
}
