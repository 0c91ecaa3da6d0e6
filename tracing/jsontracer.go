package tracing

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sarchlab/mtloop/hooking"
)

// JSONTracer writes finished task executions as a JSON array.
type JSONTracer struct {
	w         io.Writer
	lock      sync.Mutex
	firstTask bool
	closed    bool
}

// NewJSONTracer creates a new JSONTracer that writes into w. Close must be
// called to terminate the array.
func NewJSONTracer(w io.Writer) *JSONTracer {
	_, err := w.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	return &JSONTracer{
		w:         w,
		firstTask: true,
	}
}

// StartTask does nothing. Every TaskEnd carries its start tick.
func (t *JSONTracer) StartTask(_ hooking.TaskStart) {
	// Do nothing
}

// EndTask writes the execution.
func (t *JSONTracer) EndTask(task hooking.TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return
	}

	b, err := json.Marshal(task)
	if err != nil {
		panic(err)
	}

	if !t.firstTask {
		b = append([]byte(",\n"), b...)
	}

	t.firstTask = false

	_, err = t.w.Write(b)
	if err != nil {
		panic(err)
	}
}

// Close terminates the JSON array.
func (t *JSONTracer) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	_, err := t.w.Write([]byte("\n]\n"))

	return err
}
