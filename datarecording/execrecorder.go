package datarecording

import (
	"os"
	"strings"
	"time"
)

const execInfoTable = "exec_info"

// ExecInfo is one property of the recorded run.
type ExecInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		recorder: recorder,
	}

	e.recorder.CreateTable(execInfoTable, ExecInfo{})

	return e
}

// Start remembers the start time, the command and the working directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", now()},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the remembered entries and the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execInfoTable, entry)
	}

	e.recorder.InsertData(execInfoTable, ExecInfo{"End Time", now()})

	e.entries = nil
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
