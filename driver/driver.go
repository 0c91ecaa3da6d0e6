// Package driver polls a loop from a goroutine and connects it to recording,
// tracing and monitoring.
package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sarchlab/mtloop/datarecording"
	"github.com/sarchlab/mtloop/monitoring"
	"github.com/sarchlab/mtloop/sched"
	"github.com/sarchlab/mtloop/timing"
	"github.com/sarchlab/mtloop/tracing"
)

// A Driver owns a loop and everything that observes it. Step, Snapshot and
// InspectSlot are serialized, so the monitor can read the loop while Run
// polls it.
type Driver struct {
	id    string
	clock timing.Clock

	mu    sync.Mutex
	loop  *sched.Loop
	polls uint64

	pauseLock sync.Mutex
	resume    chan struct{}

	recorder   datarecording.DataRecorder
	dbTracer   *tracing.DBTracer
	counts     *tracing.CountTracer
	busy       *tracing.BusyTimeTracer
	monitor    *monitoring.Monitor
	monitorURL string

	terminated bool
}

// ID returns the unique ID of the driver.
func (d *Driver) ID() string {
	return d.id
}

// Loop returns the loop. Callers must not use it while Run is active.
func (d *Driver) Loop() *sched.Loop {
	return d.loop
}

// Clock returns the clock of the loop.
func (d *Driver) Clock() timing.Clock {
	return d.clock
}

// Counts returns the per-task outcome counters.
func (d *Driver) Counts() *tracing.CountTracer {
	return d.counts
}

// BusyTicks returns the ticks spent inside tasks.
func (d *Driver) BusyTicks() uint64 {
	return d.busy.BusyTicks()
}

// Recorder returns the data recorder, or nil when recording is off.
func (d *Driver) Recorder() datarecording.DataRecorder {
	return d.recorder
}

// MonitorURL returns the address of the monitoring server, or "" when
// monitoring is off.
func (d *Driver) MonitorURL() string {
	return d.monitorURL
}

// Polls returns how many times the loop was polled.
func (d *Driver) Polls() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.polls
}

// Step polls the loop once.
func (d *Driver) Step() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.polls++

	return d.loop.Run()
}

// Run polls the loop until steps polls were made or ctx is done. Zero steps
// means no limit. While paused, Run waits without polling.
func (d *Driver) Run(ctx context.Context, steps uint64) error {
	var bar *monitoring.ProgressBar
	if d.monitor != nil && steps > 0 {
		bar = d.monitor.CreateProgressBar("Polls", steps)
		defer d.monitor.CompleteProgressBar(bar)
	}

	for i := uint64(0); steps == 0 || i < steps; {
		err := ctx.Err()
		if err != nil {
			return err
		}

		if resume := d.pausedChan(); resume != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-resume:
			}

			continue
		}

		d.Step()
		i++

		if bar != nil {
			bar.IncrementFinished(1)
		}
	}

	return nil
}

// Pause stops Run from polling until Continue is called.
func (d *Driver) Pause() {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	if d.resume == nil {
		d.resume = make(chan struct{})
	}
}

// Continue resumes a paused Run.
func (d *Driver) Continue() {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	if d.resume != nil {
		close(d.resume)
		d.resume = nil
	}
}

// Paused tells whether the driver is paused.
func (d *Driver) Paused() bool {
	return d.pausedChan() != nil
}

func (d *Driver) pausedChan() chan struct{} {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	return d.resume
}

// Snapshot returns the state of the loop at the last poll.
func (d *Driver) Snapshot() sched.LoopState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.loop.Snapshot()
}

// InspectSlot calls fn with a slot while no poll is running.
func (d *Driver) InspectSlot(chain, slot int, fn func(s *sched.TimeSlot)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if chain < 0 || chain >= d.loop.Size() {
		return false
	}

	c := d.loop.Chain(chain)
	if slot < 0 || slot >= c.Size() {
		return false
	}

	fn(c.Slot(slot))

	return true
}

// Terminate stops the monitor, flushes the recording and releases the loop.
func (d *Driver) Terminate() error {
	d.mu.Lock()
	if d.terminated {
		d.mu.Unlock()
		return nil
	}

	d.terminated = true
	d.mu.Unlock()

	var errs []error

	// The monitor handlers take d.mu, so the server must stop first.
	if d.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, d.monitor.StopServer(ctx))
		cancel()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.busy.TerminateAllTasks(d.loop.LastTick())

	if d.dbTracer != nil {
		d.dbTracer.Terminate()
	}

	if d.recorder != nil {
		errs = append(errs, d.recorder.Close())
	}

	errs = append(errs, d.loop.Close())

	return errors.Join(errs...)
}
