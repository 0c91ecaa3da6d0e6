package driver

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/sarchlab/mtloop/config"
	"github.com/sarchlab/mtloop/datarecording"
	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/monitoring"
	"github.com/sarchlab/mtloop/sched"
	"github.com/sarchlab/mtloop/timing"
	"github.com/sarchlab/mtloop/tracing"
)

// Builder can be used to build a driver.
type Builder struct {
	loopFile *config.LoopFile
	registry *config.Registry
	clock    timing.Clock
	logger   logging.Logger
	verbose  bool

	recordOn   bool
	recordPath string

	monitorOn   bool
	monitorPort int
	openBrowser bool

	metrics *prometheus.Registry
	tracers []tracing.Tracer
	hooks   []hooking.Hook
}

// MakeBuilder creates a new builder that runs the demo loop on a counter
// clock, without recording, monitoring or logging.
func MakeBuilder() Builder {
	return Builder{
		loopFile: config.DefaultLoopFile(),
		registry: config.DefaultRegistry(),
		logger:   logging.Nop,
	}
}

// WithLoopFile sets the loop definition.
func (b Builder) WithLoopFile(lf *config.LoopFile) Builder {
	b.loopFile = lf
	return b
}

// WithRegistry sets where the task kinds of the loop file come from.
func (b Builder) WithRegistry(r *config.Registry) Builder {
	b.registry = r
	return b
}

// WithClock sets the clock. A counter clock is used if none is set.
func (b Builder) WithClock(c timing.Clock) Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger that tasks and the loop write to.
func (b Builder) WithLogger(l logging.Logger) Builder {
	b.logger = l
	return b
}

// WithVerbose logs every task start and completion.
func (b Builder) WithVerbose() Builder {
	b.verbose = true
	return b
}

// WithRecording records executions into path + ".sqlite3". An empty path
// picks a name from the driver ID.
func (b Builder) WithRecording(path string) Builder {
	b.recordOn = true
	b.recordPath = path

	return b
}

// WithMonitor starts a monitoring server on the port. Port 0 picks a free
// port.
func (b Builder) WithMonitor(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithBrowser opens the monitoring page in a browser.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithMetrics exports Prometheus metrics into the registry.
func (b Builder) WithMetrics(reg *prometheus.Registry) Builder {
	b.metrics = reg
	return b
}

// WithTracer adds a tracer to the loop.
func (b Builder) WithTracer(t tracing.Tracer) Builder {
	b.tracers = append(b.tracers, t)
	return b
}

// WithHook adds a hook to the loop.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

func (b Builder) parametersMustBeValid() error {
	var errs []error

	if b.loopFile == nil {
		errs = append(errs, errors.New("no loop file"))
	}

	if b.registry == nil {
		errs = append(errs, errors.New("no task registry"))
	}

	if b.openBrowser && !b.monitorOn {
		errs = append(errs,
			errors.New("browser cannot be opened when monitoring is disabled"))
	}

	return errors.Join(errs...)
}

// Build builds the driver.
func (b Builder) Build() (*Driver, error) {
	err := b.parametersMustBeValid()
	if err != nil {
		return nil, err
	}

	d := &Driver{
		id:    xid.New().String(),
		clock: b.clock,
	}

	if d.clock == nil {
		d.clock = timing.NewCounterClock()
	}

	d.loop, err = b.loopFile.Build(b.registry, d.clock, b.logger)
	if err != nil {
		return nil, fmt.Errorf("build loop: %w", err)
	}

	b.attachObservers(d)

	if b.monitorOn {
		err = b.startMonitor(d)
		if err != nil {
			return nil, errors.Join(err, d.Terminate())
		}
	}

	return d, nil
}

func (b Builder) attachObservers(d *Driver) {
	d.counts = tracing.NewCountTracer(nil)
	d.busy = tracing.NewBusyTimeTracer(nil)
	tracing.CollectTrace(d.loop, d.counts)
	tracing.CollectTrace(d.loop, d.busy)

	if b.verbose {
		d.loop.AcceptHook(sched.NewTaskLogger(b.logger, true))
	}

	if b.recordOn {
		path := b.recordPath
		if path == "" {
			path = "mtloop_" + d.id
		}

		d.recorder = datarecording.NewDataRecorder(path)
		d.dbTracer = tracing.NewDBTracer(d.recorder)
		tracing.CollectTrace(d.loop, d.dbTracer)
	}

	if b.metrics != nil {
		tracing.CollectTrace(d.loop, tracing.NewMetricsTracer(b.metrics))
	}

	for _, t := range b.tracers {
		tracing.CollectTrace(d.loop, t)
	}

	for _, h := range b.hooks {
		d.loop.AcceptHook(h)
	}
}

func (b Builder) startMonitor(d *Driver) error {
	d.monitor = monitoring.NewMonitor().
		WithPortNumber(b.monitorPort).
		WithBrowser(b.openBrowser)

	if b.metrics != nil {
		d.monitor.WithGatherer(b.metrics)
	}

	d.monitor.RegisterTarget(d)

	url, err := d.monitor.StartServer()
	if err != nil {
		return err
	}

	d.monitorURL = url

	return nil
}
