package tracing

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/mtloop/hooking"
)

// MetricsTracer exports task executions as Prometheus metrics.
type MetricsTracer struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	advances   *prometheus.CounterVec
	lastEdge   *prometheus.GaugeVec
}

// NewMetricsTracer creates the metrics and registers them with reg.
func NewMetricsTracer(reg prometheus.Registerer) *MetricsTracer {
	t := &MetricsTracer{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mtloop",
			Name:      "task_executions_total",
			Help:      "Task executions by task name and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mtloop",
			Name:      "task_duration_ticks",
			Help:      "Ticks spent inside a task.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"task"}),
		advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mtloop",
			Name:      "slot_advances_total",
			Help:      "Slot advances by chain.",
		}, []string{"chain"}),
		lastEdge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mtloop",
			Name:      "slot_right_edge_tick",
			Help:      "Right edge of the last closed slot of each chain.",
		}, []string{"chain"}),
	}

	reg.MustRegister(t.executions, t.duration, t.advances, t.lastEdge)

	return t
}

// StartTask does nothing.
func (t *MetricsTracer) StartTask(_ hooking.TaskStart) {
	// Do nothing
}

// EndTask counts the execution and observes its duration.
func (t *MetricsTracer) EndTask(task hooking.TaskEnd) {
	t.executions.WithLabelValues(task.Task, outcomeLabel(task)).Inc()

	if !task.Declined {
		t.duration.WithLabelValues(task.Task).
			Observe(float64(task.Duration()))
	}
}

// AdvanceSlot counts the advance and records the closed edge.
func (t *MetricsTracer) AdvanceSlot(advance hooking.SlotAdvance) {
	chain := strconv.Itoa(advance.Chain)

	t.advances.WithLabelValues(chain).Inc()
	t.lastEdge.WithLabelValues(chain).Set(float64(advance.RightEdge))
}

func outcomeLabel(task hooking.TaskEnd) string {
	switch {
	case task.Panicked:
		return "panicked"
	case task.Declined:
		return "declined"
	default:
		return "completed"
	}
}
