// Package metrics exposes probe activity and latency reports as Prometheus
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/open-teleop/latencyprobe/pkg/latency"
)

// Command outcomes.
const (
	CommandAccepted = "accepted"
	CommandPartial  = "partial"
	CommandRejected = "rejected"
)

var (
	_ latency.Sink      = (*Collector)(nil)
	_ latency.AbortSink = (*Collector)(nil)
)

var latencyBuckets = []float64{2, 4, 8, 11, 14, 17, 22, 28, 35, 45, 60, 90, 150}

// Collector records probe metrics. It implements latency.Sink and
// latency.AbortSink.
type Collector struct {
	renderLatency  *prometheus.HistogramVec
	displayLatency *prometheus.HistogramVec
	reports        *prometheus.CounterVec
	commands       *prometheus.CounterVec
	motionTriggers prometheus.Counter
	aborted        *prometheus.CounterVec
	ticks          prometheus.Counter
}

// NewCollector registers the probe metrics with reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		renderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "latencyprobe_render_latency_ms",
			Help:    "Time from trigger to completion of the next rendered frame",
			Buckets: latencyBuckets,
		}, []string{"cause"}),
		displayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "latencyprobe_display_latency_ms",
			Help:    "Motion-to-photon latency by measurement source",
			Buckets: latencyBuckets,
		}, []string{"source"}),
		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latencyprobe_reports_total",
			Help: "Completed measurement sequences",
		}, []string{"cause", "source"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latencyprobe_commands_total",
			Help: "Scene commands by outcome",
		}, []string{"result"}),
		motionTriggers: factory.NewCounter(prometheus.CounterOpts{
			Name: "latencyprobe_motion_triggers_total",
			Help: "Viewpoint movements that started a measurement",
		}),
		aborted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "latencyprobe_measurements_aborted_total",
			Help: "Measurements that ended without a report, by cause and reason",
		}, []string{"cause", "reason"}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "latencyprobe_ticks_total",
			Help: "Probe ticks executed",
		}),
	}
}

// Emit records a finished report.
func (c *Collector) Emit(r latency.Report) {
	cause := string(r.Cause)
	c.renderLatency.WithLabelValues(cause).Observe(r.RenderLatencyMs)
	if r.HasDisplayLatency {
		c.displayLatency.WithLabelValues(r.Source.String()).Observe(r.DisplayLatencyMs)
	}
	c.reports.WithLabelValues(cause, r.Source.String()).Inc()
}

// CommandApplied records a command outcome.
func (c *Collector) CommandApplied(result string) {
	c.commands.WithLabelValues(result).Inc()
}

// MotionTriggered records a detected viewpoint movement.
func (c *Collector) MotionTriggered() {
	c.motionTriggers.Inc()
}

// Aborted records a measurement that ended without a report. It
// implements latency.AbortSink.
func (c *Collector) Aborted(_ string, cause latency.Cause, reason latency.AbortReason) {
	c.aborted.WithLabelValues(string(cause), string(reason)).Inc()
}

// Tick records one probe tick.
func (c *Collector) Tick() {
	c.ticks.Inc()
}
