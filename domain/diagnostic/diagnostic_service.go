package diagnostic

import (
	"math"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/latencyprobe/pkg/latency"
)

// LatencyStats summarizes a stream of latency samples in ms
type LatencyStats struct {
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	LastMs float64 `json:"last_ms"`
}

func (s *LatencyStats) add(v float64) {
	if s.Count == 0 {
		s.MinMs = v
		s.MaxMs = v
	}
	s.Count++
	s.MeanMs += (v - s.MeanMs) / float64(s.Count)
	s.MinMs = math.Min(s.MinMs, v)
	s.MaxMs = math.Max(s.MaxMs, v)
	s.LastMs = v
}

// ProbeMetrics represents the aggregate state of the latency probe. Individual
// reports are not retained.
type ProbeMetrics struct {
	Timestamp       time.Time               `json:"timestamp"`
	StartedAt       time.Time               `json:"started_at"`
	Reports         int64                   `json:"reports"`
	ReportsByCause  map[string]int64        `json:"reports_by_cause"`
	RenderLatency   LatencyStats            `json:"render_latency"`
	DisplayLatency  map[string]LatencyStats `json:"display_latency"`
	Aborted         map[string]int64        `json:"aborted_by_reason"`
	LastReportAt    *time.Time              `json:"last_report_at,omitempty"`
	LastTriggerID   string                  `json:"last_trigger_id,omitempty"`
	InFlight        int64                   `json:"in_flight"`
	ReportQueue     int                     `json:"report_queue"`
	ReportQueueSize int                     `json:"report_queue_size"`
}

// DiagnosticService aggregates latency reports for the diagnostics API. It
// implements latency.Sink and latency.AbortSink.
type DiagnosticService struct {
	mu       sync.RWMutex
	metrics  ProbeMetrics
	now      func() time.Time
	inFlight func() int64
	queue    func() (int, int)
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService() *DiagnosticService {
	s := &DiagnosticService{now: time.Now}
	s.metrics = ProbeMetrics{
		StartedAt:      s.now(),
		ReportsByCause: make(map[string]int64),
		DisplayLatency: make(map[string]LatencyStats),
		Aborted:        make(map[string]int64),
	}
	return s
}

// SetInFlightFunc sets the source of the in-flight measurement count
func (s *DiagnosticService) SetInFlightFunc(f func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = f
}

// SetQueueFunc sets the source of report queue length and capacity
func (s *DiagnosticService) SetQueueFunc(f func() (int, int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = f
}

// Emit folds a finished report into the aggregates
func (s *DiagnosticService) Emit(r latency.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Reports++
	s.metrics.ReportsByCause[string(r.Cause)]++
	s.metrics.RenderLatency.add(r.RenderLatencyMs)
	if r.HasDisplayLatency {
		stats := s.metrics.DisplayLatency[r.Source.String()]
		stats.add(r.DisplayLatencyMs)
		s.metrics.DisplayLatency[r.Source.String()] = stats
	}
	at := s.now()
	s.metrics.LastReportAt = &at
	s.metrics.LastTriggerID = r.TriggerID
}

// Aborted counts a measurement that ended without a report
func (s *DiagnosticService) Aborted(_ string, _ latency.Cause, reason latency.AbortReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Aborted[string(reason)]++
}

// GetMetrics returns a copy of the current aggregates
func (s *DiagnosticService) GetMetrics() ProbeMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.metrics
	m.Timestamp = s.now()
	m.ReportsByCause = make(map[string]int64, len(s.metrics.ReportsByCause))
	for k, v := range s.metrics.ReportsByCause {
		m.ReportsByCause[k] = v
	}
	m.DisplayLatency = make(map[string]LatencyStats, len(s.metrics.DisplayLatency))
	for k, v := range s.metrics.DisplayLatency {
		m.DisplayLatency[k] = v
	}
	m.Aborted = make(map[string]int64, len(s.metrics.Aborted))
	for k, v := range s.metrics.Aborted {
		m.Aborted[k] = v
	}
	if s.inFlight != nil {
		m.InFlight = s.inFlight()
	}
	if s.queue != nil {
		m.ReportQueue, m.ReportQueueSize = s.queue()
	}
	return m
}

// GetMetricsHandler handles API requests for probe metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}
