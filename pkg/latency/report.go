package latency

import (
	"time"
)

// Cause is the kind of event that started a measurement.
type Cause string

const (
	CauseCommand Cause = "command"
	CauseMotion  Cause = "motion"
)

// Source identifies where the display latency of a report came from.
type Source int

const (
	SourcePrimaryPlatformAPI Source = iota + 1
	SourceSecondaryPlatformAPI
	SourceManualFallback
)

func (s Source) String() string {
	switch s {
	case SourcePrimaryPlatformAPI:
		return "PrimaryPlatformAPI"
	case SourceSecondaryPlatformAPI:
		return "SecondaryPlatformAPI"
	case SourceManualFallback:
		return "ManualFallback"
	default:
		return "Unknown"
	}
}

// Report is the outcome of one measurement sequence. It is emitted once to
// the configured sinks and not kept afterwards.
type Report struct {
	TriggerID       string
	Cause           Cause
	TriggeredAt     time.Time
	RenderLatencyMs float64
	// DisplayLatencyMs is the hardware counter value, or the manual
	// estimate taken one frame after render completion.
	DisplayLatencyMs  float64
	HasDisplayLatency bool
	Source            Source
}

// Sink receives finished reports. Emit is called from measurement
// goroutines and must not block.
type Sink interface {
	Emit(report Report)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(report Report)

// Emit calls f(report).
func (f SinkFunc) Emit(report Report) {
	f(report)
}

// AbortReason says why a measurement ended without a report.
type AbortReason string

const (
	AbortRenderUnavailable AbortReason = "render_unavailable"
	AbortRenderLost        AbortReason = "render_lost"
	AbortFrameTimeout      AbortReason = "frame_timeout"
	AbortCancelled         AbortReason = "cancelled"
	AbortClockStopped      AbortReason = "clock_stopped"
)

// AbortSink is implemented by sinks that also track aborted measurements,
// whether they failed to start or were abandoned while waiting for a frame.
type AbortSink interface {
	Aborted(triggerID string, cause Cause, reason AbortReason)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
