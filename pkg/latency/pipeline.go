// Package latency measures the time from a trigger (an accepted scene
// command or detected viewpoint motion) to the frame that shows it.
//
// Each trigger runs its own sequence:
//
//	Triggered -> AwaitingFrame -> RenderMeasured -> DisplayMetricLookup -> Logged
//	                                                        |
//	                                                        +-> ManualFallback -> Logged
//
// Sequences are independent. Two triggers in the same tick produce two
// reports; nothing is merged or cancelled across sequences.
package latency

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/render"
)

// Backend is the render side of a measurement.
type Backend interface {
	// Available reports whether the render target exists.
	Available() bool
	// NextFrame registers for the next frame completion.
	NextFrame() <-chan render.Frame
	// PrimaryLatency and SecondaryLatency return a hardware display
	// latency in ms, or false when the platform does not support it.
	PrimaryLatency() (float64, bool)
	SecondaryLatency() (float64, bool)
}

// GPUTimer is implemented by backends that report per-frame GPU time.
type GPUTimer interface {
	GPUFrameTime() (float64, bool)
}

// Pipeline starts measurement sequences.
type Pipeline struct {
	backend      Backend
	logger       customlog.Logger
	sinks        []Sink
	now          func() time.Time
	frameTimeout atomic.Int64
	inFlight     atomic.Int64
	wg           sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used for trigger timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithSinks adds report sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithFrameTimeout bounds every frame wait. Zero waits indefinitely.
func WithFrameTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.frameTimeout.Store(int64(d))
	}
}

// NewPipeline creates a pipeline over backend.
func NewPipeline(backend Backend, logger customlog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend: backend,
		logger:  logger.WithCategory(customlog.CategoryLatency),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetFrameTimeout changes the bound on frame waits for sequences started
// afterwards. Zero waits indefinitely.
func (p *Pipeline) SetFrameTimeout(d time.Duration) {
	p.frameTimeout.Store(int64(d))
	p.logger.Infof("Frame wait timeout set to %s", d)
}

// FrameTimeout returns the current bound on frame waits.
func (p *Pipeline) FrameTimeout() time.Duration {
	return time.Duration(p.frameTimeout.Load())
}

// InFlight returns the number of sequences not yet finished.
func (p *Pipeline) InFlight() int64 {
	return p.inFlight.Load()
}

// Wait blocks until every started sequence has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

type sequence struct {
	id          string
	cause       Cause
	triggeredAt time.Time
	timeout     time.Duration
	logger      customlog.Logger
}

// Trigger captures the current time and starts a measurement sequence.
// The sequence waits for the first frame that completes after this call.
// It returns the trigger id, or "" if the render target is unavailable.
func (p *Pipeline) Trigger(ctx context.Context, cause Cause) string {
	seq := sequence{
		id:          uuid.NewString(),
		cause:       cause,
		triggeredAt: p.now(),
		timeout:     p.FrameTimeout(),
	}
	seq.logger = p.logger.WithField("trigger", seq.id).WithField("cause", string(cause))

	if p.backend == nil || !p.backend.Available() {
		seq.logger.Errorf("Render target unavailable, measurement aborted")
		p.abort(seq, AbortRenderUnavailable)
		return ""
	}

	// Register before returning so the rest of the current tick cannot
	// race past the frame boundary.
	first := p.backend.NextFrame()

	p.wg.Add(1)
	p.inFlight.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Add(-1)
		p.run(ctx, seq, first)
	}()

	seq.logger.Debugf("Measurement started")
	return seq.id
}

func (p *Pipeline) run(ctx context.Context, seq sequence, first <-chan render.Frame) {
	frame, ok := p.awaitFrame(ctx, seq, first)
	if !ok {
		return
	}

	report := Report{
		TriggerID:       seq.id,
		Cause:           seq.cause,
		TriggeredAt:     seq.triggeredAt,
		RenderLatencyMs: durationMs(frame.CompletedAt.Sub(seq.triggeredAt)),
	}
	seq.logger.Infof("Latency (trigger -> frame rendered): %.3f ms (frame %d)", report.RenderLatencyMs, frame.Index)

	if timer, ok := p.backend.(GPUTimer); ok {
		if gpu, ok := timer.GPUFrameTime(); ok {
			seq.logger.Infof("GPU frame time: %.3f ms", gpu)
		}
	}

	if v, ok := p.backend.PrimaryLatency(); ok {
		report.Source = SourcePrimaryPlatformAPI
		report.DisplayLatencyMs = v
		report.HasDisplayLatency = true
		seq.logger.Infof("Full motion-to-photon latency (primary platform counter): %.3f ms", v)
		p.emit(report)
		return
	}

	if v, ok := p.backend.SecondaryLatency(); ok {
		report.Source = SourceSecondaryPlatformAPI
		report.DisplayLatencyMs = v
		report.HasDisplayLatency = true
		seq.logger.Infof("Full motion-to-photon latency (secondary platform counter): %.3f ms", v)
		p.emit(report)
		return
	}

	seq.logger.Infof("No hardware latency counter available, using manual timing")

	if !p.backend.Available() {
		seq.logger.Errorf("Render target lost before fallback measurement, measurement aborted")
		p.abort(seq, AbortRenderLost)
		return
	}

	// The estimate is taken one frame boundary later than the render
	// measurement and so overstates motion-to-photon slightly.
	frame, ok = p.awaitFrame(ctx, seq, p.backend.NextFrame())
	if !ok {
		return
	}

	report.Source = SourceManualFallback
	report.DisplayLatencyMs = durationMs(frame.CompletedAt.Sub(seq.triggeredAt))
	report.HasDisplayLatency = true
	seq.logger.Infof("Estimated full motion-to-photon latency (fallback): %.3f ms", report.DisplayLatencyMs)
	p.emit(report)
}

func (p *Pipeline) awaitFrame(ctx context.Context, seq sequence, ch <-chan render.Frame) (render.Frame, bool) {
	var timeout <-chan time.Time
	if seq.timeout > 0 {
		timer := time.NewTimer(seq.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case frame, ok := <-ch:
		if !ok {
			seq.logger.Warnf("Frame clock stopped, measurement aborted")
			p.abort(seq, AbortClockStopped)
			return render.Frame{}, false
		}
		return frame, true
	case <-ctx.Done():
		seq.logger.Warnf("Measurement cancelled: %v", ctx.Err())
		p.abort(seq, AbortCancelled)
		return render.Frame{}, false
	case <-timeout:
		seq.logger.Warnf("No frame completed within %s, measurement aborted", seq.timeout)
		p.abort(seq, AbortFrameTimeout)
		return render.Frame{}, false
	}
}

func (p *Pipeline) emit(report Report) {
	for _, sink := range p.sinks {
		sink.Emit(report)
	}
}

func (p *Pipeline) abort(seq sequence, reason AbortReason) {
	for _, sink := range p.sinks {
		if a, ok := sink.(AbortSink); ok {
			a.Aborted(seq.id, seq.cause, reason)
		}
	}
}
