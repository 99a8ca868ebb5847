// Package probe runs the per-frame work: command intake, motion detection
// and starting latency measurements.
package probe

import (
	"context"
	"time"

	"github.com/open-teleop/latencyprobe/pkg/command"
	"github.com/open-teleop/latencyprobe/pkg/latency"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/metrics"
	"github.com/open-teleop/latencyprobe/pkg/motion"
	"github.com/open-teleop/latencyprobe/pkg/render"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// CommandPoller yields a new raw command at most once per value.
type CommandPoller interface {
	Poll() (string, bool)
}

// CommandApplier decodes a raw command and applies it to the target.
type CommandApplier interface {
	Apply(raw string) (*command.SceneCommand, error)
}

// MotionChecker reports significant viewpoint movement.
type MotionChecker interface {
	Check() (motion.Movement, bool)
}

// Trigger starts a latency measurement and returns its id, or "" if none
// was started. Aborted measurements are reported by the pipeline itself.
type Trigger interface {
	Trigger(ctx context.Context, cause latency.Cause) string
}

// Observer receives per-tick counters. *metrics.Collector implements it.
type Observer interface {
	Tick()
	CommandApplied(result string)
	MotionTriggered()
}

var _ Observer = (*metrics.Collector)(nil)

// Probe wires the channel reader, applier and motion monitor to the
// latency pipeline.
type Probe struct {
	reader    CommandPoller
	applier   CommandApplier
	monitor   MotionChecker
	pipeline  Trigger
	viewpoint scene.Viewpoint
	target    scene.BoundsProvider
	observer  Observer
	logger    customlog.Logger
}

// Option configures a Probe
type Option func(*Probe)

// WithDiagnostics enables IMU and target corner logging on detected motion.
func WithDiagnostics(viewpoint scene.Viewpoint, target scene.BoundsProvider) Option {
	return func(p *Probe) {
		p.viewpoint = viewpoint
		p.target = target
	}
}

// WithObserver sets the counters updated on each tick.
func WithObserver(o Observer) Option {
	return func(p *Probe) {
		p.observer = o
	}
}

// NewProbe creates a probe. monitor may be nil when no viewpoint is tracked.
func NewProbe(reader CommandPoller, applier CommandApplier, monitor MotionChecker, pipeline Trigger, logger customlog.Logger, opts ...Option) *Probe {
	p := &Probe{
		reader:   reader,
		applier:  applier,
		monitor:  monitor,
		pipeline: pipeline,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tick runs one frame of work. The command channel is handled before the
// motion monitor, and each may start its own measurement. Nothing here
// fails the tick; errors are logged and the next tick proceeds.
func (p *Probe) Tick(ctx context.Context) {
	if p.observer != nil {
		p.observer.Tick()
	}

	if raw, ok := p.reader.Poll(); ok {
		// The trigger time is taken before the target changes.
		p.trigger(ctx, latency.CauseCommand)
		cmd, err := p.applier.Apply(raw)
		p.observeCommand(cmd, err)
	}

	if p.monitor == nil {
		return
	}
	mv, ok := p.monitor.Check()
	if !ok {
		return
	}

	motionLog := p.logger.WithCategory(customlog.CategoryMotion)
	motionLog.Infof("Significant viewpoint movement detected: position_delta=%.5f rotation_delta=%.4f",
		mv.PositionDelta, mv.RotationDeltaDeg)

	if p.observer != nil {
		p.observer.MotionTriggered()
	}
	p.trigger(ctx, latency.CauseMotion)
	p.logIMU(motionLog)
	p.logTargetCorners(motionLog, mv.Pose)
}

func (p *Probe) trigger(ctx context.Context, cause latency.Cause) {
	if id := p.pipeline.Trigger(ctx, cause); id != "" {
		p.logger.Debugf("Started %s measurement %s", cause, id)
	}
}

func (p *Probe) observeCommand(cmd *command.SceneCommand, err error) {
	if p.observer == nil {
		return
	}
	switch {
	case err != nil:
		p.observer.CommandApplied(metrics.CommandRejected)
	case len(cmd.Errors) > 0:
		p.observer.CommandApplied(metrics.CommandPartial)
	default:
		p.observer.CommandApplied(metrics.CommandAccepted)
	}
}

func (p *Probe) logIMU(logger customlog.Logger) {
	imu, ok := p.viewpoint.(scene.IMUReader)
	if !ok {
		return
	}
	if w, ok := imu.AngularVelocity(); ok {
		logger.Infof("Viewpoint angular velocity: %s", scene.FormatVec3(w))
	}
	if a, ok := imu.Acceleration(); ok {
		logger.Infof("Viewpoint acceleration: %s", scene.FormatVec3(a))
	}
}

func (p *Probe) logTargetCorners(logger customlog.Logger, pose scene.Pose) {
	if p.target == nil {
		return
	}
	min, max, ok := p.target.Bounds()
	if !ok {
		logger.Errorf("Target bounds unavailable, cannot log corners")
		return
	}

	logger.Infof("Target corners (relative to viewpoint):")
	for i, corner := range scene.BoxCorners(min, max) {
		logger.Infof("Corner %d: %s", i+1, scene.FormatVec3(scene.InverseTransformPoint(pose, corner)))
	}
}

// Loop drives a probe from a fixed-rate ticker and closes a frame on the
// clock after every tick.
type Loop struct {
	probe    *Probe
	clock    *render.FrameClock
	interval time.Duration
	logger   customlog.Logger
	now      func() time.Time
}

// NewLoop creates a loop ticking at frameRateHz. Non-positive rates fall
// back to 60 Hz.
func NewLoop(probe *Probe, clock *render.FrameClock, frameRateHz int, logger customlog.Logger) *Loop {
	if frameRateHz <= 0 {
		frameRateHz = 60
	}
	return &Loop{
		probe:    probe,
		clock:    clock,
		interval: time.Second / time.Duration(frameRateHz),
		logger:   logger.WithCategory(customlog.CategoryRender),
		now:      time.Now,
	}
}

// Interval returns the time between ticks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Step runs one tick and completes the frame.
func (l *Loop) Step(ctx context.Context) render.Frame {
	l.probe.Tick(ctx)
	return l.clock.EndFrame(l.now())
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Infof("Frame loop started at %v per frame", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Infof("Frame loop stopped after frame %d", l.clock.LastFrame().Index)
			return
		case <-ticker.C:
			l.Step(ctx)
		}
	}
}
