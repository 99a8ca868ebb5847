package probe

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/latencyprobe/pkg/channel"
	"github.com/open-teleop/latencyprobe/pkg/command"
	"github.com/open-teleop/latencyprobe/pkg/latency"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/metrics"
	"github.com/open-teleop/latencyprobe/pkg/motion"
	"github.com/open-teleop/latencyprobe/pkg/render"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

type triggerCall struct {
	cause latency.Cause
	// target position observed when the trigger fired
	position mgl64.Vec3
}

type fakeTrigger struct {
	mu     sync.Mutex
	target *scene.Object
	calls  []triggerCall
}

func (f *fakeTrigger) Trigger(_ context.Context, cause latency.Cause) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := triggerCall{cause: cause}
	if f.target != nil {
		call.position = f.target.Position()
	}
	f.calls = append(f.calls, call)
	return "id"
}

func (f *fakeTrigger) causes() []latency.Cause {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []latency.Cause
	for _, c := range f.calls {
		out = append(out, c.cause)
	}
	return out
}

type fakeObserver struct {
	ticks    int
	commands []string
	motion   int
}

func (o *fakeObserver) Tick()                        { o.ticks++ }
func (o *fakeObserver) CommandApplied(result string) { o.commands = append(o.commands, result) }
func (o *fakeObserver) MotionTriggered()             { o.motion++ }

type fixture struct {
	source    *channel.LatestValue
	target    *scene.Object
	viewpoint *scene.TrackedViewpoint
	trigger   *fakeTrigger
	observer  *fakeObserver
	probe     *Probe
	hook      *test.Hook
}

func newFixture() *fixture {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	logger := customlog.FromLogrus(l)

	f := &fixture{
		source:    channel.NewLatestValue(),
		target:    scene.NewObject(),
		viewpoint: scene.NewTrackedViewpoint(),
		observer:  &fakeObserver{},
		hook:      hook,
	}
	f.trigger = &fakeTrigger{target: f.target}

	monitor := motion.NewMonitor(f.viewpoint, motion.Thresholds{Movement: 0.001, Rotation: 0.1}, logger)
	f.probe = NewProbe(
		channel.NewReader(f.source, logger),
		command.NewApplier(f.target, logger),
		monitor,
		f.trigger,
		logger,
		WithDiagnostics(f.viewpoint, f.target),
		WithObserver(f.observer),
	)
	return f
}

func (f *fixture) hasMessage(substr string) bool {
	for _, e := range f.hook.AllEntries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestTickIdle(t *testing.T) {
	f := newFixture()
	f.probe.Tick(context.Background())

	assert.Empty(t, f.trigger.causes())
	assert.Equal(t, 1, f.observer.ticks)
	assert.Empty(t, f.observer.commands)
}

func TestCommandTriggersBeforeApply(t *testing.T) {
	f := newFixture()
	f.source.Set("1,2,3;0,90,0;1,1,1")

	f.probe.Tick(context.Background())

	require.Len(t, f.trigger.calls, 1)
	assert.Equal(t, latency.CauseCommand, f.trigger.calls[0].cause)
	assert.Equal(t, mgl64.Vec3{}, f.trigger.calls[0].position, "trigger fires before the target changes")
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, f.target.Position())
	assert.Equal(t, []string{metrics.CommandAccepted}, f.observer.commands)
}

func TestRepeatedCommandIsIgnored(t *testing.T) {
	f := newFixture()
	f.source.Set("1,2,3;0,0,0;1,1,1")

	f.probe.Tick(context.Background())
	f.probe.Tick(context.Background())

	assert.Len(t, f.trigger.causes(), 1)
	assert.Equal(t, 2, f.observer.ticks)
}

func TestCommandOutcomes(t *testing.T) {
	f := newFixture()

	f.source.Set("1,2,3;bad;1,1,1")
	f.probe.Tick(context.Background())

	f.source.Set("only;two")
	f.probe.Tick(context.Background())

	assert.Equal(t, []string{metrics.CommandPartial, metrics.CommandRejected}, f.observer.commands)
	assert.Equal(t, []latency.Cause{latency.CauseCommand, latency.CauseCommand}, f.trigger.causes(),
		"rejected commands still start a measurement")
}

func TestMotionTriggersWithDiagnostics(t *testing.T) {
	f := newFixture()
	f.viewpoint.Update(scene.IdentityPose())
	f.viewpoint.UpdateIMU(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -9.81, 0})

	// First sample seeds the baseline
	f.probe.Tick(context.Background())
	assert.Empty(t, f.trigger.causes())

	f.viewpoint.Update(scene.Pose{Position: mgl64.Vec3{0, 0, 0.5}, Orientation: mgl64.QuatIdent()})
	f.probe.Tick(context.Background())

	assert.Equal(t, []latency.Cause{latency.CauseMotion}, f.trigger.causes())
	assert.Equal(t, 1, f.observer.motion)
	assert.True(t, f.hasMessage("Significant viewpoint movement detected"))
	assert.True(t, f.hasMessage("Viewpoint angular velocity: (0.000, 1.000, 0.000)"))
	assert.True(t, f.hasMessage("Viewpoint acceleration: (0.000, -9.810, 0.000)"))
	assert.True(t, f.hasMessage("Target corners (relative to viewpoint):"))
	// Unit cube at origin seen from z=0.5
	assert.True(t, f.hasMessage("Corner 1: (-0.500, -0.500, -1.000)"))
	assert.True(t, f.hasMessage("Corner 8: (0.500, 0.500, 0.000)"))
}

func TestCommandHandledBeforeMotionInSameTick(t *testing.T) {
	f := newFixture()
	f.viewpoint.Update(scene.IdentityPose())
	f.probe.Tick(context.Background())

	f.source.Set("1,1,1;0,0,0;1,1,1")
	f.viewpoint.Update(scene.Pose{Position: mgl64.Vec3{1, 0, 0}, Orientation: mgl64.QuatIdent()})
	f.probe.Tick(context.Background())

	assert.Equal(t, []latency.Cause{latency.CauseCommand, latency.CauseMotion}, f.trigger.causes())
}

func TestNoMonitor(t *testing.T) {
	l, _ := test.NewNullLogger()
	logger := customlog.FromLogrus(l)
	source := channel.NewLatestValue()
	trig := &fakeTrigger{}
	p := NewProbe(channel.NewReader(source, logger), command.NewApplier(scene.NewObject(), logger), nil, trig, logger)

	source.Set("1,2,3;0,0,0;1,1,1")
	p.Tick(context.Background())

	assert.Equal(t, []latency.Cause{latency.CauseCommand}, trig.causes())
}

func TestLoopStepEndsFrame(t *testing.T) {
	f := newFixture()
	clock := render.NewFrameClock()
	loop := NewLoop(f.probe, clock, 0, customlog.FromLogrus(logrus.New()))
	assert.Equal(t, time.Second/60, loop.Interval())

	wait := clock.NextFrame()
	frame := loop.Step(context.Background())

	assert.Equal(t, uint64(1), frame.Index)
	select {
	case got := <-wait:
		assert.Equal(t, frame, got)
	default:
		t.Fatal("waiter was not released by the step")
	}
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	f := newFixture()
	clock := render.NewFrameClock()
	loop := NewLoop(f.probe, clock, 500, customlog.FromLogrus(logrus.New()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return clock.LastFrame().Index >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
