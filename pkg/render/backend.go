package render

import (
	"sync/atomic"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// Backend combines the frame clock with the hardware counter store. The
// primary latency source is the headset runtime's motion-to-photon
// counter; the secondary is the compositor's total render time.
type Backend struct {
	clock     *FrameClock
	metrics   *MetricStore
	available atomic.Bool
}

// NewBackend creates an available backend over clock and metrics. A nil
// metrics store means no hardware counters are ever supported.
func NewBackend(clock *FrameClock, metrics *MetricStore) *Backend {
	b := &Backend{clock: clock, metrics: metrics}
	b.available.Store(clock != nil)
	return b
}

// Clock returns the underlying frame clock.
func (b *Backend) Clock() *FrameClock {
	return b.clock
}

// Metrics returns the hardware counter store, possibly nil.
func (b *Backend) Metrics() *MetricStore {
	return b.metrics
}

// SetAvailable marks the render target as present or lost.
func (b *Backend) SetAvailable(available bool) {
	b.available.Store(available && b.clock != nil)
}

// Available reports whether frames can be awaited.
func (b *Backend) Available() bool {
	return b.available.Load()
}

// NextFrame registers for the next frame completion.
func (b *Backend) NextFrame() <-chan Frame {
	return b.clock.NextFrame()
}

// PrimaryLatency returns the runtime motion-to-photon counter in ms.
func (b *Backend) PrimaryLatency() (float64, bool) {
	return b.lookup(MetricMotionToPhoton)
}

// SecondaryLatency returns the compositor total render time in ms.
func (b *Backend) SecondaryLatency() (float64, bool) {
	return b.lookup(MetricCompositorTotal)
}

// GPUFrameTime returns the application GPU time of the last frame in ms.
func (b *Backend) GPUFrameTime() (float64, bool) {
	return b.lookup(MetricAppGPUTime)
}

func (b *Backend) lookup(name string) (float64, bool) {
	if b.metrics == nil {
		return 0, false
	}
	return b.metrics.Lookup(name)
}

// LogCapabilities reports which hardware counters are currently supported.
func (b *Backend) LogCapabilities(logger customlog.Logger) {
	logger = logger.WithCategory(customlog.CategoryRender)

	if v, ok := b.PrimaryLatency(); ok {
		logger.Infof("Motion-to-photon latency counter supported, value: %.3f ms", v)
	} else {
		logger.Infof("Motion-to-photon latency counter not supported on this runtime")
	}

	if v, ok := b.lookup(MetricMotionSmoothing); ok {
		logger.Infof("Motion smoothing active: %v", v != 0)
	} else {
		logger.Warnf("Could not retrieve motion smoothing status")
	}
}
