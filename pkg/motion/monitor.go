// Package motion detects significant movement of the tracked viewpoint.
package motion

import (
	"sync"

	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// Thresholds bound what counts as movement. A difference must be strictly
// greater than the threshold to count.
type Thresholds struct {
	Movement float64 // world units
	Rotation float64 // degrees
}

// DefaultThresholds returns the thresholds used by the headset tooling.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Movement: config.DefaultMovementThreshold,
		Rotation: config.DefaultRotationThreshold,
	}
}

// Movement describes a detected move relative to the previous baseline.
type Movement struct {
	Pose             scene.Pose
	PositionDelta    float64
	RotationDeltaDeg float64
}

// Monitor compares the viewpoint against a debounced baseline. The
// baseline only advances when a move is detected, so slow drift across
// many ticks still adds up to a detection.
type Monitor struct {
	viewpoint  scene.Viewpoint
	logger     customlog.Logger
	mu         sync.Mutex
	thresholds Thresholds
	baseline   scene.Pose
	seeded     bool
}

// NewMonitor creates a monitor over viewpoint. The baseline is seeded from
// the viewpoint's current pose if it is available.
func NewMonitor(viewpoint scene.Viewpoint, thresholds Thresholds, logger customlog.Logger) *Monitor {
	m := &Monitor{
		viewpoint:  viewpoint,
		thresholds: thresholds,
		logger:     logger.WithCategory(customlog.CategoryMotion),
	}
	if viewpoint != nil {
		if pose, ok := viewpoint.Pose(); ok {
			m.baseline = pose
			m.seeded = true
		}
	}
	return m
}

// SetThresholds replaces the thresholds used by subsequent checks.
func (m *Monitor) SetThresholds(t Thresholds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
	m.logger.Infof("Motion thresholds set: movement=%v rotation=%v", t.Movement, t.Rotation)
}

// Thresholds returns the active thresholds.
func (m *Monitor) Thresholds() Thresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholds
}

// Baseline returns the current baseline pose and whether one is set.
func (m *Monitor) Baseline() (scene.Pose, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline, m.seeded
}

// Check reports whether the viewpoint moved beyond either threshold since
// the baseline, and advances the baseline if so. An unavailable viewpoint
// never counts as movement.
func (m *Monitor) Check() (Movement, bool) {
	if m.viewpoint == nil {
		return Movement{}, false
	}
	pose, ok := m.viewpoint.Pose()
	if !ok {
		return Movement{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seeded {
		// First sample after tracking became available.
		m.baseline = pose
		m.seeded = true
		return Movement{}, false
	}

	posDiff := pose.Position.Sub(m.baseline.Position).Len()
	rotDiff := scene.AngleBetween(pose.Orientation, m.baseline.Orientation)

	if posDiff <= m.thresholds.Movement && rotDiff <= m.thresholds.Rotation {
		return Movement{}, false
	}

	m.baseline = pose
	m.logger.Debugf("Viewpoint moved: position_delta=%.5f rotation_delta=%.4f", posDiff, rotDiff)
	return Movement{Pose: pose, PositionDelta: posDiff, RotationDeltaDeg: rotDiff}, true
}
