package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Motion detection defaults carried over from the headset tooling.
const (
	DefaultMovementThreshold = 0.005
	DefaultRotationThreshold = 0.01
)

// ErrInvalidTuning is wrapped by every tuning parse or validation failure.
var ErrInvalidTuning = errors.New("invalid tuning")

// Tuning represents the runtime-adjustable probe settings. Unlike the
// bootstrap config it can be replaced while the probe is running.
type Tuning struct {
	Version     string        `yaml:"version" json:"version"`
	TuningID    string        `yaml:"tuning_id" json:"tuning_id"`
	LastUpdated string        `yaml:"lastUpdated" json:"lastUpdated"`
	Motion      MotionTuning  `yaml:"motion" json:"motion"`
	Latency     LatencyTuning `yaml:"latency" json:"latency"`
}

// MotionTuning holds the motion thresholds applied to the viewpoint monitor.
type MotionTuning struct {
	MovementThreshold float64 `yaml:"movement_threshold" json:"movement_threshold"`
	RotationThreshold float64 `yaml:"rotation_threshold" json:"rotation_threshold"`
}

// LatencyTuning holds pipeline settings that can change at runtime.
type LatencyTuning struct {
	FrameTimeoutMs int `yaml:"frame_timeout_ms" json:"frame_timeout_ms"`
}

// LoadTuning loads the tuning file from the specified path
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes and validates tuning YAML.
func ParseTuning(data []byte) (*Tuning, error) {
	var tuning Tuning
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML format: %v", ErrInvalidTuning, err)
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	return &tuning, nil
}

// Validate checks required fields and value ranges.
func (t *Tuning) Validate() error {
	if t.TuningID == "" || t.Version == "" {
		return fmt.Errorf("%w: missing required fields (tuning_id, version)", ErrInvalidTuning)
	}
	if t.Motion.MovementThreshold < 0 || t.Motion.RotationThreshold < 0 {
		return fmt.Errorf("%w: motion thresholds must not be negative", ErrInvalidTuning)
	}
	if t.Latency.FrameTimeoutMs < 0 {
		return fmt.Errorf("%w: latency.frame_timeout_ms must not be negative", ErrInvalidTuning)
	}
	return nil
}

// TuningFromBootstrap derives the initial tuning from the bootstrap config,
// used when no tuning file exists yet.
func TuningFromBootstrap(b *BootstrapConfig) *Tuning {
	return &Tuning{
		Version:  "1.0",
		TuningID: "bootstrap",
		Motion: MotionTuning{
			MovementThreshold: b.Motion.MovementThreshold,
			RotationThreshold: b.Motion.RotationThreshold,
		},
		Latency: LatencyTuning{
			FrameTimeoutMs: b.Latency.FrameTimeoutMs,
		},
	}
}
