package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/open-teleop/latencyprobe/pkg/config"
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/motion"
)

// ConfigPublisher defines the interface for publishing tuning updates.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification(t config.Tuning) error
}

// TuningListener is called with the new tuning after every successful update.
type TuningListener func(t config.Tuning)

// TuningService manages the runtime tuning of the probe.
type TuningService interface {
	LoadConfig() error
	GetTuning() config.Tuning
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
	OnChange(l TuningListener)
}

type tuningService struct {
	tuningPath      string
	logger          customlog.Logger
	configPublisher ConfigPublisher
	current         config.Tuning
	listeners       []TuningListener
	now             func() time.Time
	mu              sync.RWMutex
}

// NewTuningService creates a TuningService for the file at tuningPath. When
// the file does not exist yet, fallback is used until the first update.
func NewTuningService(tuningPath string, fallback config.Tuning, logger customlog.Logger) (TuningService, error) {
	if tuningPath == "" {
		return nil, fmt.Errorf("tuning path cannot be empty")
	}

	s := &tuningService{
		tuningPath: tuningPath,
		logger:     logger.WithCategory(customlog.CategoryConfig),
		current:    fallback,
		now:        time.Now,
	}

	if err := s.LoadConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		s.logger.Infof("No tuning file at '%s', using bootstrap values (ID: %s)", tuningPath, fallback.TuningID)
		return s, nil
	}

	s.logger.Infof("TuningService initialized from %s", tuningPath)
	return s, nil
}

// LoadConfig reads the tuning file from disk and replaces the current tuning.
func (s *tuningService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.tuningPath)
	if err != nil {
		return fmt.Errorf("error reading tuning file '%s': %w", s.tuningPath, err)
	}

	t, err := config.ParseTuning(data)
	if err != nil {
		s.logger.Errorf("Error parsing tuning file '%s': %v", s.tuningPath, err)
		return fmt.Errorf("error parsing tuning file '%s': %w", s.tuningPath, err)
	}

	s.current = *t
	s.logger.Infof("Loaded tuning ID: %s, Version: %s", t.TuningID, t.Version)
	return nil
}

// GetTuning returns a copy of the current tuning.
func (s *tuningService) GetTuning() config.Tuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GetCurrentConfigYAML returns the current tuning as YAML.
func (s *tuningService) GetCurrentConfigYAML() ([]byte, error) {
	current := s.GetTuning()
	data, err := yaml.Marshal(&current)
	if err != nil {
		return nil, fmt.Errorf("error encoding tuning: %w", err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies new tuning YAML, then
// notifies listeners and publishes a change notification.
func (s *tuningService) UpdateConfig(newConfigYAML []byte) error {
	newTuning, err := config.ParseTuning(newConfigYAML)
	if err != nil {
		s.logger.Warnf("Rejected tuning update: %v", err)
		return err
	}
	if newTuning.LastUpdated == "" {
		newTuning.LastUpdated = s.now().UTC().Format(time.RFC3339)
	}

	data, err := yaml.Marshal(newTuning)
	if err != nil {
		return fmt.Errorf("error encoding tuning: %w", err)
	}

	s.mu.Lock()
	// Persist before applying so a failed write leaves the old tuning active
	if err := s.persistConfigUnlocked(data); err != nil {
		s.mu.Unlock()
		return err
	}
	oldID := s.current.TuningID
	s.current = *newTuning
	listeners := append([]TuningListener(nil), s.listeners...)
	publisher := s.configPublisher
	s.mu.Unlock()

	s.logger.Infof("Updated tuning. ID %s -> %s, Version: %s", oldID, newTuning.TuningID, newTuning.Version)

	for _, l := range listeners {
		l(*newTuning)
	}

	if publisher != nil {
		go func(t config.Tuning) {
			if err := publisher.PublishConfigUpdatedNotification(t); err != nil {
				s.logger.Warnf("Failed to publish tuning update notification: %v", err)
			}
		}(*newTuning)
	}

	return nil
}

// PersistConfig writes the given YAML data to the tuning file.
func (s *tuningService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

func (s *tuningService) persistConfigUnlocked(yamlData []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.tuningPath), 0755); err != nil {
		return fmt.Errorf("error creating tuning directory: %w", err)
	}
	if err := os.WriteFile(s.tuningPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing tuning file '%s': %v", s.tuningPath, err)
		return fmt.Errorf("error writing tuning file '%s': %w", s.tuningPath, err)
	}
	s.logger.Debugf("Persisted tuning to %s", s.tuningPath)
	return nil
}

// SetPublisher injects the publisher after initialization.
func (s *tuningService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}

// OnChange registers a listener for tuning updates.
func (s *tuningService) OnChange(l TuningListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// FrameTimeoutSetter is implemented by the latency pipeline.
type FrameTimeoutSetter interface {
	SetFrameTimeout(d time.Duration)
}

// ThresholdSetter is implemented by the motion monitor.
type ThresholdSetter interface {
	SetThresholds(t motion.Thresholds)
}

// ApplyTuning returns a listener that pushes tuning into the monitor and
// pipeline. Either may be nil.
func ApplyTuning(monitor ThresholdSetter, pipeline FrameTimeoutSetter) TuningListener {
	return func(t config.Tuning) {
		if monitor != nil {
			monitor.SetThresholds(motion.Thresholds{
				Movement: t.Motion.MovementThreshold,
				Rotation: t.Motion.RotationThreshold,
			})
		}
		if pipeline != nil {
			pipeline.SetFrameTimeout(time.Duration(t.Latency.FrameTimeoutMs) * time.Millisecond)
		}
	}
}
