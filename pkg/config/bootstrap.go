package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the name of the bootstrap config inside the config directory.
const BootstrapFilename = "latencyprobe.yaml"

// Channel modes
const (
	ChannelModeFile    = "file"
	ChannelModeNetwork = "network"
)

// Viewpoint modes
const (
	ViewpointModeNetwork = "network"
	ViewpointModeOrbit   = "orbit"
	ViewpointModeNone    = "none"
)

// DefaultCommandFilePath is the adb push target used by the headset tooling.
const DefaultCommandFilePath = "/data/local/tmp/adb_command.txt"

// BootstrapConfig holds the initial configuration loaded from latencyprobe.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Channel    ChannelConfig    `yaml:"channel"`
	ZeroMQ     ZeroMQBootstrap  `yaml:"zeromq"`
	Viewpoint  ViewpointConfig  `yaml:"viewpoint"`
	Motion     MotionConfig     `yaml:"motion"`
	Latency    LatencyConfig    `yaml:"latency"`
	Render     RenderConfig     `yaml:"render"`
	Processing ProcessingConfig `yaml:"processing"`
	Data       DataConfig       `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ChannelConfig selects where scene commands are read from on each tick.
type ChannelConfig struct {
	Mode     string `yaml:"mode"`
	FilePath string `yaml:"file_path,omitempty"`
}

// ZeroMQBootstrap holds ZeroMQ settings from bootstrap. Empty addresses
// disable the corresponding socket.
type ZeroMQBootstrap struct {
	RequestBindAddress string `yaml:"request_bind_address"`
	PublishBindAddress string `yaml:"publish_bind_address"`
	MetricsBindAddress string `yaml:"metrics_bind_address"`
}

// ViewpointConfig selects the tracked viewpoint implementation.
type ViewpointConfig struct {
	Mode string `yaml:"mode"`
}

// MotionConfig holds the motion detection thresholds.
type MotionConfig struct {
	MovementThreshold float64 `yaml:"movement_threshold"`
	RotationThreshold float64 `yaml:"rotation_threshold"`
}

// LatencyConfig holds latency pipeline settings.
type LatencyConfig struct {
	// FrameTimeoutMs bounds each frame-boundary wait; 0 waits indefinitely.
	FrameTimeoutMs int `yaml:"frame_timeout_ms"`
	// MetricMaxAgeMs is how long a hardware counter sample stays valid.
	MetricMaxAgeMs int `yaml:"metric_max_age_ms"`
}

// RenderConfig holds the simulated frame clock settings.
type RenderConfig struct {
	FrameRateHz int `yaml:"frame_rate_hz"`
}

// ProcessingConfig holds report worker pool configuration
type ProcessingConfig struct {
	ReportWorkers   int `yaml:"report_workers"`
	ReportQueueSize int `yaml:"report_queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory      string `yaml:"directory"`
	TuningFilename string `yaml:"tuning_file"`
}

// LoadBootstrapConfig loads the bootstrap configuration from latencyprobe.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg.applyDefaults()

	if err := bootstrapCfg.validate(); err != nil {
		return nil, err
	}

	return &bootstrapCfg, nil
}

// applyDefaults fills zero values with the probe defaults.
func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Channel.Mode == "" {
		c.Channel.Mode = ChannelModeFile
	}
	if c.Channel.Mode == ChannelModeFile && c.Channel.FilePath == "" {
		c.Channel.FilePath = DefaultCommandFilePath
	}
	if c.Viewpoint.Mode == "" {
		c.Viewpoint.Mode = ViewpointModeNetwork
	}
	if c.Motion.MovementThreshold == 0 {
		c.Motion.MovementThreshold = DefaultMovementThreshold
	}
	if c.Motion.RotationThreshold == 0 {
		c.Motion.RotationThreshold = DefaultRotationThreshold
	}
	if c.Latency.MetricMaxAgeMs == 0 {
		c.Latency.MetricMaxAgeMs = 1000
	}
	if c.Render.FrameRateHz == 0 {
		c.Render.FrameRateHz = 72
	}
	if c.Processing.ReportWorkers == 0 {
		c.Processing.ReportWorkers = 2
	}
	if c.Processing.ReportQueueSize == 0 {
		c.Processing.ReportQueueSize = 100
	}
	if c.Data.TuningFilename == "" {
		c.Data.TuningFilename = "tuning.yaml"
	}
}

func (c *BootstrapConfig) validate() error {
	switch c.Channel.Mode {
	case ChannelModeFile, ChannelModeNetwork:
	default:
		return fmt.Errorf("invalid bootstrap config: channel.mode must be %q or %q, got %q",
			ChannelModeFile, ChannelModeNetwork, c.Channel.Mode)
	}
	switch c.Viewpoint.Mode {
	case ViewpointModeNetwork, ViewpointModeOrbit, ViewpointModeNone:
	default:
		return fmt.Errorf("invalid bootstrap config: viewpoint.mode %q", c.Viewpoint.Mode)
	}
	if c.Channel.Mode == ChannelModeNetwork && c.ZeroMQ.RequestBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address (channel.mode is network)")
	}
	if c.Viewpoint.Mode == ViewpointModeNetwork && c.ZeroMQ.MetricsBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.metrics_bind_address (viewpoint.mode is network)")
	}
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Latency.FrameTimeoutMs < 0 {
		return fmt.Errorf("invalid bootstrap config: latency.frame_timeout_ms must not be negative")
	}
	if c.Render.FrameRateHz < 0 {
		return fmt.Errorf("invalid bootstrap config: render.frame_rate_hz must not be negative")
	}
	return nil
}

// TuningPath returns the absolute path of the runtime tuning file.
func (c *BootstrapConfig) TuningPath() string {
	return filepath.Join(c.Data.Directory, c.Data.TuningFilename)
}
