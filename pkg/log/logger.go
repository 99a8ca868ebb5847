package log

// Logger defines a standard interface for logging.
// This allows decoupling from specific logging libraries.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithCategory returns a logger whose lines are tagged with the given
	// diagnostics category (channel, command, motion, latency, ...).
	WithCategory(category string) Logger
	WithField(key string, value interface{}) Logger
}

// Diagnostics categories used across the probe.
const (
	CategoryChannel = "channel"
	CategoryCommand = "command"
	CategoryMotion  = "motion"
	CategoryLatency = "latency"
	CategoryRender  = "render"
	CategoryZeroMQ  = "zeromq"
	CategoryAPI     = "api"
	CategoryConfig  = "config"
)
