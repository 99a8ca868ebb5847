// Package channel reads externally injected scene commands once per tick
// and drops values that were already accepted.
package channel

import (
	"strings"
	"sync"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// Source is a command transport polled once per tick. Read reports false
// when there is no value available, which is the normal idle state.
type Source interface {
	Read() (string, bool)
}

// Reader deduplicates raw command values against the last accepted one.
type Reader struct {
	source       Source
	logger       customlog.Logger
	mu           sync.Mutex
	lastAccepted string
}

// NewReader creates a reader over source.
func NewReader(source Source, logger customlog.Logger) *Reader {
	return &Reader{
		source: source,
		logger: logger.WithCategory(customlog.CategoryChannel),
	}
}

// Poll reads the source and returns the raw value if it is non-empty and
// differs from the last accepted value. The value is recorded as accepted
// before it is returned, so a command that later fails to parse is never
// delivered twice.
func (r *Reader) Poll() (string, bool) {
	raw, ok := r.source.Read()
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if raw == r.lastAccepted {
		return "", false
	}
	r.lastAccepted = raw

	r.logger.Infof("Received command: %s", raw)
	return raw, true
}

// LastAccepted returns the most recently accepted raw value.
func (r *Reader) LastAccepted() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastAccepted
}
