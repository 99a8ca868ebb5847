package channel

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	customlog "github.com/open-teleop/latencyprobe/pkg/log"
)

// FileSource reads the whole content of a file on every poll. A missing
// file means no command is pending.
type FileSource struct {
	path   string
	logger customlog.Logger
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source for the file at path.
func NewFileSource(path string, logger customlog.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger.WithCategory(customlog.CategoryChannel),
	}
}

// Path returns the polled file path.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) Read() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("Failed to read command file '%s': %v", s.path, err)
		}
		return "", false
	}
	return string(data), true
}

// LatestValue is a single-slot source written by network transports.
// Writers overwrite the slot; the reader sees whatever was written last.
type LatestValue struct {
	mu    sync.RWMutex
	value string
	set   bool
}

var _ Source = (*LatestValue)(nil)

// NewLatestValue creates an empty slot.
func NewLatestValue() *LatestValue {
	return &LatestValue{}
}

// Set replaces the pending command.
func (v *LatestValue) Set(raw string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = raw
	v.set = true
}

func (v *LatestValue) Read() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.set
}
