package render

import (
	"sync"
	"time"
)

// Hardware counter names reported by compositors.
const (
	MetricMotionToPhoton  = "motion_to_photon"
	MetricCompositorTotal = "compositor_total_render"
	MetricAppGPUTime      = "app_gpu_time"
	MetricMotionSmoothing = "motion_smoothing"
)

type sample struct {
	value float64
	at    time.Time
}

// MetricStore keeps the latest value of each hardware counter. Values
// older than maxAge are treated as unsupported.
type MetricStore struct {
	mu      sync.RWMutex
	samples map[string]sample
	maxAge  time.Duration
	now     func() time.Time
}

// NewMetricStore creates a store. maxAge <= 0 keeps samples forever.
func NewMetricStore(maxAge time.Duration) *MetricStore {
	return &MetricStore{
		samples: make(map[string]sample),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Set records a counter value observed at the given time.
func (s *MetricStore) Set(name string, value float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[name] = sample{value: value, at: at}
}

// Lookup returns the latest value of a counter if it is present and fresh.
func (s *MetricStore) Lookup(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	smp, ok := s.samples[name]
	if !ok {
		return 0, false
	}
	if s.maxAge > 0 && s.now().Sub(smp.at) > s.maxAge {
		return 0, false
	}
	return smp.value, true
}

// Names returns the counters currently held, fresh or not.
func (s *MetricStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.samples))
	for name := range s.samples {
		names = append(names, name)
	}
	return names
}
