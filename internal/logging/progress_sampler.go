package logging

import "sync"

// ProgressSampler suppresses repetitive progress logs for many concurrent
// subjects. A subject emits when its percent crosses a bucket boundary
// (default 10%) or the first time it is seen.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	last       map[string]int
}

// NewProgressSampler constructs a sampler with the given bucket width in percent.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether a progress event for key should be logged.
// Negative percent means unknown and only the first sighting emits.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.last[key]
	if !seen {
		last = -1
	}
	if percent < 0 {
		if !seen {
			s.last[key] = -1
		}
		return !seen
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket > last {
		s.last[key] = bucket
		return true
	}
	return false
}

// Forget drops state for key once its subject reaches a terminal state.
func (s *ProgressSampler) Forget(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, key)
	s.mu.Unlock()
}
