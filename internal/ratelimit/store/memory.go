// Package store counts requests per fixed window.
package store

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// InMemory is a per-process fixed-window counter. Expired windows are swept
// on write once sweepEvery increments have passed.
type InMemory struct {
	mu         sync.Mutex
	windows    map[string]*window
	writes     int
	sweepEvery int
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[string]*window), sweepEvery: 1024}
}

// Increment adds one hit to key's window starting a new one when the
// previous window has ended.
func (s *InMemory) Increment(_ context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	if s.writes >= s.sweepEvery {
		s.writes = 0
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}
