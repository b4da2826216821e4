package audit

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the in-memory trail.
const DefaultCapacity = 1024

// MemorySink keeps the most recent events in memory, oldest evicted first.
type MemorySink struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewMemorySink creates a bounded in-memory sink. A non-positive capacity
// falls back to DefaultCapacity.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
	return nil
}

// List returns the recorded events, oldest first.
func (s *MemorySink) List() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
