package cache

import (
	"sync"
	"time"
)

// Slot holds at most one value together with the time it was stored.
// The value is fresh while less than ttl has elapsed since it was set.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	ts    time.Time
	set   bool
	gen   uint64
	ttl   time.Duration
	now   func() time.Time
}

// NewSlot creates an empty slot with the provided ttl.
func NewSlot[T any](ttl time.Duration) *Slot[T] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Slot[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, mainly for tests.
func (s *Slot[T]) WithClock(now func() time.Time) *Slot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// TTL returns the freshness window.
func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the stored value and its timestamp when it is still fresh.
func (s *Slot[T]) Get() (T, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set && s.now().Sub(s.ts) < s.ttl {
		return s.value, s.ts, true
	}
	var zero T
	return zero, time.Time{}, false
}

// Set replaces the stored value and stamps it with the current time.
func (s *Slot[T]) Set(v T) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
	s.ts = s.now()
	s.set = true
	return s.ts
}

// Generation returns a counter bumped by every Invalidate.
func (s *Slot[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// SetIf stores v only when no Invalidate happened since gen was read. The
// comparison and the store happen under one lock.
func (s *Slot[T]) SetIf(v T, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.value = v
	s.ts = s.now()
	s.set = true
	return true
}

// Invalidate empties the slot so the next Get misses.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	var zero T
	s.value = zero
	s.ts = time.Time{}
	s.set = false
}
