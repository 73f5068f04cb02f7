package service

import (
	"sync"
	"time"
)

// SystemClock implements ports.Clock on the wall clock, clamped so that
// successive reads never go backwards. Expiry decisions compare against
// this single source; nothing else in the service reads time.Now directly.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time, never earlier than a previous return value.
func (c *SystemClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
