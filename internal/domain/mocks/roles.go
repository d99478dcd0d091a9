package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

// RoleLookup is a mock implementation of ports.RoleLookup.
type RoleLookup struct {
	Admins map[entities.Hash]bool
	Err    error
}

// NewRoleLookup creates a lookup that treats the given agents as administrators.
func NewRoleLookup(admins ...entities.Hash) *RoleLookup {
	m := &RoleLookup{Admins: make(map[entities.Hash]bool)}
	for _, a := range admins {
		m.Admins[a] = true
	}
	return m
}

// IsAdministrator reports whether agent is in Admins.
func (m *RoleLookup) IsAdministrator(_ context.Context, agent entities.Hash) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Admins[agent], nil
}

// Clock is a manually advanced time source.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock starts at start and advances by step on every call to Now.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current time and then advances it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
