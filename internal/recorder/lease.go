package recorder

import (
	"sync"
	"time"
)

// hardExpiration is the floor for the Recording Lease's hard expiration
// (spec.md §3: "hard expiration (>= 120 s)"). It defends against a capture
// source that never delivers an end event.
const hardExpiration = 120 * time.Second

// Lease is the process-wide mutex serializing all capture operations
// (spec.md §3 Recording Lease, §5 "the only process-wide mutex"). It is a
// semaphore with a timestamp rather than a plain sync.Mutex so a stuck
// capture can be recovered from without relying on callback cleanup alone.
type Lease struct {
	mu       sync.Mutex
	held     bool
	acquired time.Time
	now      func() time.Time
}

// NewLease creates an unheld lease using the real wall clock.
func NewLease() *Lease {
	return &Lease{now: time.Now}
}

// Acquire attempts to take the lease. It succeeds if the lease is free, or
// if it's held but has exceeded its hard expiration (a stuck prior
// capture). Returns false if another live capture holds it.
func (l *Lease) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held && l.now().Sub(l.acquired) < hardExpiration {
		return false
	}
	l.held = true
	l.acquired = l.now()
	return true
}

// Release frees the lease. Safe to call even if not held.
func (l *Lease) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
}

// Held reports whether the lease is currently taken (for status/debug).
func (l *Lease) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
