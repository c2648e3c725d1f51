package config

import "sync"

// Ref is a shared, read-mostly reference to the current Configuration
// snapshot. Readers on any goroutine get the same immutable pointer; a
// configuration change swaps the pointer wholesale.
type Ref struct {
	mu  sync.RWMutex
	cur *Configuration
}

// NewRef creates a Ref holding the given snapshot. A nil snapshot is
// replaced with an empty configuration so Get never returns nil.
func NewRef(c *Configuration) *Ref {
	if c == nil {
		c = &Configuration{}
	}
	return &Ref{cur: c}
}

// Get returns the current snapshot. The returned value must be treated as
// read-only; it is shared with every other reader.
func (r *Ref) Get() *Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cur
}

// Copy returns an independent copy of the current snapshot.
func (r *Ref) Copy() Configuration {
	return *r.Get()
}

// Replace swaps in a new snapshot. Readers holding the previous pointer keep
// a consistent, stale view; new reads observe the replacement.
func (r *Ref) Replace(c *Configuration) {
	if c == nil {
		c = &Configuration{}
	}
	r.mu.Lock()
	r.cur = c
	r.mu.Unlock()
}
