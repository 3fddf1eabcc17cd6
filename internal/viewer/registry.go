package viewer

import (
	"sync"
)

// Registry is the set of connected viewers. Gateway goroutines add and remove
// viewers while the broadcast loop reads snapshots.
type Registry struct {
	// notifyMu serializes membership changes with their OnChange calls so
	// the hook observes sizes in mutation order.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	viewers  map[string]Viewer
	limit    int
	onChange func(n int)
}

// NewRegistry creates an empty registry. limit caps membership; zero means unlimited.
func NewRegistry(limit int) *Registry {
	return &Registry{
		viewers: make(map[string]Viewer),
		limit:   limit,
	}
}

// OnChange registers fn to be called with the new size after every
// membership change, in the order the changes happened. fn runs outside the
// read lock and may call Len or Snapshot, but must not call Add or Remove.
func (r *Registry) OnChange(fn func(n int)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Add registers v. Adding the same viewer twice is a no-op.
func (r *Registry) Add(v Viewer) error {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if _, ok := r.viewers[v.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	if r.limit > 0 && len(r.viewers) >= r.limit {
		r.mu.Unlock()
		return ErrRegistryFull
	}
	r.viewers[v.ID()] = v
	n, fn := len(r.viewers), r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return nil
}

// Remove unregisters v and reports whether it was present.
func (r *Registry) Remove(v Viewer) bool {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if _, ok := r.viewers[v.ID()]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.viewers, v.ID())
	n, fn := len(r.viewers), r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(n)
	}
	return true
}

// Snapshot copies the current membership so callers can iterate without
// holding the lock. Viewers added or removed afterwards are not reflected.
func (r *Registry) Snapshot() []Viewer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Viewer, 0, len(r.viewers))
	for _, v := range r.viewers {
		out = append(out, v)
	}
	return out
}

// IsEmpty reports whether nobody is watching.
func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// Len returns the number of registered viewers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

// Limit returns the configured cap, zero when unlimited.
func (r *Registry) Limit() int {
	return r.limit
}
