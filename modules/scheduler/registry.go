package scheduler

import (
	"sync"

	"github.com/Deepreo/gorev/core"
)

// entry is the registry record for one task. scope and done are nil for tasks
// recorded without a live runner loop (scheduler stopped or task disabled).
type entry struct {
	task  core.ScheduledTask
	scope *scope
	// done is closed when the runner loop exits; retained so shutdown paths
	// can observe loop termination instead of detaching the goroutine fully.
	done chan struct{}
}

// registry is the concurrency-safe bookkeeping of active tasks. All methods
// are safe under arbitrary concurrent callers.
type registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry)}
}

// insertOrReplace cancels and evicts any previous entry under the same id
// before inserting, so no two runner loops for one id can coexist. Readers
// never observe two entries for one id.
func (r *registry) insertOrReplace(id string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[id]; ok && prev.scope != nil {
		prev.scope.Cancel()
	}
	r.entries[id] = e
}

// remove deletes and returns the entry if present, cancelling its scope as a
// side effect. Returns nil when the id is unknown.
func (r *registry) remove(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	if e.scope != nil {
		e.scope.Cancel()
	}
	return e
}

// get returns the current entry for id, or nil.
func (r *registry) get(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

// snapshotIDs returns a point-in-time list of registered ids without blocking
// concurrent inserts or removes for longer than the map walk.
func (r *registry) snapshotIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// clear cancels every entry's scope and empties the registry. Returns the
// evicted entries so the caller can wait on their done channels if needed.
func (r *registry) clear() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		if e.scope != nil {
			e.scope.Cancel()
		}
		evicted = append(evicted, e)
		delete(r.entries, id)
	}
	return evicted
}
