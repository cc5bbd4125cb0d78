// Package registry provides the identity-keyed entity store that guarantees
// at most one in-memory instance per (kind, natural key) within a run. It is
// the mechanism that deduplicates teams and played matches reachable through
// multiple resolver paths, and that coalesces concurrent builds of the same
// entity into a single builder execution.
package registry

import (
	"context"
	"sync"
)

// Kind names for registered entities.
const (
	KindTeam  = "team"
	KindMatch = "match"
	KindStats = "stats"
)

type entityKey struct {
	kind string
	key  string
}

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Registry is a run-scoped identity store. Successful builds are memoized
// for the rest of the run; failed builds are not, so a later request may
// retry. All mutation goes through the registry's own lock.
type Registry struct {
	mu       sync.Mutex
	entities map[entityKey]any
	inflight map[entityKey]*call
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entities: make(map[entityKey]any),
		inflight: make(map[entityKey]*call),
	}
}

// GetOrCreate returns the memoized entity for (kind, key), or runs builder to
// create it. Concurrent calls for the same key coalesce: exactly one builder
// executes, and every waiter receives its result, success or failure.
func (r *Registry) GetOrCreate(ctx context.Context, kind, key string, builder func(ctx context.Context) (any, error)) (any, error) {
	ek := entityKey{kind: kind, key: key}

	r.mu.Lock()
	if e, ok := r.entities[ek]; ok {
		r.mu.Unlock()
		return e, nil
	}
	if c, ok := r.inflight[ek]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	r.inflight[ek] = c
	r.mu.Unlock()

	c.val, c.err = builder(ctx)

	r.mu.Lock()
	delete(r.inflight, ek)
	if c.err == nil {
		r.entities[ek] = c.val
	}
	r.mu.Unlock()

	close(c.done)

	return c.val, c.err
}

// Get returns the memoized entity for (kind, key) if present.
func (r *Registry) Get(kind, key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[entityKey{kind: kind, key: key}]
	return e, ok
}

// Len returns the number of memoized entities of the given kind.
func (r *Registry) Len(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.entities {
		if k.kind == kind {
			n++
		}
	}
	return n
}
