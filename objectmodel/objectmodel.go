// Package objectmodel provides a concrete stand-in for the shared
// object-model store that codes read field values from (for `{expr}`
// substitution and if/elif/while conditions) and that M-code handlers
// occasionally write to (e.g. M550's network name, M555's compatibility
// mode). The store's real backing implementation, and its
// synchronization with the rest of the system, are outside this module's
// scope; this package only fixes the read/write contract the execution
// core depends on.
package objectmodel

import (
	"sync"

	"github.com/joeycumines/mctl/expr"
)

// Store is a flat key/value map guarded by a single RWMutex. Callers adopt
// a dotted naming convention for hierarchical fields (e.g. "move.axes.0"),
// but Store itself does no path parsing; each full key is one map entry.
type Store struct {
	mu   sync.RWMutex
	root map[string]any
}

// New constructs an empty Store.
func New() *Store {
	return &Store{root: make(map[string]any)}
}

// Set assigns a top-level field, replacing it wholesale. Handlers that
// need to mutate a nested field should read, copy-modify, and Set the
// top-level value back, keeping all synchronization inside Store.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root[key] = value
}

// Get returns a top-level field and whether it was present.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.root[key]
	return v, ok
}

// Snapshot returns a shallow copy of the whole tree, suitable for passing
// to expr.Evaluator as its Fields environment. It is shallow because
// nested maps/slices are still shared with the Store; handlers must treat
// any such value read via Snapshot as read-only.
func (s *Store) Snapshot() expr.Fields {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(expr.Fields, len(s.root))
	for k, v := range s.root {
		out[k] = v
	}
	return out
}
