// Package memvars is a minimal in-memory hostio.VarStore: a mutex-guarded
// map standing in for a real storage engine, supplied here only as the
// reference host cmd/predicatec drives the engine against, not as a
// production variable store.
package memvars

import (
	"sync"

	"github.com/predicate-engine/predicate/value"
)

// Store is a name-indexed, in-memory hostio.VarStore. Index-based lookup
// (hostio.VarStore.LookupIndexed) is unsupported here: this store exists
// for the reference CLI, which only ever resolves vars by name.
type Store struct {
	mu   sync.RWMutex
	vars map[string]value.Value
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{vars: make(map[string]value.Value)}
}

// Set assigns key to v, overwriting any previous value.
func (s *Store) Set(key string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[key] = v
}

// Lookup implements hostio.VarStore.
func (s *Store) Lookup(key []byte) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[string(key)]
	return v, ok
}

// LookupIndexed implements hostio.VarStore; this store never pre-resolves
// names to slots, so every call reports absent.
func (s *Store) LookupIndexed(int) (value.Value, bool) {
	return value.Value{}, false
}
