package pool

import (
	"sort"
	"sync"
)

// Store is the process-wide registry of pools, keyed by "<partition>/<name>".
// It holds its own lock only for
// registry-level operations (add/remove/list pool); all per-pool state
// mutation is delegated to the *Pool's own lock, so cross-pool operations
// never contend with in-flight per-pool reads or writes.
type Store struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewStore creates an empty pool registry.
func NewStore() *Store {
	return &Store{pools: make(map[string]*Pool)}
}

// AddOrUpdatePool creates the pool if it does not yet exist (initial config
// load, or a pool added by a hot-reload), or updates its mutable configuration
// fields in place if it does. Never tears down membership or metrics state.
func (s *Store) AddOrUpdatePool(cfg Config) *Pool {
	key := cfg.Key()

	s.mu.RLock()
	p, ok := s.pools[key]
	s.mu.RUnlock()
	if ok {
		p.applyConfig(cfg)
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pools[key]; ok {
		p.applyConfig(cfg)
		return p
	}
	p = newPool(cfg)
	s.pools[key] = p
	return p
}

// RemovePool drops a pool from the registry entirely. Only called when a
// pool disappears from configuration, never on a transient fetch/scrape
// failure.
func (s *Store) RemovePool(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pools, key)
}

// Get returns the pool for key, or false if it does not exist.
func (s *Store) Get(key string) (*Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[key]
	return p, ok
}

// Keys returns all currently registered pool keys, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.pools))
	for k := range s.pools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every registered pool, in key order. Used by the status
// endpoints, the pool-snapshot stream and the Membership Fetcher; each
// *Pool remains independently lockable by the caller.
func (s *Store) All() []*Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.pools))
	for k := range s.pools {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Pool, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.pools[k])
	}
	return out
}

// ReconcilePoolMembers is a convenience wrapper for callers holding only a
// pool key (the Membership Fetcher reconciles through its *Pool directly):
// it looks up the pool and reconciles its member set, reporting whether the
// pool was found.
func (s *Store) ReconcilePoolMembers(key string, newSet []Member) bool {
	p, ok := s.Get(key)
	if !ok {
		return false
	}
	p.Reconcile(newSet)
	return true
}

// ApplyConfigDiff reconciles the registry against a fresh set of desired
// pool configs: pools present in desired are added or updated in place
// (mutable fields only; membership/metrics untouched); pools missing from
// desired are removed from the registry.
// Returns the keys added, updated, and removed, for logging by the caller.
func (s *Store) ApplyConfigDiff(desired []Config) (added, updated, removed []string) {
	desiredKeys := make(map[string]struct{}, len(desired))
	for _, cfg := range desired {
		key := cfg.Key()
		desiredKeys[key] = struct{}{}

		s.mu.RLock()
		_, exists := s.pools[key]
		s.mu.RUnlock()

		s.AddOrUpdatePool(cfg)
		if exists {
			updated = append(updated, key)
		} else {
			added = append(added, key)
		}
	}

	s.mu.Lock()
	for key := range s.pools {
		if _, ok := desiredKeys[key]; !ok {
			removed = append(removed, key)
			delete(s.pools, key)
		}
	}
	s.mu.Unlock()

	sort.Strings(added)
	sort.Strings(updated)
	sort.Strings(removed)
	return added, updated, removed
}
