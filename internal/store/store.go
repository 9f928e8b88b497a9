// Package store implements the KV Engine's Store: a plain map from key to
// stored entry, accessed only from the event loop. Because the reactor is
// strictly single-threaded (§5), no locking is used here at all — the
// teacher's equivalent store guards the same map with an RWMutex purely to
// support concurrent goroutine access, which this design rules out.
package store

import (
	"math/rand"
	"time"
)

// Entry is a stored (value, optional expiry) pair, owned exclusively by
// the Store.
type Entry struct {
	Value     []byte
	ExpiresAt int64 // UnixNano; 0 means no expiry
}

// Store is the mapping from key to Entry.
type Store struct {
	data map[string]*Entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]*Entry)}
}

// expired reports whether e's expiry, if any, is in the past relative to
// now (UnixNano).
func expired(e *Entry, now int64) bool {
	return e.ExpiresAt > 0 && e.ExpiresAt <= now
}

// Get returns the value for key, lazily deleting it first if it has
// expired. ok is false for an absent or just-expired key.
func (s *Store) Get(key string) (value []byte, ok bool) {
	e, found := s.data[key]
	if !found {
		return nil, false
	}
	if expired(e, time.Now().UnixNano()) {
		delete(s.data, key)
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key, unconditionally clearing any previous expiry
// (§9: SET's overwrite-clears-TTL behavior is intended, not a bug).
func (s *Store) Set(key string, value []byte) {
	s.data[key] = &Entry{Value: value}
}

// Del removes keys that are present (lazily-expired keys count as absent)
// and returns how many were actually removed.
func (s *Store) Del(keys ...string) int64 {
	var n int64
	now := time.Now().UnixNano()
	for _, key := range keys {
		e, found := s.data[key]
		if !found {
			continue
		}
		delete(s.data, key)
		if !expired(e, now) {
			n++
		}
	}
	return n
}

// Exists returns how many of keys are currently present, applying lazy
// expiry per key.
func (s *Store) Exists(keys ...string) int64 {
	var n int64
	for _, key := range keys {
		if _, ok := s.Get(key); ok {
			n++
		}
	}
	return n
}

// Expire sets key's expiry to now+d if key is present (after lazy expiry).
// Returns false if the key is absent.
func (s *Store) Expire(key string, d time.Duration) bool {
	e, ok := s.liveEntry(key)
	if !ok {
		return false
	}
	e.ExpiresAt = time.Now().Add(d).UnixNano()
	return true
}

// Persist clears key's expiry if it has one. Returns false if the key is
// absent or already has no expiry.
func (s *Store) Persist(key string) bool {
	e, ok := s.liveEntry(key)
	if !ok || e.ExpiresAt == 0 {
		return false
	}
	e.ExpiresAt = 0
	return true
}

// TTL returns the remaining time to live: -2 if absent, -1 if no expiry,
// else the remaining duration. If the remaining duration is <= 0 the key is
// deleted and -2 is returned (§4.6's TTL/PTTL convergence behavior).
func (s *Store) TTL(key string) (remaining time.Duration, code int) {
	e, found := s.data[key]
	if !found {
		return 0, -2
	}
	if e.ExpiresAt == 0 {
		return 0, -1
	}
	remaining = time.Duration(e.ExpiresAt - time.Now().UnixNano())
	if remaining <= 0 {
		delete(s.data, key)
		return 0, -2
	}
	return remaining, 0
}

// liveEntry returns key's entry after applying lazy expiry, or ok=false if
// absent or just expired.
func (s *Store) liveEntry(key string) (*Entry, bool) {
	e, found := s.data[key]
	if !found {
		return nil, false
	}
	if expired(e, time.Now().UnixNano()) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

// Len returns the number of keys currently in the store, without applying
// lazy expiry to any of them (used only for the INFO keyspace line, where a
// slightly stale count is acceptable).
func (s *Store) Len() int64 { return int64(len(s.data)) }

// SweepExpired samples up to sampleSize keys (or all keys, if fewer)
// uniformly at random and deletes those that have expired, returning how
// many were sampled and how many were deleted.
func (s *Store) SweepExpired(sampleSize int) (sampled, deleted int) {
	now := time.Now().UnixNano()
	if len(s.data) == 0 {
		return 0, 0
	}
	if sampleSize >= len(s.data) {
		for key, e := range s.data {
			sampled++
			if expired(e, now) {
				delete(s.data, key)
				deleted++
			}
		}
		return sampled, deleted
	}

	// Go's map iteration order is randomized per range; taking the first
	// sampleSize keys of a fresh range is therefore a uniform-enough sample
	// without building and shuffling a slice of every key on each pass.
	candidates := make([]string, 0, sampleSize)
	for key := range s.data {
		candidates = append(candidates, key)
		if len(candidates) == sampleSize {
			break
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	for _, key := range candidates {
		sampled++
		if e, ok := s.data[key]; ok && expired(e, now) {
			delete(s.data, key)
			deleted++
		}
	}
	return sampled, deleted
}
