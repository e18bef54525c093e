package catalog

import (
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current catalog.
type Store struct {
	current atomic.Pointer[Set]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *Set {
	return s.current.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(set *Set) {
	s.current.Store(set)
}

// Len returns the number of entries in the current catalog.
func (s *Store) Len() int {
	set := s.current.Load()
	if set == nil {
		return 0
	}
	return len(set.Entries)
}

// AgeSeconds returns the age of the current catalog in seconds, or -1 if
// none has been loaded.
func (s *Store) AgeSeconds() float64 {
	set := s.current.Load()
	if set == nil {
		return -1
	}
	return time.Since(set.LoadedAt).Seconds()
}
