// Package catalog loads and serves two-line element sets for the objects
// the service can point at.
package catalog

import "time"

// Entry is a single object's two-line element set.
type Entry struct {
	CatalogNumber int
	Name          string
	Epoch         time.Time
	Line1         string
	Line2         string
}

// Set is a complete catalog loaded from one source at one time.
// Immutable after construction; safe for concurrent reads.
type Set struct {
	Source   string
	LoadedAt time.Time
	Entries  []Entry

	byNumber map[int]int // catalog number -> index into Entries
}

// NewSet builds a Set with its lookup index.
func NewSet(source string, loadedAt time.Time, entries []Entry) *Set {
	byNumber := make(map[int]int, len(entries))
	for i, e := range entries {
		if _, ok := byNumber[e.CatalogNumber]; !ok {
			byNumber[e.CatalogNumber] = i
		}
	}
	return &Set{
		Source:   source,
		LoadedAt: loadedAt,
		Entries:  entries,
		byNumber: byNumber,
	}
}

// Find returns the entry with the given catalog number.
func (s *Set) Find(catalogNumber int) (Entry, bool) {
	i, ok := s.byNumber[catalogNumber]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[i], true
}
