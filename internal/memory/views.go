package memory

import (
	"sort"
	"strings"
)

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IsLoading reports whether Initialize is in progress.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Entries returns all entries in physical (newest-added first) order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Tags returns the tag registry in insertion order.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStrings(s.tags)
}

// SortedByRecency returns entries ordered by UpdateTime, newest first.
// Entries with equal times keep their physical order.
func (s *Store) SortedByRecency() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []Entry {
	out := cloneEntries(s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdateTime.After(out[j].UpdateTime)
	})
	return out
}

// ByTag returns entries carrying tag, in physical order.
func (s *Store) ByTag(tag string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Entry{}
	for _, e := range s.entries {
		if e.HasTag(tag) {
			out = append(out, e.clone())
		}
	}
	return out
}

// AllTags returns every tag referenced by an entry, deduplicated, in
// first-seen order. It is derived from entries and is independent of the
// tag registry returned by Tags.
func (s *Store) AllTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, e := range s.entries {
		for _, t := range e.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Search returns entries whose title, content or any tag contains keyword,
// ignoring case, in SortedByRecency order. An empty keyword matches all.
func (s *Store) Search(keyword string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedLocked()
	if keyword == "" {
		return sorted
	}

	kw := strings.ToLower(keyword)
	out := []Entry{}
	for _, e := range sorted {
		if e.matches(kw) {
			out = append(out, e)
		}
	}
	return out
}

// GetByID returns the entry with the given id.
func (s *Store) GetByID(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i].clone(), true
	}
	return Entry{}, false
}

func (s *Store) indexLocked(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}
