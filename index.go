package zipkit

import "strings"

// MatchMode selects how Index.Lookup compares a query name against entry
// names.
type MatchMode int

const (
	// Ignore performs an exact match on the filename only.
	Ignore MatchMode = iota
	// Match performs a path-tail match: a query "foo/bar.txt" matches an
	// entry name ending in that suffix at a "/" boundary, or equal to it.
	Match
)

// Index is the in-memory ordered sequence of central directory entries
// plus a name lookup, shared by archive-backed and directory-backed
// collections.
type Index struct {
	entries []*CentralEntry
	byName  map[string][]int // filename -> positions in entries, for Ignore lookups
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byName: make(map[string][]int)}
}

// Append records entry at the end of the index, preserving insertion
// order.
func (idx *Index) Append(entry *CentralEntry) {
	pos := len(idx.entries)
	idx.entries = append(idx.entries, entry)
	idx.byName[entry.Name] = append(idx.byName[entry.Name], pos)
}

// Entries returns the entries in insertion order. The slice must not be
// mutated by the caller.
func (idx *Index) Entries() []*CentralEntry {
	return idx.entries
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Lookup finds the first entry (in insertion order) matching name under
// mode.
func (idx *Index) Lookup(name string, mode MatchMode) (*CentralEntry, bool) {
	switch mode {
	case Ignore:
		positions, ok := idx.byName[name]
		if !ok || len(positions) == 0 {
			return nil, false
		}
		return idx.entries[positions[0]], true
	case Match:
		for _, e := range idx.entries {
			if pathTailMatch(e.Name, name) {
				return e, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

// pathTailMatch reports whether entry name n matches query q: either n
// equals q outright, or n ends in "/"+q.
func pathTailMatch(n, q string) bool {
	if n == q {
		return true
	}
	return strings.HasSuffix(n, "/"+q)
}
