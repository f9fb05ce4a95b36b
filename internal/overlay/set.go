// Package overlay implements the persisted path sets layered over the raw
// workspace listing: the hidden (soft-delete) set and the pinned set.
package overlay

// Set is an insertion-ordered set of paths. Mutators return a new Set and
// leave the receiver untouched, so a Set can be handed to a concurrent
// reader as a snapshot.
type Set struct {
	paths []string
	index map[string]struct{}
}

// NewSet builds a set from paths, dropping duplicates and empty strings.
func NewSet(paths ...string) Set {
	s := Set{index: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, dup := s.index[p]; dup {
			continue
		}
		s.index[p] = struct{}{}
		s.paths = append(s.paths, p)
	}
	return s
}

// Has reports membership.
func (s Set) Has(p string) bool {
	_, ok := s.index[p]
	return ok
}

// Len returns the number of paths.
func (s Set) Len() int { return len(s.paths) }

// Paths returns a copy of the paths in insertion order.
func (s Set) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// With returns a set that also contains p.
func (s Set) With(p string) Set {
	if s.Has(p) {
		return s
	}
	return NewSet(append(s.Paths(), p)...)
}

// Without returns a set that does not contain p.
func (s Set) Without(p string) Set {
	if !s.Has(p) {
		return s
	}
	out := make([]string, 0, len(s.paths)-1)
	for _, v := range s.paths {
		if v != p {
			out = append(out, v)
		}
	}
	return NewSet(out...)
}

// Toggle flips membership of p and reports whether p is now a member.
func (s Set) Toggle(p string) (Set, bool) {
	if s.Has(p) {
		return s.Without(p), false
	}
	return s.With(p), true
}

// Rename moves membership from oldPath to newPath, keeping its position.
func (s Set) Rename(oldPath, newPath string) Set {
	if !s.Has(oldPath) || oldPath == newPath {
		return s
	}
	out := s.Paths()
	for i, v := range out {
		if v == oldPath {
			out[i] = newPath
		}
	}
	return NewSet(out...)
}
