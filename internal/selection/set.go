// Package selection persists the set of product ids a visitor has chosen.
package selection

import (
	"encoding/json"
	"sort"
)

// Set is an immutable set of product ids. The zero value is empty.
type Set struct {
	m map[int]struct{}
}

// NewSet returns a Set holding ids. Duplicates collapse.
func NewSet(ids ...int) Set {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{m: m}
}

// Has reports whether id is in the set.
func (s Set) Has(id int) bool {
	_, ok := s.m[id]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int { return len(s.m) }

// Empty reports whether the set has no ids.
func (s Set) Empty() bool { return len(s.m) == 0 }

// IDs returns the ids in ascending order.
func (s Set) IDs() []int {
	out := make([]int, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Toggle returns a copy of s with id flipped, and whether id is now selected.
func (s Set) Toggle(id int) (Set, bool) {
	next := make(map[int]struct{}, len(s.m)+1)
	for k := range s.m {
		next[k] = struct{}{}
	}
	if _, ok := next[id]; ok {
		delete(next, id)
		return Set{m: next}, false
	}
	next[id] = struct{}{}
	return Set{m: next}, true
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(o Set) bool {
	if len(s.m) != len(o.m) {
		return false
	}
	for id := range s.m {
		if _, ok := o.m[id]; !ok {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array of integers.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an array of integers.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
