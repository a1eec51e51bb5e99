package mst

import (
	"fmt"
	"sort"
)

// A Leaf is one (key, fingerprint) pair: the tree's summary of a
// single record.  Leaves are immutable; when the underlying record
// changes, a new Leaf with the same key supersedes the old one.
type Leaf struct {
	Key         uint64
	Fingerprint Fingerprint
}

// A LeafSet accumulates the output of a scan into an ordered leaf
// sequence ready for Build.  It is the bridge between a store's
// Fingerprinter and the tree: feed every scanned record through Add
// or AddRecord, then hand Leaves' result to Build.
type LeafSet struct {
	leaves []Leaf
}

// Add appends one scanned leaf.  Ordering and duplicate detection are
// deferred to Leaves.
func (s *LeafSet) Add(lf Leaf) {
	s.leaves = append(s.leaves, lf)
}

// AddRecord fingerprints the given raw record and appends the result.
func (s *LeafSet) AddRecord(fp Fingerprinter, record interface{}) error {
	key, sum, err := fp.Fingerprint(record)
	if err != nil {
		return fmt.Errorf("fingerprint record: %w", err)
	}
	s.Add(Leaf{Key: key, Fingerprint: sum})
	return nil
}

// Len returns the number of accumulated leaves.
func (s *LeafSet) Len() int {
	return len(s.leaves)
}

// Leaves returns the accumulated leaves sorted by key, or
// ErrDuplicateKey if two leaves share one.
func (s *LeafSet) Leaves() ([]Leaf, error) {
	return sortLeaves(s.leaves)
}

// sortLeaves returns a sorted copy of the given leaves, rejecting
// duplicate keys.  Sorting here is what makes Build insensitive to
// scan order.
func sortLeaves(leaves []Leaf) ([]Leaf, error) {
	sorted := append([]Leaf(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Key == sorted[i-1].Key {
			return nil, fmt.Errorf("key %d: %w", sorted[i].Key, ErrDuplicateKey)
		}
	}
	return sorted, nil
}
