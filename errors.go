package mst

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by Build when the input contains
	// two leaves with the same key.  Last-writer-wins is a caller
	// policy, not a guarantee the tree can provide.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by Update and Delete for a key the
	// tree does not contain.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned by Insert for a key the tree
	// already contains; use Update to replace a fingerprint.
	ErrAlreadyExists = errors.New("key already exists")

	// ErrRulesetMismatch is returned by the differ when the two
	// sides fingerprinted their records under different ruleset
	// versions.  Diffing anyway would report normalization skew as
	// drift.
	ErrRulesetMismatch = errors.New("fingerprint ruleset version mismatch")
)

// A FetchError reports that a node could not be retrieved during a
// diff.  It is always surfaced to the caller: an unfetchable subtree
// is "could not verify", never "equal", since pruning it would
// silently mask real divergence.
type FetchError struct {
	Digest Digest
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch node %s: %v", e.Digest, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
