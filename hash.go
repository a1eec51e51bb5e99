package mst

import (
	"encoding/base64"
	"fmt"

	"github.com/minio/blake2b-simd"
)

// A Fingerprint is the leaf hash: a 256-bit digest of the
// canonicalized, normalized subset of fields both sides agree to
// compare.  It is produced externally (see Fingerprinter) and treated
// as opaque, with equality semantics only.
type Fingerprint [32]byte

// A Digest is the aggregate hash identifying a tree node: the
// blake2b-256 of the node's canonical encoding.  It is a pure
// function of the node's children, so two nodes with identical child
// sets always have identical digests, which is the property diffing
// depends on.  A Digest doubles as the node's content address in a
// Persist store.
type Digest [32]byte

// emptyTreeDigest is the root digest of a tree with no leaves, the
// hash of empty input.
var emptyTreeDigest = Digest(blake2b.Sum256(nil))

// EmptyTreeDigest returns the well-defined root digest of an empty
// tree, the base case for diffing.
func EmptyTreeDigest() Digest {
	return emptyTreeDigest
}

// String renders the digest the way it is named in a Persist store.
func (d Digest) String() string {
	return base64.RawURLEncoding.EncodeToString(d[:])
}

// ParseDigest decodes a digest previously rendered with String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("decode digest: got %d bytes, want %d", len(b), len(d))
	}
	copy(d[:], b)
	return d, nil
}
