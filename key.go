package mst

import (
	"encoding/binary"
	"math/bits"

	"github.com/minio/blake2b-simd"
)

// DefaultBranchFactor is the average number of entries per node a
// tree will normally have.  With a branch factor of 32, each leaf has
// a 1/32 chance of being a boundary at each successive level.
const DefaultBranchFactor = 32

// keyLevel deterministically computes a key's boundary level (its
// distance from the leaf layer at which it closes a node) in a tree
// with the given branch factor.  The level is derived from a hash
// probe of the key alone, never its fingerprint, so updating a
// record's fingerprint can never reshape the tree, and the shape of a
// tree is a pure function of its key set.
func keyLevel(key uint64, bitsPerLevel uint) uint8 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	probe := blake2b.Sum256(buf[:])
	return uint8(leadingZeroBits(probe[:]) / int(bitsPerLevel))
}

func leadingZeroBits(b []byte) int {
	n := 0
	for _, x := range b {
		if x != 0 {
			return n + bits.LeadingZeros8(x)
		}
		n += 8
	}
	return n
}

// validBranchFactor reports whether f can be used as a branch factor:
// a power of two of at least 2, so boundary probability is an exact
// number of probe bits per level.
func validBranchFactor(f uint) bool {
	return f >= 2 && f&(f-1) == 0
}

func branchFactorBits(f uint) uint {
	return uint(bits.TrailingZeros(f))
}
