package mst

import (
	"github.com/minio/blake2b-simd"
)

// A Fingerprinter is the canonical fingerprint contract supplied
// externally per service: a pure mapping from a raw extracted record
// to the (key, fingerprint) pair the tree summarizes.
//
// The tree requires exactly two things of an implementation:
// determinism (the same logical state always produces the same
// fingerprint) and normalization agreement (both participating
// services apply equivalent case folding, field ordering and numeric
// formatting before hashing).  Violating either reports spurious
// divergence.  Non-determinism is detectable only indirectly, as
// oscillating fingerprints for an unchanged key across repeated
// scans; monitoring for that is a caller concern.
//
// RulesetVersion tags which revision of the normalization rules the
// fingerprints were computed under.  The differ refuses to compare
// trees with differing tags (ErrRulesetMismatch) so that a rules
// rollout is never mistaken for drift.
type Fingerprinter interface {
	RulesetVersion() string
	Fingerprint(record interface{}) (uint64, Fingerprint, error)
}

// SumFields computes a fingerprint over canonicalized fields.  Each
// field is length-prefixed before hashing so that field boundaries
// are unambiguous ("ab","c" never collides with "a","bc").  Callers
// must pass fields already normalized, in the fixed order both
// services agreed on.
func SumFields(fields ...[]byte) Fingerprint {
	h := blake2b.New256()
	for _, f := range fields {
		h.Write(appendLength(nil, len(f)))
		h.Write(f)
	}
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
