/*
Package mst detects silent data drift between two independently-owned
data stores that share a logical entity by key but may disagree on a
derived subset of fields.  Each store summarizes its current state as
a Merkle Search Tree (MST) over (key, fingerprint) pairs; two trees
built from the same pairs are byte-identical regardless of insertion
order, and structurally diverge only in the subtrees covering changed
keys.  Comparing two roots therefore costs time proportional to the
size of the difference, not the size of the data.

The package provides:

- a canonical fingerprint contract: each store supplies deterministic
(key, fingerprint) pairs for the entity subset both sides agree to
compare (see Fingerprinter and SumFields)

- a deterministic builder from a leaf set (Build), whose root digest
is a pure function of the set

- an incremental mutator (Insert, Update, Delete) that recomputes only
the edited path, guaranteed to converge to the same root digest as a
one-shot Build of the final leaf set

- a differ (DiffRoots, DiffIter) that walks two trees in lockstep over
a NodeFetcher seam, pruning equal-digest subtree pairs, so the two
trees can live in different processes

- a reconciliation report (BuildReport) classifying divergence into
hash mismatches and one-sided keys, with caller-bounded output

# What are MSTs

MSTs are similar to persistent B-Trees, except node boundaries are
deterministically derived from content (here, from a hash probe of
each key), obviating rebalancing and rotations, and resulting in the
property of converging to the same shape even when entries are
inserted in different orders.  Like other Merkle structures, two
instances are cheap to compare: equal node digests indicate equal
contents.  See "Merkle Search Trees: Efficient State-Based CRDTs in
Open Networks", Alex Auvolat and François Taïani, 2019
(https://hal.inria.fr/hal-02303490/document).

Trees can be huge (not limited to memory): nodes are immutable and
content-addressed, so they can be persisted in anything resembling a
blob store (see Persist, with filesystem and S3 implementations under
persist/), cached, and synchronized between hosts.

# Concurrency

A Tree is a mutable handle over immutable node versions.  Clone()
creates a new handle that evolves independently yet shares all
unmodified subtrees with its parent.  Diffing is read-only and may run
concurrently with mutation of either input as long as each side
operates on its own handle.
*/
package mst
