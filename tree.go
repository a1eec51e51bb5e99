package mst

import (
	"context"
	"fmt"
	"sort"
)

// Config sets parameters for a tree that would be painful to change
// after it has data.
type Config struct {
	// BranchFactor is the average number of entries per node.  It
	// must be a power of two; 0 means DefaultBranchFactor.  Both
	// sides of a comparison must build with the same value or
	// their trees will not converge structurally.
	BranchFactor uint

	// RulesetVersion tags the canonicalization ruleset the leaves'
	// fingerprints were computed under.  See Fingerprinter.
	RulesetVersion string

	// StoreImmutablePartsWith is used to persist and load
	// serialized nodes.  May be nil for purely in-memory trees.
	StoreImmutablePartsWith Persist

	// NodeCache caches deserialized nodes and may be shared across
	// multiple trees backed by the same Persist.
	NodeCache NodeCache
}

// Tree is a mutable handle over an immutable Merkle Search Tree
// version.  The zero value is not usable; construct with New,
// NewInMemory, Build, or LoadTree.
type Tree struct {
	root           *ChildRef // nil when the tree is empty
	arena          *nodeArena
	branchFactor   uint
	bitsPerLevel   uint
	height         uint8
	size           uint64
	rulesetVersion string
	persist        Persist
	nodeCache      NodeCache
}

// New returns an empty tree with the given configuration.
func New(config Config) (*Tree, error) {
	branchFactor := config.BranchFactor
	if branchFactor == 0 {
		branchFactor = DefaultBranchFactor
	}
	if !validBranchFactor(branchFactor) {
		return nil, fmt.Errorf("branch factor %d is not a power of two", branchFactor)
	}
	return &Tree{
		arena:          newNodeArena(),
		branchFactor:   branchFactor,
		bitsPerLevel:   branchFactorBits(branchFactor),
		rulesetVersion: config.RulesetVersion,
		persist:        config.StoreImmutablePartsWith,
		nodeCache:      config.NodeCache,
	}, nil
}

// NewInMemory returns an empty tree for use as an in-memory data
// structure (i.e. that isn't intended to be remotely persisted).
func NewInMemory() *Tree {
	t, err := New(Config{})
	if err != nil {
		panic(err)
	}
	return t
}

// levelOf computes the boundary level of a key in this tree.
func (t *Tree) levelOf(key uint64) uint8 {
	return keyLevel(key, t.bitsPerLevel)
}

// storeNode assigns the node its content address, retains it in the
// arena, and returns the reference a parent would hold.
func (t *Tree) storeNode(n *Node) ChildRef {
	if n.isEmpty() {
		panic("bug! shouldn't be storing empty nodes")
	}
	d := n.digest()
	t.arena.add(d, n)
	return ChildRef{Digest: d, MinKey: n.minKey(), MaxKey: n.maxKey()}
}

// load resolves a digest to its node, looking in the arena, then the
// node cache, then the persistent store.
func (t *Tree) load(ctx context.Context, d Digest) (*Node, error) {
	if n, ok := t.arena.get(d); ok {
		return n, nil
	}
	if t.nodeCache != nil {
		if v, ok := t.nodeCache.Get(d.String()); ok {
			return v.(*Node), nil
		}
	}
	if t.persist == nil {
		return nil, fmt.Errorf("node %s is not in memory and no persistence is configured", d)
	}
	b, err := t.persist.Load(ctx, d.String())
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", d, err)
	}
	n, err := unmarshalNode(b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", d, err)
	}
	if got := n.digest(); got != d {
		return nil, fmt.Errorf("node %s loaded with digest %s; store is corrupt", d, got)
	}
	if t.nodeCache != nil {
		t.nodeCache.Add(d.String(), n)
	}
	return n, nil
}

// RootDigest returns the tree's identity: the aggregate hash of its
// root, or EmptyTreeDigest for an empty tree.
func (t *Tree) RootDigest() Digest {
	if t.root == nil {
		return emptyTreeDigest
	}
	return t.root.Digest
}

// Size returns the number of leaves in the tree.
func (t *Tree) Size() uint64 {
	return t.size
}

// Height returns the root's level: the number of node layers between
// the leaf runs and the root.
func (t *Tree) Height() uint8 {
	return t.height
}

// BranchFactor returns the ideal number of entries stored per node.
func (t *Tree) BranchFactor() uint {
	return t.branchFactor
}

// RulesetVersion returns the canonicalization ruleset tag the tree
// was configured with.
func (t *Tree) RulesetVersion() string {
	return t.rulesetVersion
}

// Get returns the fingerprint stored for the given key, and whether
// the key is present.
func (t *Tree) Get(ctx context.Context, key uint64) (Fingerprint, bool, error) {
	if t.root == nil {
		return Fingerprint{}, false, nil
	}
	ref := *t.root
	for {
		n, err := t.load(ctx, ref.Digest)
		if err != nil {
			return Fingerprint{}, false, err
		}
		if n.Level == 0 {
			i := sort.Search(len(n.Leaves), func(i int) bool { return n.Leaves[i].Key >= key })
			if i < len(n.Leaves) && n.Leaves[i].Key == key {
				return n.Leaves[i].Fingerprint, true, nil
			}
			return Fingerprint{}, false, nil
		}
		i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].MaxKey >= key })
		if i == len(n.Children) || key < n.Children[i].MinKey {
			return Fingerprint{}, false, nil
		}
		ref = n.Children[i]
	}
}

// Iter iterates over the leaves of the tree in ascending key order,
// invoking the given callback for each.
func (t *Tree) Iter(ctx context.Context, f func(Leaf) error) error {
	if t.root == nil {
		return nil
	}
	return t.iterNode(ctx, *t.root, f)
}

func (t *Tree) iterNode(ctx context.Context, ref ChildRef, f func(Leaf) error) error {
	n, err := t.load(ctx, ref.Digest)
	if err != nil {
		return err
	}
	if n.Level == 0 {
		for _, lf := range n.Leaves {
			if err := f(lf); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range n.Children {
		if err := t.iterNode(ctx, c, f); err != nil {
			return err
		}
	}
	return nil
}

// Clone creates a new handle that can evolve independently from the
// receiver, sharing all unmodified subtrees with it.  The receiver's
// current version is never disturbed by mutations of the clone, and
// vice versa.
func (t *Tree) Clone() *Tree {
	t2 := *t
	if t.root != nil {
		r := *t.root
		t2.root = &r
	}
	return &t2
}

// Fetcher returns a NodeFetcher serving this tree's nodes, for the
// local side of a diff.
func (t *Tree) Fetcher() NodeFetcher {
	return treeFetcher{t}
}

type treeFetcher struct {
	t *Tree
}

func (f treeFetcher) FetchNode(ctx context.Context, d Digest) (*Node, error) {
	return f.t.load(ctx, d)
}
