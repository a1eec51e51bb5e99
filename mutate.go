package mst

import (
	"context"
	"fmt"
	"sort"
)

// Insert adds a leaf for a key the tree does not yet contain.
// Because node boundaries are content-defined, the edit recomputes
// only the chain of nodes covering the key; if the new key is itself
// a boundary, the covering node at each level below the key's own
// level splits in two, and the split propagates no further.  Applied
// leaf-by-leaf to an empty tree, Insert produces the exact same root
// digest as Build given the same final leaf set, regardless of edit
// order.
func (t *Tree) Insert(ctx context.Context, lf Leaf) error {
	if t.root == nil {
		ref := t.storeNode(&Node{Level: 0, Leaves: []Leaf{lf}})
		t.root = &ref
		t.height = 0
		t.size = 1
		return nil
	}
	refs, err := t.insertAt(ctx, *t.root, lf)
	if err != nil {
		return err
	}
	level := t.height
	for len(refs) > 1 {
		level++
		refs = t.chunkChildren(refs, level)
	}
	t.root = &refs[0]
	t.height = level
	t.size++
	return nil
}

// insertAt returns the replacement references, at ref's level, for
// the subtree at ref with lf added.  There are two replacements
// exactly when lf introduces a boundary inside the subtree's covering
// chain.
func (t *Tree) insertAt(ctx context.Context, ref ChildRef, lf Leaf) ([]ChildRef, error) {
	n, err := t.load(ctx, ref.Digest)
	if err != nil {
		return nil, err
	}
	if n.Level == 0 {
		i := sort.Search(len(n.Leaves), func(i int) bool { return n.Leaves[i].Key >= lf.Key })
		if i < len(n.Leaves) && n.Leaves[i].Key == lf.Key {
			return nil, fmt.Errorf("insert key %d: %w", lf.Key, ErrAlreadyExists)
		}
		leaves := make([]Leaf, 0, len(n.Leaves)+1)
		leaves = append(leaves, n.Leaves[:i]...)
		leaves = append(leaves, lf)
		leaves = append(leaves, n.Leaves[i:]...)
		return t.chunkLeaves(leaves), nil
	}
	// A key between two subtrees belongs to the one on the right:
	// chunk membership starts after the previous boundary.
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].MaxKey >= lf.Key })
	if i == len(n.Children) {
		i--
	}
	reps, err := t.insertAt(ctx, n.Children[i], lf)
	if err != nil {
		return nil, err
	}
	children := make([]ChildRef, 0, len(n.Children)+len(reps)-1)
	children = append(children, n.Children[:i]...)
	children = append(children, reps...)
	children = append(children, n.Children[i+1:]...)
	return t.chunkChildren(children, n.Level), nil
}

// Update replaces the fingerprint stored for an existing key.  A
// key's boundary level never depends on its fingerprint, so an update
// recomputes the covering chain's digests without reshaping anything.
func (t *Tree) Update(ctx context.Context, lf Leaf) error {
	if t.root == nil {
		return fmt.Errorf("update key %d: %w", lf.Key, ErrNotFound)
	}
	ref, err := t.updateAt(ctx, *t.root, lf)
	if err != nil {
		return err
	}
	t.root = &ref
	return nil
}

func (t *Tree) updateAt(ctx context.Context, ref ChildRef, lf Leaf) (ChildRef, error) {
	n, err := t.load(ctx, ref.Digest)
	if err != nil {
		return ChildRef{}, err
	}
	if n.Level == 0 {
		i := sort.Search(len(n.Leaves), func(i int) bool { return n.Leaves[i].Key >= lf.Key })
		if i == len(n.Leaves) || n.Leaves[i].Key != lf.Key {
			return ChildRef{}, fmt.Errorf("update key %d: %w", lf.Key, ErrNotFound)
		}
		if n.Leaves[i].Fingerprint == lf.Fingerprint {
			return ref, nil
		}
		leaves := append([]Leaf(nil), n.Leaves...)
		leaves[i] = lf
		return t.storeNode(&Node{Level: 0, Leaves: leaves}), nil
	}
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].MaxKey >= lf.Key })
	if i == len(n.Children) || lf.Key < n.Children[i].MinKey {
		return ChildRef{}, fmt.Errorf("update key %d: %w", lf.Key, ErrNotFound)
	}
	rep, err := t.updateAt(ctx, n.Children[i], lf)
	if err != nil {
		return ChildRef{}, err
	}
	if rep == n.Children[i] {
		return ref, nil
	}
	children := append([]ChildRef(nil), n.Children...)
	children[i] = rep
	return t.storeNode(&Node{Level: n.Level, Children: children}), nil
}

// Delete removes the leaf for an existing key.  If the key was a
// boundary, the node groups it kept apart merge back together at
// every level below the key's own level.
func (t *Tree) Delete(ctx context.Context, key uint64) error {
	if t.root == nil {
		return fmt.Errorf("delete key %d: %w", key, ErrNotFound)
	}
	refs, err := t.deleteAt(ctx, *t.root, key)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		t.root = nil
		t.height = 0
		t.size = 0
		return nil
	}
	// The canonical root is the lowest node covering every leaf:
	// shed any single-child chain left at the top.
	ref := refs[0]
	for {
		n, err := t.load(ctx, ref.Digest)
		if err != nil {
			return err
		}
		if n.Level == 0 || len(n.Children) > 1 {
			t.height = n.Level
			break
		}
		ref = n.Children[0]
	}
	t.root = &ref
	t.size--
	return nil
}

func (t *Tree) deleteAt(ctx context.Context, ref ChildRef, key uint64) ([]ChildRef, error) {
	n, err := t.load(ctx, ref.Digest)
	if err != nil {
		return nil, err
	}
	if n.Level == 0 {
		i := sort.Search(len(n.Leaves), func(i int) bool { return n.Leaves[i].Key >= key })
		if i == len(n.Leaves) || n.Leaves[i].Key != key {
			return nil, fmt.Errorf("delete key %d: %w", key, ErrNotFound)
		}
		if len(n.Leaves) == 1 {
			return nil, nil
		}
		leaves := make([]Leaf, 0, len(n.Leaves)-1)
		leaves = append(leaves, n.Leaves[:i]...)
		leaves = append(leaves, n.Leaves[i+1:]...)
		return t.chunkLeaves(leaves), nil
	}
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].MaxKey >= key })
	if i == len(n.Children) || key < n.Children[i].MinKey {
		return nil, fmt.Errorf("delete key %d: %w", key, ErrNotFound)
	}
	reps, err := t.deleteAt(ctx, n.Children[i], key)
	if err != nil {
		return nil, err
	}
	children := make([]ChildRef, 0, len(n.Children)+len(reps)-1)
	children = append(children, n.Children[:i]...)
	children = append(children, reps...)
	children = append(children, n.Children[i+1:]...)
	if key == n.Children[i].MaxKey && len(reps) > 0 {
		// The deleted key was the boundary separating the edited
		// subtree from its right sibling; merge them back.
		li := i + len(reps) - 1
		if li+1 < len(children) {
			merged, err := t.mergeNodes(ctx, children[li], children[li+1])
			if err != nil {
				return nil, err
			}
			children = append(children[:li], append(merged, children[li+2:]...)...)
		}
	}
	if len(children) == 0 {
		return nil, nil
	}
	return t.chunkChildren(children, n.Level), nil
}

// mergeNodes combines two same-level siblings whose separating
// boundary has been deleted, recursing down the seam between them,
// and returns the replacement references at their level.
func (t *Tree) mergeNodes(ctx context.Context, left, right ChildRef) ([]ChildRef, error) {
	l, err := t.load(ctx, left.Digest)
	if err != nil {
		return nil, fmt.Errorf("load left: %w", err)
	}
	r, err := t.load(ctx, right.Digest)
	if err != nil {
		return nil, fmt.Errorf("load right: %w", err)
	}
	if l.Level != r.Level {
		panic(fmt.Sprintf("merging nodes of levels %d and %d", l.Level, r.Level))
	}
	if l.Level == 0 {
		leaves := make([]Leaf, 0, len(l.Leaves)+len(r.Leaves))
		leaves = append(leaves, l.Leaves...)
		leaves = append(leaves, r.Leaves...)
		return t.chunkLeaves(leaves), nil
	}
	kids := make([]ChildRef, 0, len(l.Children)+len(r.Children))
	kids = append(kids, l.Children...)
	kids = append(kids, r.Children...)
	seam := len(l.Children) - 1
	if t.levelOf(kids[seam].MaxKey) < l.Level {
		// No boundary separates the seam children anymore.
		merged, err := t.mergeNodes(ctx, kids[seam], kids[seam+1])
		if err != nil {
			return nil, err
		}
		kids = append(kids[:seam], append(merged, kids[seam+2:]...)...)
	}
	return t.chunkChildren(kids, l.Level), nil
}
