package mst

import (
	"context"
	"fmt"
)

// Category classifies one divergent key.
type Category int

const (
	// HashMismatch: both sides hold the key, with different
	// fingerprints.
	HashMismatch Category = iota
	// MissingLeft: the right side holds the key, the left does not.
	MissingLeft
	// MissingRight: the left side holds the key, the right does not.
	MissingRight
)

func (c Category) String() string {
	switch c {
	case HashMismatch:
		return "hash-mismatch"
	case MissingLeft:
		return "missing-left"
	case MissingRight:
		return "missing-right"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// A DivergentKey is one entry of a diff: a key whose leaf differs
// between the two trees, by fingerprint or by presence.  Left and
// Right hold each side's fingerprint; the absent side's is zero.
type DivergentKey struct {
	Key      uint64
	Category Category
	Left     Fingerprint
	Right    Fingerprint
}

// NodeFetcher abstracts retrieval of a node by digest, so that the
// two trees being diffed can live in different processes: the local
// side is served straight from memory (see Tree.Fetcher) while the
// remote side crosses a wire.  Each fetch may block arbitrarily long;
// the differ tolerates any per-fetch latency and honors context
// cancellation between steps.  A fetch error aborts the walk with a
// *FetchError: an unfetchable subtree is never treated as equal.
type NodeFetcher interface {
	FetchNode(ctx context.Context, d Digest) (*Node, error)
}

// DiffRoots walks two trees in lockstep and invokes the callback for
// every key whose leaf differs between them, in strictly ascending
// key order.  Subtree pairs with equal digests are pruned without
// being fetched, which is what makes the walk cost proportional to
// the size of the difference rather than the size of the data.  The
// walk stops early if the callback returns keepGoing==false or an
// error.
//
// A nil root stands for an empty tree.  Roots carrying differing
// ruleset version tags fail with ErrRulesetMismatch before any
// comparison, since such trees differ by normalization rules, not
// necessarily by data.
func DiffRoots(
	ctx context.Context,
	left, right *Root,
	leftFetch, rightFetch NodeFetcher,
	f func(DivergentKey) (bool, error),
) error {
	if err := checkRulesets(left, right); err != nil {
		return err
	}
	var leftStack, rightStack diffStack
	if err := leftStack.pushRoot(left); err != nil {
		return fmt.Errorf("left root: %w", err)
	}
	if err := rightStack.pushRoot(right); err != nil {
		return fmt.Errorf("right root: %w", err)
	}
	d := differ{
		left:  diffSide{stack: &leftStack, fetch: leftFetch},
		right: diffSide{stack: &rightStack, fetch: rightFetch},
		emit:  f,
	}
	return d.run(ctx)
}

func checkRulesets(left, right *Root) error {
	lv, rv := "", ""
	if left != nil {
		lv = left.RulesetVersion
	}
	if right != nil {
		rv = right.RulesetVersion
	}
	if lv != rv {
		return fmt.Errorf("left %q, right %q: %w", lv, rv, ErrRulesetMismatch)
	}
	return nil
}

// DiffIter diffs the receiver (the left side) against another local
// tree (the right side).  See DiffRoots.
func (t *Tree) DiffIter(ctx context.Context, right *Tree, f func(DivergentKey) (bool, error)) error {
	return DiffRoots(ctx, t.version(), right.version(), t.Fetcher(), right.Fetcher(), f)
}

// A diffItem is one pending step of a side's walk: either a subtree
// reference not yet compared, or a leaf ready to be yielded.
type diffItem struct {
	ref  *ChildRef
	leaf *Leaf
}

type diffStack struct {
	items []diffItem
}

func (s *diffStack) pushRoot(r *Root) error {
	if r == nil || r.Link == nil {
		return nil
	}
	d, err := ParseDigest(*r.Link)
	if err != nil {
		return err
	}
	s.items = append(s.items, diffItem{ref: &ChildRef{Digest: d, MinKey: 0, MaxKey: ^uint64(0)}})
	return nil
}

func (s *diffStack) pop() *diffItem {
	if len(s.items) == 0 {
		return nil
	}
	popped := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return &popped
}

func (s *diffStack) push(item *diffItem) {
	s.items = append(s.items, *item)
}

// pushNode schedules a fetched node's contents, in reverse so the
// smallest key pops first.
func (s *diffStack) pushNode(n *Node) {
	if n.Level == 0 {
		for i := len(n.Leaves) - 1; i >= 0; i-- {
			leaf := n.Leaves[i]
			s.items = append(s.items, diffItem{leaf: &leaf})
		}
		return
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		ref := n.Children[i]
		s.items = append(s.items, diffItem{ref: &ref})
	}
}

type diffSide struct {
	stack *diffStack
	fetch NodeFetcher
}

// expand replaces a subtree reference by its children on the side's
// stack.
func (side *diffSide) expand(ctx context.Context, ref *ChildRef) error {
	n, err := side.fetch.FetchNode(ctx, ref.Digest)
	if err != nil {
		return &FetchError{Digest: ref.Digest, Err: err}
	}
	side.stack.pushNode(n)
	return nil
}

type differ struct {
	left, right diffSide
	emit        func(DivergentKey) (bool, error)
	done        bool
}

func (d *differ) run(ctx context.Context) error {
	for !d.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		l := d.left.stack.pop()
		r := d.right.stack.pop()
		var err error
		switch {
		case l == nil && r == nil:
			return nil
		case l == nil:
			err = d.drain(ctx, &d.right, r, MissingLeft)
		case r == nil:
			err = d.drain(ctx, &d.left, l, MissingRight)
		default:
			err = d.step(ctx, l, r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// drain handles the tail of one side after the other is exhausted:
// every remaining key is one-sided.
func (d *differ) drain(ctx context.Context, side *diffSide, item *diffItem, cat Category) error {
	if item.ref != nil {
		return side.expand(ctx, item.ref)
	}
	return d.yield(*item.leaf, cat)
}

// step advances the lockstep walk by one comparison.
func (d *differ) step(ctx context.Context, l, r *diffItem) error {
	switch {
	case l.ref != nil && r.ref != nil:
		if l.ref.Digest == r.ref.Digest {
			// Identical subtrees; prune, regardless of size.
			return nil
		}
		switch {
		case l.ref.MinKey < r.ref.MinKey:
			d.right.stack.push(r)
			return d.left.expand(ctx, l.ref)
		case l.ref.MinKey > r.ref.MinKey:
			d.left.stack.push(l)
			return d.right.expand(ctx, r.ref)
		default:
			if err := d.left.expand(ctx, l.ref); err != nil {
				return err
			}
			return d.right.expand(ctx, r.ref)
		}
	case l.ref != nil:
		if l.ref.MinKey > r.leaf.Key {
			// The leaf precedes everything left of the cursor.
			d.left.stack.push(l)
			return d.yield(*r.leaf, MissingLeft)
		}
		d.right.stack.push(r)
		return d.left.expand(ctx, l.ref)
	case r.ref != nil:
		if r.ref.MinKey > l.leaf.Key {
			d.right.stack.push(r)
			return d.yield(*l.leaf, MissingRight)
		}
		d.left.stack.push(l)
		return d.right.expand(ctx, r.ref)
	default:
		switch {
		case l.leaf.Key < r.leaf.Key:
			d.right.stack.push(r)
			return d.yield(*l.leaf, MissingRight)
		case l.leaf.Key > r.leaf.Key:
			d.left.stack.push(l)
			return d.yield(*r.leaf, MissingLeft)
		default:
			if l.leaf.Fingerprint == r.leaf.Fingerprint {
				return nil
			}
			return d.mismatch(*l.leaf, *r.leaf)
		}
	}
}

func (d *differ) yield(lf Leaf, cat Category) error {
	dk := DivergentKey{Key: lf.Key, Category: cat}
	switch cat {
	case MissingLeft:
		dk.Right = lf.Fingerprint
	case MissingRight:
		dk.Left = lf.Fingerprint
	}
	return d.send(dk)
}

func (d *differ) mismatch(l, r Leaf) error {
	return d.send(DivergentKey{
		Key:      l.Key,
		Category: HashMismatch,
		Left:     l.Fingerprint,
		Right:    r.Fingerprint,
	})
}

func (d *differ) send(dk DivergentKey) error {
	keepGoing, err := d.emit(dk)
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	if !keepGoing {
		d.done = true
	}
	return nil
}
