package mst

// Build deterministically constructs a tree from the given leaves
// with the default configuration.  The input need not be sorted:
// every permutation of the same leaf set yields the identical root
// digest.  Duplicate keys are rejected with ErrDuplicateKey; empty
// input yields the empty tree, whose root digest is the well-defined
// EmptyTreeDigest.
func Build(leaves []Leaf) (*Tree, error) {
	return BuildWith(Config{}, leaves)
}

// BuildWith is Build with an explicit configuration.
func BuildWith(config Config, leaves []Leaf) (*Tree, error) {
	t, err := New(config)
	if err != nil {
		return nil, err
	}
	sorted, err := sortLeaves(leaves)
	if err != nil {
		return nil, err
	}
	t.buildFrom(sorted)
	return t, nil
}

// buildFrom constructs the tree bottom-up from sorted, deduplicated
// leaves: chunk the leaves into level-0 runs at boundary keys, then
// repeatedly chunk each level into the next until a single node
// remains.  Because boundaries depend only on each key's own hash
// probe, the resulting shape is a pure function of the leaf set.
func (t *Tree) buildFrom(sorted []Leaf) {
	if len(sorted) == 0 {
		t.root = nil
		t.height = 0
		t.size = 0
		return
	}
	items := t.chunkLeaves(sorted)
	level := uint8(0)
	for len(items) > 1 {
		level++
		items = t.chunkChildren(items, level)
	}
	t.root = &items[0]
	t.height = level
	t.size = uint64(len(sorted))
}

// chunkLeaves partitions sorted leaves into level-0 runs.  A run
// closes after a leaf whose boundary level is at least 1, or at the
// end of the sequence.
func (t *Tree) chunkLeaves(leaves []Leaf) []ChildRef {
	var out []ChildRef
	start := 0
	for i := range leaves {
		if i == len(leaves)-1 || t.levelOf(leaves[i].Key) >= 1 {
			n := &Node{Level: 0, Leaves: append([]Leaf(nil), leaves[start:i+1]...)}
			out = append(out, t.storeNode(n))
			start = i + 1
		}
	}
	return out
}

// chunkChildren partitions ordered level-(level-1) references into
// level-`level` nodes.  A group closes after a child whose subtree's
// maximum key has boundary level at least level+1, or at the end of
// the sequence.
func (t *Tree) chunkChildren(children []ChildRef, level uint8) []ChildRef {
	var out []ChildRef
	start := 0
	for i := range children {
		if i == len(children)-1 || t.levelOf(children[i].MaxKey) >= level+1 {
			n := &Node{Level: level, Children: append([]ChildRef(nil), children[start:i+1]...)}
			out = append(out, t.storeNode(n))
			start = i + 1
		}
	}
	return out
}
