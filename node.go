package mst

import (
	"sync"

	"github.com/minio/blake2b-simd"
)

// A Node is one immutable tree node.  A level-0 node holds a run of
// consecutive leaves; a higher node holds ordered references to the
// nodes one level below.  Nodes are values addressed by their Digest
// and are never modified after creation; mutation produces a new
// chain of nodes from the changed leaf up to a new root.
type Node struct {
	Level    uint8
	Leaves   []Leaf     // populated iff Level == 0
	Children []ChildRef // populated iff Level > 0
}

// A ChildRef names a child node by digest along with the range of
// keys its subtree covers.  The range is what lets a differ keep two
// cursors aligned without fetching the child.
type ChildRef struct {
	Digest Digest
	MinKey uint64
	MaxKey uint64
}

func (n *Node) minKey() uint64 {
	if n.Level == 0 {
		return n.Leaves[0].Key
	}
	return n.Children[0].MinKey
}

func (n *Node) maxKey() uint64 {
	if n.Level == 0 {
		return n.Leaves[len(n.Leaves)-1].Key
	}
	return n.Children[len(n.Children)-1].MaxKey
}

func (n *Node) isEmpty() bool {
	return len(n.Leaves) == 0 && len(n.Children) == 0
}

// digest computes the node's content address from its canonical
// encoding.
func (n *Node) digest() Digest {
	return Digest(blake2b.Sum256(marshalNode(n)))
}

// nodeArena holds every in-memory node version by content address.
// It is append-only: mutation and building only ever add entries, so
// clones sharing an arena see a stable view of the versions they
// reference.  Content addressing also deduplicates identical subtrees
// across versions for free.
type nodeArena struct {
	mu    sync.RWMutex
	nodes map[Digest]*Node
}

func newNodeArena() *nodeArena {
	return &nodeArena{nodes: map[Digest]*Node{}}
}

func (a *nodeArena) add(d Digest, n *Node) {
	a.mu.Lock()
	if _, ok := a.nodes[d]; !ok {
		a.nodes[d] = n
	}
	a.mu.Unlock()
}

func (a *nodeArena) get(d Digest) (*Node, bool) {
	a.mu.RLock()
	n, ok := a.nodes[d]
	a.mu.RUnlock()
	return n, ok
}
