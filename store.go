package mst

import (
	"context"
	"fmt"
	"sync"
)

// Persist is the interface for loading and storing serialized tree
// nodes.  The given name is the node's digest rendered as a string,
// so the content for a name is immutable and never modified; a Store
// for a name that already exists may be a no-op.
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(ctx context.Context, name string, value []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(ctx context.Context, name string) ([]byte, error)
}

// Root identifies a version of a tree whose nodes are accessible in
// the persistent store.  It is the only piece of state two processes
// need to exchange before diffing: everything else is fetched on
// demand, by digest.
type Root struct {
	Link           *string
	Size           uint64
	Height         uint8
	BranchFactor   uint
	RulesetVersion string
}

// version captures the tree's current identity as a Root descriptor,
// without requiring the nodes to have been flushed.
func (t *Tree) version() *Root {
	r := Root{
		Size:           t.size,
		Height:         t.height,
		BranchFactor:   t.branchFactor,
		RulesetVersion: t.rulesetVersion,
	}
	if t.root != nil {
		link := t.root.Digest.String()
		r.Link = &link
	}
	return &r
}

// flushParallelism bounds how many nodes are stored concurrently
// during a flush.
const flushParallelism = 40

// flush serializes this version's nodes into the persistent store.
func (t *Tree) flush(ctx context.Context) error {
	if t.persist == nil {
		return fmt.Errorf("no persistence mechanism set; set Config.StoreImmutablePartsWith")
	}
	if t.root == nil {
		return nil
	}
	var pending []Digest
	t.gather(t.root.Digest, map[Digest]bool{}, &pending)
	gate := make(chan struct{}, flushParallelism)
	var (
		wg            sync.WaitGroup
		seLock        sync.Mutex
		firstStoreErr error
	)
	for _, d := range pending {
		d := d
		wg.Add(1)
		gate <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-gate }()
			seLock.Lock()
			failed := firstStoreErr != nil
			seLock.Unlock()
			if failed {
				return
			}
			err := t.storeOne(ctx, d)
			if err != nil {
				seLock.Lock()
				if firstStoreErr == nil {
					firstStoreErr = err
				}
				seLock.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstStoreErr
}

// gather collects the digests of in-memory nodes reachable from d.
// Nodes absent from the arena were loaded from the store and are
// already persisted.
func (t *Tree) gather(d Digest, seen map[Digest]bool, pending *[]Digest) {
	if seen[d] {
		return
	}
	seen[d] = true
	n, ok := t.arena.get(d)
	if !ok {
		return
	}
	if t.nodeCache != nil && t.nodeCache.Contains(d.String()) {
		return
	}
	*pending = append(*pending, d)
	for _, c := range n.Children {
		t.gather(c.Digest, seen, pending)
	}
}

func (t *Tree) storeOne(ctx context.Context, d Digest) error {
	n, ok := t.arena.get(d)
	if !ok {
		panic("gathered node vanished from arena")
	}
	err := t.persist.Store(ctx, d.String(), marshalNode(n))
	if err != nil {
		return fmt.Errorf("persist store %s: %w", d, err)
	}
	if t.nodeCache != nil {
		t.nodeCache.Add(d.String(), n)
	}
	return nil
}

// MakeRoot persists every node of the current version and returns the
// Root descriptor another process can load or diff against.
func (t *Tree) MakeRoot(ctx context.Context) (*Root, error) {
	if err := t.flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return t.version(), nil
}

// LoadTree opens a tree previously described by MakeRoot.  The root
// node is loaded and verified; other nodes are loaded on demand.
func LoadTree(ctx context.Context, config Config, r *Root) (*Tree, error) {
	if config.BranchFactor == 0 {
		config.BranchFactor = r.BranchFactor
	}
	if config.BranchFactor != r.BranchFactor {
		return nil, fmt.Errorf("configured branch factor %d differs from root's %d", config.BranchFactor, r.BranchFactor)
	}
	if config.RulesetVersion == "" {
		config.RulesetVersion = r.RulesetVersion
	}
	if config.RulesetVersion != r.RulesetVersion {
		return nil, fmt.Errorf("configured ruleset %q differs from root's %q: %w",
			config.RulesetVersion, r.RulesetVersion, ErrRulesetMismatch)
	}
	t, err := New(config)
	if err != nil {
		return nil, err
	}
	t.size = r.Size
	t.height = r.Height
	if r.Link == nil {
		if r.Size != 0 {
			return nil, fmt.Errorf("root with empty link but size %d", r.Size)
		}
		return t, nil
	}
	d, err := ParseDigest(*r.Link)
	if err != nil {
		return nil, fmt.Errorf("root link: %w", err)
	}
	ref := ChildRef{Digest: d}
	node, err := t.load(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}
	if node.Level != r.Height {
		return nil, fmt.Errorf("root node has level %d, expected height %d", node.Level, r.Height)
	}
	ref.MinKey = node.minKey()
	ref.MaxKey = node.maxKey()
	if err := t.checkRoot(node); err != nil {
		return nil, fmt.Errorf("checkRoot: %w", err)
	}
	t.root = &ref
	return t, nil
}

// checkRoot catches a tree being reopened with a different branch
// factor than it was built with, which would otherwise surface as
// baffling shape divergence much later.
func (t *Tree) checkRoot(node *Node) error {
	if node.Level == 0 {
		return nil
	}
	for i, c := range node.Children {
		if i == len(node.Children)-1 {
			continue
		}
		if t.levelOf(c.MaxKey) < node.Level {
			return fmt.Errorf("inconsistent boundary levels; ensure the same branch factor as the tree was built with")
		}
	}
	return nil
}
