package mst

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRootLoadTree(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	r := rand.New(rand.NewSource(61))
	leaves := randomLeaves(r, 1000)
	m, err := BuildWith(Config{StoreImmutablePartsWith: store}, leaves)
	require.NoError(t, err)
	root, err := m.MakeRoot(ctx)
	require.NoError(t, err)
	require.NotNil(t, root.Link)
	require.Equal(t, m.Size(), root.Size)
	require.Equal(t, m.Height(), root.Height)

	// A fresh process holds nothing in memory; everything comes back
	// through the store.
	loaded, err := LoadTree(ctx, Config{StoreImmutablePartsWith: store}, root)
	require.NoError(t, err)
	require.Equal(t, m.RootDigest(), loaded.RootDigest())
	require.Equal(t, m.Size(), loaded.Size())
	require.Equal(t, m.BranchFactor(), loaded.BranchFactor())
	fp, found, err := loaded.Get(ctx, leaves[0].Key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, leaves[0].Fingerprint, fp)
	assert.Empty(t, collectDiff(t, m, loaded))
	validateTree(t, loaded)
}

func TestMakeRootEmptyTree(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	m, err := New(Config{StoreImmutablePartsWith: store})
	require.NoError(t, err)
	root, err := m.MakeRoot(ctx)
	require.NoError(t, err)
	require.Nil(t, root.Link)
	loaded, err := LoadTree(ctx, Config{StoreImmutablePartsWith: store}, root)
	require.NoError(t, err)
	require.Equal(t, uint64(0), loaded.Size())
	require.Equal(t, EmptyTreeDigest(), loaded.RootDigest())
}

func TestMakeRootWithoutPersist(t *testing.T) {
	t.Parallel()
	_, err := NewInMemory().MakeRoot(ctx)
	require.Error(t, err)
}

func TestLoadTreeBranchFactorMismatch(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	m, err := BuildWith(Config{StoreImmutablePartsWith: store}, testLeaves(1, 2, 3))
	require.NoError(t, err)
	root, err := m.MakeRoot(ctx)
	require.NoError(t, err)
	_, err = LoadTree(ctx, Config{BranchFactor: 16, StoreImmutablePartsWith: store}, root)
	require.Error(t, err)
}

func TestLoadTreeRulesetMismatch(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	m, err := BuildWith(Config{RulesetVersion: "v1", StoreImmutablePartsWith: store}, testLeaves(1))
	require.NoError(t, err)
	root, err := m.MakeRoot(ctx)
	require.NoError(t, err)
	_, err = LoadTree(ctx, Config{RulesetVersion: "v2", StoreImmutablePartsWith: store}, root)
	require.ErrorIs(t, err, ErrRulesetMismatch)
}

func TestLoadDetectsCorruptStore(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore().(*inMemoryStore)
	m, err := BuildWith(Config{StoreImmutablePartsWith: store}, testLeaves(1, 2, 3))
	require.NoError(t, err)
	root, err := m.MakeRoot(ctx)
	require.NoError(t, err)
	entry := store.entries[*root.Link]
	entry[len(entry)-1] ^= 0xff
	_, err = LoadTree(ctx, Config{StoreImmutablePartsWith: store}, root)
	require.Error(t, err)
}

func TestFlushSkipsAlreadyPersisted(t *testing.T) {
	t.Parallel()
	store := &countingStore{inner: NewInMemoryStore()}
	m, err := BuildWith(Config{StoreImmutablePartsWith: store, NodeCache: NewNodeCache(1024)}, testLeaves(1, 2, 3))
	require.NoError(t, err)
	_, err = m.MakeRoot(ctx)
	require.NoError(t, err)
	first := atomic.LoadInt64(&store.stores)
	require.NotZero(t, first)
	// A second flush of the unchanged version writes nothing.
	_, err = m.MakeRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, first, atomic.LoadInt64(&store.stores))
}

type countingStore struct {
	inner  Persist
	stores int64
}

func (c *countingStore) Store(ctx context.Context, name string, value []byte) error {
	atomic.AddInt64(&c.stores, 1)
	return c.inner.Store(ctx, name, value)
}

func (c *countingStore) Load(ctx context.Context, name string) ([]byte, error) {
	return c.inner.Load(ctx, name)
}
