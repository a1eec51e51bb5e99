package file_test

import (
	"context"
	"testing"

	mst "github.com/Migorithm/mst-go"
	"github.com/Migorithm/mst-go/persist/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyCase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := file.NewPersistForPath(t.TempDir())
	err := p.Store(ctx, "foofoo", []byte("here is some stuff"))
	require.NoError(t, err)
	b, err := p.Load(ctx, "foofoo")
	require.NoError(t, err)
	assert.Equal(t, []byte("here is some stuff"), b)
}

func TestStoreIsImmutable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := file.NewPersistForPath(t.TempDir())
	require.NoError(t, p.Store(ctx, "name", []byte("original")))
	require.NoError(t, p.Store(ctx, "name", []byte("rewrite attempt")))
	b, err := p.Load(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), b)
}

func TestTreeRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := file.NewPersistForPath(t.TempDir())

	tree, err := mst.New(mst.Config{StoreImmutablePartsWith: p})
	require.NoError(t, err)
	for i := uint64(0); i < 500; i++ {
		require.NoError(t, tree.Insert(ctx, mst.Leaf{Key: i, Fingerprint: mst.SumFields([]byte{byte(i)})}))
	}
	root, err := tree.MakeRoot(ctx)
	require.NoError(t, err)

	reloaded, err := mst.LoadTree(ctx, mst.Config{StoreImmutablePartsWith: p}, root)
	require.NoError(t, err)
	require.Equal(t, tree.RootDigest(), reloaded.RootDigest())
	fp, found, err := reloaded.Get(ctx, 123)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mst.SumFields([]byte{123}), fp)
}
