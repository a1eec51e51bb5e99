package mst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()
	leafNode := &Node{Level: 0, Leaves: []Leaf{testLeaf(1), testLeaf(7), testLeaf(900)}}
	decoded, err := unmarshalNode(marshalNode(leafNode))
	require.NoError(t, err)
	require.Equal(t, leafNode, decoded)
	require.Equal(t, leafNode.digest(), decoded.digest())

	internal := &Node{Level: 2, Children: []ChildRef{
		{Digest: leafNode.digest(), MinKey: 1, MaxKey: 900},
		{Digest: decoded.digest(), MinKey: 901, MaxKey: 5000},
	}}
	decoded, err = unmarshalNode(marshalNode(internal))
	require.NoError(t, err)
	require.Equal(t, internal, decoded)
}

func TestCodecRejectsMalformed(t *testing.T) {
	t.Parallel()
	cases := map[string][]byte{
		"empty":          nil,
		"no entries":     {0, 0},
		"truncated leaf": {0, 1, 1, 2, 3},
		"truncated ref":  append([]byte{1, 2}, make([]byte, childEntrySize)...),
	}
	for name, buf := range cases {
		_, err := unmarshalNode(buf)
		assert.Error(t, err, name)
	}

	// Out-of-order keys are rejected even when sizes line up.
	good := marshalNode(&Node{Level: 0, Leaves: []Leaf{testLeaf(5), testLeaf(9)}})
	swapped := append([]byte(nil), good...)
	copy(swapped[2:2+leafEntrySize], good[2+leafEntrySize:])
	copy(swapped[2+leafEntrySize:], good[2:2+leafEntrySize])
	_, err := unmarshalNode(swapped)
	assert.Error(t, err)
}

func TestParseDigestRoundTrip(t *testing.T) {
	t.Parallel()
	d := EmptyTreeDigest()
	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, parsed)
	_, err = ParseDigest("not base64 ☃")
	require.Error(t, err)
	_, err = ParseDigest("AAAA")
	require.Error(t, err)
}
