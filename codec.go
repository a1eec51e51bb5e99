package mst

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// The node encoding is canonical: there is exactly one byte sequence
// for a given node, because the Digest is computed over it.  Layout:
// one level byte, a uvarint entry count, then fixed-width entries in
// key order.  Level-0 entries are 8-byte big-endian key plus 32-byte
// fingerprint; higher entries are 32-byte child digest plus 8-byte
// big-endian min and max key.

const (
	leafEntrySize  = 8 + 32
	childEntrySize = 32 + 8 + 8
)

func appendLength(buf []byte, n int) []byte {
	var tmpbuf [8]byte
	used := binary.PutUvarint(tmpbuf[:], uint64(n))
	return append(buf, tmpbuf[:used]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmpbuf [8]byte
	binary.BigEndian.PutUint64(tmpbuf[:], v)
	return append(buf, tmpbuf[:]...)
}

func decodeLength(buf []byte, n *int) ([]byte, error) {
	k, used := binary.Uvarint(buf)
	if used <= 0 {
		return nil, errors.New("bad length")
	}
	*n = int(k)
	return buf[used:], nil
}

func marshalNode(n *Node) []byte {
	var buf []byte
	if n.Level == 0 {
		buf = make([]byte, 0, 2+len(n.Leaves)*leafEntrySize)
		buf = append(buf, n.Level)
		buf = appendLength(buf, len(n.Leaves))
		for _, lf := range n.Leaves {
			buf = appendUint64(buf, lf.Key)
			buf = append(buf, lf.Fingerprint[:]...)
		}
		return buf
	}
	buf = make([]byte, 0, 2+len(n.Children)*childEntrySize)
	buf = append(buf, n.Level)
	buf = appendLength(buf, len(n.Children))
	for _, c := range n.Children {
		buf = append(buf, c.Digest[:]...)
		buf = appendUint64(buf, c.MinKey)
		buf = appendUint64(buf, c.MaxKey)
	}
	return buf
}

func unmarshalNode(buf []byte) (*Node, error) {
	if len(buf) == 0 {
		return nil, errors.New("empty node encoding")
	}
	node := Node{Level: buf[0]}
	buf = buf[1:]
	var count int
	buf, err := decodeLength(buf, &count)
	if err != nil {
		return nil, fmt.Errorf("entry count: %w", err)
	}
	if count == 0 {
		return nil, errors.New("node without entries")
	}
	if node.Level == 0 {
		if len(buf) != count*leafEntrySize {
			return nil, fmt.Errorf("leaf node body is %d bytes, want %d", len(buf), count*leafEntrySize)
		}
		node.Leaves = make([]Leaf, count)
		for i := 0; i < count; i++ {
			node.Leaves[i].Key = binary.BigEndian.Uint64(buf)
			copy(node.Leaves[i].Fingerprint[:], buf[8:leafEntrySize])
			buf = buf[leafEntrySize:]
			if i > 0 && node.Leaves[i].Key <= node.Leaves[i-1].Key {
				return nil, errors.New("leaf keys out of order")
			}
		}
		return &node, nil
	}
	if len(buf) != count*childEntrySize {
		return nil, fmt.Errorf("internal node body is %d bytes, want %d", len(buf), count*childEntrySize)
	}
	node.Children = make([]ChildRef, count)
	for i := 0; i < count; i++ {
		copy(node.Children[i].Digest[:], buf[:32])
		node.Children[i].MinKey = binary.BigEndian.Uint64(buf[32:])
		node.Children[i].MaxKey = binary.BigEndian.Uint64(buf[40:])
		buf = buf[childEntrySize:]
		if node.Children[i].MinKey > node.Children[i].MaxKey {
			return nil, errors.New("child key range inverted")
		}
		if i > 0 && node.Children[i].MinKey <= node.Children[i-1].MaxKey {
			return nil, errors.New("child key ranges out of order")
		}
	}
	return &node, nil
}
