package mst

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// userRecord is the kind of raw extracted record a store-side scan
// produces before fingerprinting.
type userRecord struct {
	ID    uint64
	Email string
	Name  string
}

type userFingerprinter struct{}

func (userFingerprinter) RulesetVersion() string { return "users-v1" }

func (userFingerprinter) Fingerprint(record interface{}) (uint64, Fingerprint, error) {
	u, ok := record.(userRecord)
	if !ok {
		return 0, Fingerprint{}, fmt.Errorf("unexpected record type %T", record)
	}
	return u.ID, SumFields(
		[]byte(strings.ToLower(u.Email)),
		[]byte(strings.ToLower(u.Name)),
	), nil
}

func TestLeafSetRoundTrip(t *testing.T) {
	t.Parallel()
	var fp userFingerprinter
	var s LeafSet
	require.NoError(t, s.AddRecord(fp, userRecord{ID: 2, Email: "B@example.com", Name: "Bee"}))
	require.NoError(t, s.AddRecord(fp, userRecord{ID: 1, Email: "a@example.com", Name: "Ay"}))
	require.Equal(t, 2, s.Len())
	leaves, err := s.Leaves()
	require.NoError(t, err)
	require.Equal(t, uint64(1), leaves[0].Key)
	require.Equal(t, uint64(2), leaves[1].Key)

	// Normalization makes differently-cased scans identical.
	var s2 LeafSet
	require.NoError(t, s2.AddRecord(fp, userRecord{ID: 1, Email: "A@EXAMPLE.COM", Name: "ay"}))
	leaves2, err := s2.Leaves()
	require.NoError(t, err)
	require.Equal(t, leaves[0].Fingerprint, leaves2[0].Fingerprint)
}

func TestLeafSetRejectsBadRecord(t *testing.T) {
	t.Parallel()
	var s LeafSet
	require.Error(t, s.AddRecord(userFingerprinter{}, "not a user"))
}

func TestLeafSetDuplicate(t *testing.T) {
	t.Parallel()
	var s LeafSet
	s.Add(testLeaf(9))
	s.Add(testLeaf(9))
	_, err := s.Leaves()
	require.ErrorIs(t, err, ErrDuplicateKey)
}
