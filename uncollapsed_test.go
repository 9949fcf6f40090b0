package rangedel

import (
	"testing"

	"github.com/lsmkit/rangedel/internal/base"
	"github.com/stretchr/testify/require"
)

func TestUncollapsedMapShouldDelete(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	m.AddTombstone(RangeTombstone{Start: []byte("a"), End: []byte("b"), SeqNum: 10})

	require.True(t, m.ShouldDelete(base.MakeInternalKey([]byte("a"), 9, base.InternalKeyKindSet), FullScan))
	require.False(t, m.ShouldDelete(base.MakeInternalKey([]byte("a"), 10, base.InternalKeyKindSet), FullScan))
	require.False(t, m.ShouldDelete(base.MakeInternalKey([]byte("b"), 9, base.InternalKeyKindSet), FullScan))
}

func TestUncollapsedMapShouldDeleteModeMisuse(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	require.Panics(t, func() {
		m.ShouldDelete(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), BinarySearch)
	})
}

func TestUncollapsedMapIsRangeOverlapped(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	m.AddTombstone(RangeTombstone{Start: []byte("b"), End: []byte("d"), SeqNum: 5})

	require.True(t, m.IsRangeOverlapped([]byte("a"), []byte("c")))
	require.True(t, m.IsRangeOverlapped([]byte("c"), []byte("e")))
	require.False(t, m.IsRangeOverlapped([]byte("d"), []byte("e")))
	require.False(t, m.IsRangeOverlapped([]byte("x"), []byte("y")))
}

func TestUncollapsedMapSizeEmpty(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	require.True(t, m.Empty())
	require.Equal(t, 0, m.Size())

	m.AddTombstone(RangeTombstone{Start: []byte("a"), End: []byte("b"), SeqNum: 1})
	m.AddTombstone(RangeTombstone{Start: []byte("c"), End: []byte("d"), SeqNum: 1})
	require.False(t, m.Empty())
	require.Equal(t, 2, m.Size())
}

func TestUncollapsedMapIterOrder(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	m.AddTombstone(RangeTombstone{Start: []byte("c"), End: []byte("d"), SeqNum: 1})
	m.AddTombstone(RangeTombstone{Start: []byte("a"), End: []byte("b"), SeqNum: 2})

	it := m.NewIter()
	require.True(t, it.Valid())
	require.Equal(t, []byte("a"), it.Tombstone().Start)
	it.Next()
	require.True(t, it.Valid())
	require.Equal(t, []byte("c"), it.Tombstone().Start)
	it.Next()
	require.False(t, it.Valid())
}

func TestUncollapsedMapIterSeekUnsupported(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	m := NewUncollapsedMap(cmp)
	it := m.NewIter()
	require.Panics(t, func() { it.Seek([]byte("a")) })
}

// TestPermutationInvariance checks the coverage-equivalence law of spec §8:
// for any permutation of a tombstone list, the resulting coverage function
// is identical, for both map representations.
func TestPermutationInvariance(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	tombstones := []RangeTombstone{
		{Start: []byte("a"), End: []byte("d"), SeqNum: 5},
		{Start: []byte("b"), End: []byte("c"), SeqNum: 10},
		{Start: []byte("c"), End: []byte("f"), SeqNum: 3},
	}
	queries := []base.InternalKey{
		base.MakeInternalKey([]byte("a"), 4, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("a"), 5, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("b"), 9, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("b"), 10, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("c"), 2, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("c"), 4, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("e"), 2, base.InternalKeyKindSet),
		base.MakeInternalKey([]byte("f"), 2, base.InternalKeyKindSet),
	}

	permutations := [][]int{
		{0, 1, 2},
		{0, 2, 1},
		{1, 0, 2},
		{1, 2, 0},
		{2, 0, 1},
		{2, 1, 0},
	}

	var want []bool
	for permIdx, perm := range permutations {
		um := NewUncollapsedMap(cmp)
		for _, i := range perm {
			um.AddTombstone(tombstones[i])
		}
		cm := NewCollapsedMap(cmp)
		for _, i := range perm {
			cm.AddTombstone(tombstones[i])
		}

		var got []bool
		for _, q := range queries {
			uAns := um.ShouldDelete(q, FullScan)
			cAns := cm.ShouldDelete(q, BinarySearch)
			require.Equal(t, uAns, cAns, "permutation %v query %s: uncollapsed/collapsed disagree", perm, q)
			got = append(got, uAns)
		}
		if permIdx == 0 {
			want = got
		} else {
			require.Equal(t, want, got, "permutation %v produced a different coverage function", perm)
		}
	}
}
