package rangedel

import (
	"testing"

	"github.com/lsmkit/rangedel/internal/base"
	"github.com/stretchr/testify/require"
)

func TestAggregatorGetStripe(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{Comparer: &base.Comparer{Compare: cmp, Name: "test"}},
		[]base.SeqNum{5, 15}, true)

	// Stripe boundaries are {5, 15, SeqNumMax}: GetStripe(seq) belongs to
	// the stripe just above the snapshot at or below seq-1 (spec §4.3.1).
	require.Same(t, a.stripes[0], a.GetStripe(1))
	require.Same(t, a.stripes[0], a.GetStripe(5))
	require.Same(t, a.stripes[1], a.GetStripe(6))
	require.Same(t, a.stripes[1], a.GetStripe(15))
	require.Same(t, a.stripes[2], a.GetStripe(16))
	require.Same(t, a.stripes[2], a.GetStripe(base.SeqNumMax))
	// seq 0 never belongs to any real tombstone, but must still route
	// somewhere without underflowing seq-1.
	require.Same(t, a.stripes[0], a.GetStripe(0))
}

func TestAggregatorAddTombstonesAndShouldDelete(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("a"), End: []byte("d"), SeqNum: 5},
		{Start: []byte("b"), End: []byte("c"), SeqNum: 10},
	})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	require.True(t, a.ShouldDelete(base.MakeInternalKey([]byte("a"), 4, base.InternalKeyKindSet), BinarySearch))
	require.True(t, a.ShouldDelete(base.MakeInternalKey([]byte("b"), 9, base.InternalKeyKindSet), BinarySearch))
	require.False(t, a.ShouldDelete(base.MakeInternalKey([]byte("b"), 10, base.InternalKeyKindSet), BinarySearch))
	require.False(t, a.ShouldDelete(base.MakeInternalKey([]byte("d"), 1, base.InternalKeyKindSet), BinarySearch))
}

// TestAggregatorTruncation grounds on spec §8 scenario 5: tombstones
// truncated to an SST's [smallest, largest) bounds, with both boundary
// keys carrying kind RangeDelete so no boundary-precision refinement
// applies -- just a plain interval clip.
func TestAggregatorTruncation(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("a"), End: []byte("c"), SeqNum: 10},
		{Start: []byte("d"), End: []byte("f"), SeqNum: 10},
	})
	smallest := base.MakeInternalKey([]byte("b"), base.SeqNumMax, base.InternalKeyKindRangeDelete)
	largest := base.MakeInternalKey([]byte("e"), base.SeqNumMax, base.InternalKeyKindRangeDelete)
	require.NoError(t, a.AddTombstones(iter, &smallest, &largest))

	cm, ok := a.GetStripe(10).(*CollapsedMap)
	require.True(t, ok)
	require.Equal(t, "b:10 c:0 d:10 e:0", formatCollapsed(cm))

	// (a, *) is outside the file entirely and passes through unshadowed.
	require.False(t, a.ShouldDelete(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), BinarySearch))
	// (b, *) is inside the truncated [b, c) span.
	require.True(t, a.ShouldDelete(base.MakeInternalKey([]byte("b"), 9, base.InternalKeyKindSet), BinarySearch))
	// (e, *) is excluded: truncation clipped the second tombstone's End to e.
	require.False(t, a.ShouldDelete(base.MakeInternalKey([]byte("e"), 1, base.InternalKeyKindSet), BinarySearch))
}

// TestAggregatorTruncationSuppressesEntirely grounds on RocksDB's
// TruncateTombstones test: a tombstone entirely outside [smallest, largest]
// is dropped rather than ingested as an empty interval.
func TestAggregatorTruncationSuppressesEntirely(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("a"), End: []byte("b"), SeqNum: 10},
	})
	smallest := base.MakeInternalKey([]byte("x"), base.SeqNumMax, base.InternalKeyKindRangeDelete)
	largest := base.MakeInternalKey([]byte("y"), base.SeqNumMax, base.InternalKeyKindRangeDelete)
	require.NoError(t, a.AddTombstones(iter, &smallest, &largest))
	require.True(t, a.IsEmpty())
}

func TestAggregatorIsRangeOverlapped(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, false)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("b"), End: []byte("d"), SeqNum: 5},
	})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	require.True(t, a.IsRangeOverlapped([]byte("a"), []byte("c")))
	require.False(t, a.IsRangeOverlapped([]byte("x"), []byte("z")))
}

func TestAggregatorIsEmpty(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()
	require.True(t, a.IsEmpty())

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{{Start: []byte("a"), End: []byte("b"), SeqNum: 1}})
	require.NoError(t, a.AddTombstones(iter, nil, nil))
	require.False(t, a.IsEmpty())
}

func TestAggregatorShouldAddTombstones(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, []base.SeqNum{5}, true)
	defer a.Close()

	// Ingest only into the oldest stripe (seq below the snapshot).
	iter := NewMemTombstoneIter(cmp, []RangeTombstone{{Start: []byte("a"), End: []byte("b"), SeqNum: 2}})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	require.True(t, a.ShouldAddTombstones(false))
	// At the bottommost level the oldest stripe is obsolete; nothing left.
	require.False(t, a.ShouldAddTombstones(true))
}

func TestAggregatorAddToBuilder(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("b"), End: []byte("f"), SeqNum: 10},
	})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	builder := NewSliceTableBuilder()
	meta, err := a.AddToBuilder(builder, []byte("c"), []byte("e"), false)
	require.NoError(t, err)
	require.Len(t, builder.Keys, 1)

	// The emitted smallest key is pinned to lowerBound at the lowest
	// possible seqnum, a pseudo-boundary key so output files partition
	// cleanly along the key space (spec §4.3.4).
	require.True(t, meta.HasSmallest)
	require.Equal(t, []byte("c"), meta.Smallest.UserKey)
	require.EqualValues(t, 0, meta.Smallest.SeqNum())

	require.True(t, meta.HasLargest)
	require.Equal(t, []byte("e"), meta.Largest.UserKey)
	require.Equal(t, base.SeqNumMax, meta.Largest.SeqNum())

	require.True(t, meta.HasSeqNums)
	require.EqualValues(t, 10, meta.SmallestSeqNum)
	require.EqualValues(t, 10, meta.LargestSeqNum)
}

func TestAggregatorGetTombstone(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{{Start: []byte("a"), End: []byte("c"), SeqNum: 10}})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	pt := a.GetTombstone(base.MakeInternalKey([]byte("b"), 1, base.InternalKeyKindSet), 1)
	require.EqualValues(t, 10, pt.SeqNum)
}

func TestAggregatorGetTombstoneModeMisuse(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, false)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{{Start: []byte("a"), End: []byte("c"), SeqNum: 10}})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	require.Panics(t, func() {
		a.GetTombstone(base.MakeInternalKey([]byte("b"), 1, base.InternalKeyKindSet), 1)
	})
}

// TestAggregatorStripeIteration grounds on spec §8 scenario 6: with
// snapshot stripes at {5, 15}, tombstones {(a, c, 10), (b, c, 11),
// (c, d, 20), (e, f, 20), (f, g, 10)} route into two non-empty stripes
// (seq 10/11 below the 15 snapshot, seq 20 above it). A seek-to-"c"
// traversal of each stripe's own iterator yields that stripe's
// tombstones in Start order, matching the per-stripe sequences the
// scenario's overall result is merged from.
func TestAggregatorStripeIteration(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, []base.SeqNum{5, 15}, true)
	defer a.Close()

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{
		{Start: []byte("a"), End: []byte("c"), SeqNum: 10},
		{Start: []byte("b"), End: []byte("c"), SeqNum: 11},
		{Start: []byte("c"), End: []byte("d"), SeqNum: 20},
		{Start: []byte("e"), End: []byte("f"), SeqNum: 20},
		{Start: []byte("f"), End: []byte("g"), SeqNum: 10},
	})
	require.NoError(t, a.AddTombstones(iter, nil, nil))

	seekFrom := func(stripe TombstoneMap) []string {
		it := stripe.NewIter()
		it.Seek([]byte("c"))
		var got []string
		for it.Valid() {
			tomb := it.Tombstone()
			got = append(got, string(tomb.Start)+"-"+string(tomb.End))
			it.Next()
		}
		return got
	}

	// Stripe for seq 10/11 (below the 15 snapshot): only "f-g" remains at
	// or after "c".
	require.Equal(t, []string{"f-g"}, seekFrom(a.GetStripe(10)))
	// Stripe for seq 20 (above every snapshot): both transitions survive.
	require.Equal(t, []string{"c-d", "e-f"}, seekFrom(a.GetStripe(20)))
}

func TestAggregatorAddTombstonesNilIterator(t *testing.T) {
	a := NewCompactionAggregator(&Options{}, nil, true)
	defer a.Close()
	require.NoError(t, a.AddTombstones(nil, nil, nil))
}

func TestAggregatorClosePinsIterators(t *testing.T) {
	cmp := base.DefaultComparer.Compare
	a := NewCompactionAggregator(&Options{}, nil, true)

	iter := NewMemTombstoneIter(cmp, []RangeTombstone{{Start: []byte("a"), End: []byte("b"), SeqNum: 1}})
	require.NoError(t, a.AddTombstones(iter, nil, nil))
	require.Len(t, a.pinnedIters, 1)
	require.NoError(t, a.Close())
	require.Empty(t, a.pinnedIters)
}
