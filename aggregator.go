package rangedel

import (
	"sort"

	"github.com/lsmkit/rangedel/internal/base"
)

// Aggregator combines the range tombstones visible across a set of
// snapshot stripes and answers ShouldDelete/IsRangeOverlapped/emission
// queries against them (spec §4.3). A compaction aggregator is built over
// the compaction's snapshot list with collapsing enabled; a read
// aggregator is built over a single snapshot, uncollapsed, since a point
// read only ever issues a single ShouldDelete call per key and gains
// nothing from collapsing (spec §4.1 vs §4.2 tradeoff).
type Aggregator struct {
	opts *Options
	cmp  base.Compare

	collapse bool
	// bounds is ascending; bounds[len(bounds)-1] is always base.SeqNumMax,
	// the catch-all stripe for data newer than every snapshot.
	bounds  []base.SeqNum
	stripes []TombstoneMap

	// pinnedIters holds every SourceIterator passed to AddTombstones that
	// yielded at least one record, since decoded tombstones may alias its
	// buffers (spec §5). Released by Close.
	pinnedIters []SourceIterator

	// spans is a supplementary coalesced-span index mirroring every
	// ingested tombstone across all stripes, updated alongside GetStripe
	// routing. It does not participate in ShouldDelete/GetTombstone
	// correctness; it backs OverlappingSeqNum for callers that want a
	// cheap answer without walking stripes (see TombstonedSpans).
	spans *TombstonedSpans
}

// NewCompactionAggregator builds an Aggregator over the given snapshot
// sequence numbers, suitable for driving a compaction: every stripe below
// base.SeqNumMax corresponds to one snapshot, plus the catch-all stripe.
func NewCompactionAggregator(opts *Options, snapshots []base.SeqNum, collapse bool) *Aggregator {
	return newAggregator(opts, collapse, snapshots)
}

// NewReadAggregator builds an Aggregator over a single snapshot, suitable
// for driving a point read at that snapshot. Read aggregators are never
// collapsed: a read issues one ShouldDelete call per key it considers, so
// collapsing's amortized query speedup has nothing to amortize over, while
// its insertion cost would still be paid in full (spec §4.1 vs §4.2).
func NewReadAggregator(opts *Options, snapshot base.SeqNum) *Aggregator {
	return newAggregator(opts, false, []base.SeqNum{snapshot})
}

func newAggregator(opts *Options, collapse bool, snapshots []base.SeqNum) *Aggregator {
	opts = opts.EnsureDefaults()

	bounds := append([]base.SeqNum(nil), snapshots...)
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })
	if n := len(bounds); n == 0 || bounds[n-1] != base.SeqNumMax {
		bounds = append(bounds, base.SeqNumMax)
	}

	a := &Aggregator{
		opts:     opts,
		cmp:      opts.Comparer.Compare,
		collapse: collapse,
		bounds:   bounds,
		stripes:  make([]TombstoneMap, len(bounds)),
		spans:    NewTombstonedSpans(opts.Comparer.Compare),
	}
	for i := range a.stripes {
		a.stripes[i] = a.newTombstoneMap()
	}
	if a.opts.Metrics != nil {
		a.opts.Metrics.StripeCount.Set(float64(len(a.stripes)))
	}
	return a
}

func (a *Aggregator) newTombstoneMap() TombstoneMap {
	if a.collapse {
		return NewCollapsedMap(a.cmp)
	}
	return NewUncollapsedMap(a.cmp)
}

// GetStripe returns the stripe a tombstone or query at seq belongs to
// (spec §4.3.1): the stripe just above the snapshot at or below seq - 1,
// so that a tombstone at exactly a snapshot's sequence is invisible at
// that snapshot.
func (a *Aggregator) GetStripe(seq base.SeqNum) TombstoneMap {
	idx := 0
	if seq > 0 {
		idx = sort.Search(len(a.bounds), func(i int) bool { return a.bounds[i] > seq-1 })
	}
	return a.stripes[idx]
}

func (a *Aggregator) invalidatePositions() {
	for _, s := range a.stripes {
		s.InvalidatePosition()
	}
}

// AddTombstones decodes and ingests every record from iter, truncating
// each tombstone to [smallest, largest] first if those bounds are
// supplied (spec §4.3.2). The aggregator takes ownership of iter: it is
// retained and closed by Close if it yielded any record, and closed
// immediately otherwise.
func (a *Aggregator) AddTombstones(iter SourceIterator, smallest, largest *base.InternalKey) error {
	if iter == nil {
		return nil
	}
	a.invalidatePositions()

	iter.First()
	sawAny := false
	for iter.Valid() {
		sawAny = true
		t, err := Decode(iter.Key(), iter.Value())
		if err != nil {
			iter.Close()
			return err
		}
		if smallest != nil || largest != nil {
			truncated, ok := truncateToFileBounds(a.cmp, t, smallest, largest)
			if !ok {
				a.opts.Logger.Infof("rangedel: tombstone [%q, %q) suppressed entirely by file bounds",
					t.Start, t.End)
				iter.Next()
				continue
			}
			t = truncated
		}
		a.GetStripe(t.SeqNum).AddTombstone(t)
		a.spans.Add(t.Start, t.End, t.SeqNum)
		if a.opts.Metrics != nil {
			a.opts.Metrics.TombstonesIngested.Inc()
		}
		iter.Next()
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	if sawAny {
		a.pinnedIters = append(a.pinnedIters, iter)
	} else {
		iter.Close()
	}
	return nil
}

// truncateToFileBounds narrows t to the user-key span implied by an SST's
// smallest/largest internal keys, returning ok=false if the intersection
// is empty (spec §4.3.2). When a boundary key's kind is not RangeDeletion,
// the truncated edge also gets a StartBoundary/EndBoundary annotation
// pinning coverage at that exact user key to the boundary key's sequence
// number, since such a key marks a specific version of the user key that
// was (or was not) present in the file, not just a plain interval clip.
func truncateToFileBounds(cmp base.Compare, t RangeTombstone, smallest, largest *base.InternalKey) (RangeTombstone, bool) {
	if smallest != nil && cmp(smallest.UserKey, t.Start) > 0 {
		t.Start = smallest.UserKey
		if smallest.Kind() != base.InternalKeyKindRangeDelete {
			t.StartBoundary = &Boundary{SeqNum: smallest.SeqNum(), TombstoneSeq: t.SeqNum}
		}
	}
	if largest != nil && cmp(largest.UserKey, t.End) < 0 {
		t.End = largest.UserKey
		if largest.Kind() != base.InternalKeyKindRangeDelete {
			t.EndBoundary = &Boundary{SeqNum: largest.SeqNum(), TombstoneSeq: t.SeqNum}
		}
	}
	if cmp(t.Start, t.End) >= 0 {
		return RangeTombstone{}, false
	}
	return t, true
}

// ShouldDelete reports whether key is shadowed by some ingested
// tombstone, routing to the stripe key's sequence number belongs in (spec
// §4.3.3).
func (a *Aggregator) ShouldDelete(key base.InternalKey, mode PositioningMode) bool {
	if a.opts.Metrics != nil {
		a.opts.Metrics.ShouldDeleteQueries.WithLabelValues(positioningModeLabel(mode)).Inc()
	}
	return a.GetStripe(key.SeqNum()).ShouldDelete(key, mode)
}

// IsRangeOverlapped reports whether any stripe has a tombstone overlapping
// [start, end]. Only meaningful for uncollapsed aggregators (spec §4.3.3).
func (a *Aggregator) IsRangeOverlapped(start, end []byte) bool {
	for _, s := range a.stripes {
		if s.IsRangeOverlapped(start, end) {
			return true
		}
	}
	return false
}

// OverlappingSeqNum returns the highest seqnum among all ingested
// tombstones (across every stripe) overlapping [start, end), or zero if
// none overlap. Unlike IsRangeOverlapped this is valid regardless of
// collapse, since it consults the coalesced TombstonedSpans index rather
// than each stripe's TombstoneMap.
func (a *Aggregator) OverlappingSeqNum(start, end []byte) base.SeqNum {
	return a.spans.OverlappingSeqNum(start, end)
}

// IsEmpty reports whether every stripe holds no tombstones.
func (a *Aggregator) IsEmpty() bool {
	for _, s := range a.stripes {
		if !s.Empty() {
			return false
		}
	}
	return true
}

// ShouldAddTombstones reports whether any stripe is non-empty, not counting
// the oldest stripe when bottommost is set: at the bottommost level,
// tombstones in the oldest stripe are obsolete, since nothing below the
// bottommost level could still be shadowed by them (spec §4.3.3).
func (a *Aggregator) ShouldAddTombstones(bottommost bool) bool {
	stripes := a.stripes
	if bottommost && len(stripes) > 0 {
		stripes = stripes[1:]
	}
	for _, s := range stripes {
		if !s.Empty() {
			return true
		}
	}
	return false
}

// FileMetadata accumulates the bounds AddToBuilder derives for the output
// file it is writing tombstones into: the smallest and largest encoded
// keys, and the seqno range, across every tombstone emitted so far (spec
// §4.3.4). A real embedder would fold this into its own SST metadata
// rather than keep it as a separate struct; it is a first-class type here
// only because this module has no SST metadata type of its own.
type FileMetadata struct {
	HasSmallest bool
	Smallest    base.InternalKey
	HasLargest  bool
	Largest     base.InternalKey

	HasSeqNums     bool
	SmallestSeqNum base.SeqNum
	LargestSeqNum  base.SeqNum
}

// AddToBuilder iterates every stripe (skipping the oldest when bottommost)
// and emits each tombstone it contains to builder, subject to
// [lowerBound, upperBound), accumulating the output file's metadata as it
// goes (spec §4.3.4). lowerBound and upperBound may be nil to mean
// unbounded. Only the first tombstone emitted within each stripe can set
// the file's smallest key (subsequent ones in the same stripe only widen
// largest and the seqno range), mirroring the teacher's own
// first_added-gated candidate logic.
func (a *Aggregator) AddToBuilder(
	builder TableBuilder, lowerBound, upperBound []byte, bottommost bool,
) (FileMetadata, error) {
	var meta FileMetadata
	stripes := a.stripes
	if bottommost && len(stripes) > 0 {
		stripes = stripes[1:]
	}

	for _, stripe := range stripes {
		it := stripe.NewIter()
		firstInStripe := true
		for it.Valid() {
			t := it.Tombstone()

			if upperBound != nil && a.cmp(upperBound, t.Start) <= 0 {
				break
			}
			if lowerBound != nil && a.cmp(t.End, lowerBound) <= 0 {
				it.Next()
				continue
			}

			startKey := base.MakeInternalKey(t.Start, t.SeqNum, base.InternalKeyKindRangeDelete)
			if err := builder.AddTombstone(startKey, t.End); err != nil {
				return meta, err
			}

			if firstInStripe {
				firstInStripe = false
				smallestCandidate := startKey
				if lowerBound != nil && a.cmp(lowerBound, t.Start) >= 0 {
					// Pretend the smallest key shares a user key with
					// lower_bound, using the lowest possible seqnum, so
					// that output files appear key-space partitioned.
					smallestCandidate = base.MakeInternalKey(lowerBound, 0, base.InternalKeyKindRangeDelete)
				}
				if !meta.HasSmallest || base.InternalCompare(a.cmp, smallestCandidate, meta.Smallest) < 0 {
					meta.Smallest = smallestCandidate
					meta.HasSmallest = true
				}
			}

			largestCandidate := base.MakeInternalKey(t.End, t.SeqNum, base.InternalKeyKindRangeDelete)
			if upperBound != nil && a.cmp(upperBound, t.End) <= 0 {
				// Symmetric pseudo-boundary: highest seqnum, so this
				// file's largest key sorts before the next file's
				// smallest.
				largestCandidate = base.MakeInternalKey(upperBound, base.SeqNumMax, base.InternalKeyKindRangeDelete)
			}
			if !meta.HasLargest || base.InternalCompare(a.cmp, meta.Largest, largestCandidate) < 0 {
				meta.Largest = largestCandidate
				meta.HasLargest = true
			}

			if !meta.HasSeqNums || t.SeqNum < meta.SmallestSeqNum {
				meta.SmallestSeqNum = t.SeqNum
			}
			if !meta.HasSeqNums || t.SeqNum > meta.LargestSeqNum {
				meta.LargestSeqNum = t.SeqNum
			}
			meta.HasSeqNums = true

			it.Next()
		}
	}
	return meta, nil
}

// GetTombstone returns the PartialTombstone covering key at querySeq, for
// a collapsed aggregator's stripe (spec §4.3.5). Panics (via ModeMisuse)
// if the owning stripe is uncollapsed.
func (a *Aggregator) GetTombstone(key base.InternalKey, querySeq base.SeqNum) PartialTombstone {
	stripe := a.GetStripe(key.SeqNum())
	cm, ok := stripe.(*CollapsedMap)
	if !ok {
		assertf("Aggregator.GetTombstone: owning stripe is not collapsed")
	}
	return cm.GetTombstone(key, querySeq)
}

// Close releases every source iterator the aggregator has pinned.
func (a *Aggregator) Close() error {
	var err error
	for _, it := range a.pinnedIters {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	a.pinnedIters = nil
	return err
}
