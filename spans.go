package rangedel

import (
	"fmt"

	"github.com/RaduBerinde/axisds"
	"github.com/RaduBerinde/axisds/regiontree"

	"github.com/lsmkit/rangedel/internal/base"
)

// TombstonedSpans maintains a coalesced, ordered view of every span the
// aggregator has ingested a tombstone for, merged by "the higher seqnum
// wins" across overlapping spans. It is a supplementary index: ShouldDelete
// still answers per-key coverage via the owning stripe's TombstoneMap; this
// is for callers that want a cheap answer to "how much of the keyspace is
// currently shadowed, and by what seqnum" without walking every stripe, the
// same role `internal/tombspan.Set.tombstonedSpans` plays for Pebble's
// delete-compaction picker.
//
// Grounded on `internal/tombspan.Set`/`Make` in the teacher tree: both
// build a `regiontree.T[[]byte, V]` keyed by user-key span and merge
// on overlap with a "higher seqnum survives" rule
// (`tombspan.mergeTombstonedSpans`). `internal/problemspans.Set` builds a
// second, independent `regiontree.T` for the same span-coalescing shape,
// confirming this is the teacher's idiomatic container for "ordered,
// merging key-span index" rather than a one-off.
type TombstonedSpans struct {
	cmp base.Compare
	rt  regiontree.T[[]byte, base.SeqNum]
}

// NewTombstonedSpans constructs an empty index ordered by cmp.
func NewTombstonedSpans(cmp base.Compare) *TombstonedSpans {
	return &TombstonedSpans{
		cmp: cmp,
		rt: regiontree.Make(
			axisds.CompareFn[[]byte](cmp),
			func(a, b base.SeqNum) bool { return a == b },
		),
	}
}

// Add merges [start, end) into the index at seq. Where it overlaps an
// existing span the higher of the two seqnums survives, matching
// tombspan.mergeTombstonedSpans's "tombstones with higher sequence numbers
// are more powerful, deleting strictly more data" rule.
func (s *TombstonedSpans) Add(start, end []byte, seq base.SeqNum) {
	s.rt.Update(start, end, func(cur base.SeqNum) base.SeqNum {
		if seq > cur {
			return seq
		}
		return cur
	})
}

// IsEmpty reports whether the index holds no spans.
func (s *TombstonedSpans) IsEmpty() bool {
	return s.rt.IsEmpty()
}

// OverlappingSeqNum returns the highest seqnum among indexed spans
// overlapping [start, end), or zero if none overlap.
func (s *TombstonedSpans) OverlappingSeqNum(start, end []byte) base.SeqNum {
	var maxSeq base.SeqNum
	for bounds, seq := range s.rt.All() {
		if s.cmp(bounds.Start, end) >= 0 {
			break
		}
		if s.cmp(bounds.End, start) <= 0 {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

// String renders the indexed spans as "[start, end) -> seq" lines, in the
// same style as tombspan.Set.String's use of axisds.MakeIntervalFormatter.
func (s *TombstonedSpans) String() string {
	return s.rt.String(axisds.MakeIntervalFormatter(func(b []byte) string {
		return fmt.Sprintf("%q", b)
	}))
}
