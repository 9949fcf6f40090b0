package rangedel

import (
	"sort"

	"github.com/lsmkit/rangedel/internal/base"
)

// CollapsedMap is an ordered map of transition points, as described in
// spec §3 and §4.2: keyed by user key, each entry gives the sequence number
// of the tombstone active from that key (inclusive) until the next entry.
// It is slow to build (every insertion may rewrite an arbitrary run of
// existing transitions) but answers ShouldDelete in O(log n), the
// complement of UncollapsedMap.
//
// The transitions are stored as two parallel slices kept in key order, with
// sort.Search standing in for the teacher's own std::map::upper_bound —
// the same idiom the teacher itself uses for sorted in-memory collections
// elsewhere (e.g. version.go's file-sorting helpers).
type CollapsedMap struct {
	cmp  base.Compare
	keys [][]byte
	seqs []base.SeqNum

	// startBound[i]/endBound[i] hold the StartBoundary/EndBoundary carried
	// by whichever tombstone installed the transition at keys[i], when that
	// transition sits exactly at a truncated Start or End (spec §4.3.2).
	// Both nil for the common case of an untruncated or RangeDeletion-kind
	// truncated transition.
	startBound []*Boundary
	endBound   []*Boundary

	// pos is the cursor used by ForwardTraversal/BackwardTraversal. valid
	// is cleared by InvalidatePosition and by construction.
	pos   int
	valid bool
}

// NewCollapsedMap constructs an empty CollapsedMap ordered by cmp.
func NewCollapsedMap(cmp base.Compare) *CollapsedMap {
	return &CollapsedMap{cmp: cmp}
}

var _ TombstoneMap = (*CollapsedMap)(nil)

// upperBound returns the index of the first transition whose key is
// strictly greater than target, i.e. std::map::upper_bound.
func (m *CollapsedMap) upperBound(target []byte) int {
	return sort.Search(len(m.keys), func(i int) bool {
		return m.cmp(m.keys[i], target) > 0
	})
}

func (m *CollapsedMap) insertAt(i int, key []byte, seq base.SeqNum) {
	m.keys = append(m.keys, nil)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = key

	m.seqs = append(m.seqs, 0)
	copy(m.seqs[i+1:], m.seqs[i:])
	m.seqs[i] = seq

	m.startBound = append(m.startBound, nil)
	copy(m.startBound[i+1:], m.startBound[i:])
	m.startBound[i] = nil

	m.endBound = append(m.endBound, nil)
	copy(m.endBound[i+1:], m.endBound[i:])
	m.endBound[i] = nil
}

func (m *CollapsedMap) removeAt(i int) {
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.seqs = append(m.seqs[:i], m.seqs[i+1:]...)
	m.startBound = append(m.startBound[:i], m.startBound[i+1:]...)
	m.endBound = append(m.endBound[:i], m.endBound[i+1:]...)
}

// AddTombstone implements TombstoneMap via the incremental merge-insert
// algorithm of spec §4.2.2 (itself a direct translation of RocksDB's
// CollapsedRangeDelMap::AddTombstone). See the worked diagrams in
// original_source/db/range_del_aggregator.cc for the cases this is
// translating.
func (m *CollapsedMap) AddTombstone(t RangeTombstone) {
	it := m.upperBound(t.Start)
	prevSeq := func() base.SeqNum {
		if it == 0 {
			return 0
		}
		return m.seqs[it-1]
	}

	var endSeq base.SeqNum
	if t.SeqNum > prevSeq() {
		// The new tombstone's start point dominates wherever it begins.
		endSeq = prevSeq()
		if it > 0 && m.cmp(m.keys[it-1], t.Start) == 0 {
			m.seqs[it-1] = t.SeqNum
			m.startBound[it-1] = t.StartBoundary
		} else {
			m.insertAt(it, t.Start, t.SeqNum)
			m.startBound[it] = t.StartBoundary
			it++
		}
		// The transition just written at t.Start may now carry the same
		// seq as its own predecessor (this happens when t.Start already
		// existed and is being raised to an seq that happens to equal the
		// seq to its left) -- that's a redundant adjacent transition, so
		// drop it to preserve the no-two-equal-adjacent-seqs invariant.
		// A boundary annotation at this transition means the coincidence
		// is not actually redundant (spec §4.3.2, the file-boundary-gap
		// scenario): two tombstones truncated against adjoining SST
		// bounds can meet at the same seq yet still need to stay distinct
		// transitions so each keeps its own boundary refinement.
		startIdx := it - 1
		if startIdx > 0 && m.seqs[startIdx-1] == t.SeqNum &&
			m.startBound[startIdx] == nil && m.endBound[startIdx] == nil {
			m.removeAt(startIdx)
			it--
		}
	}

	// Sweep every existing transition the new tombstone overlaps.
	for it < len(m.keys) && m.cmp(m.keys[it], t.End) < 0 {
		if t.SeqNum > m.seqs[it] {
			endSeq = m.seqs[it]
			if t.SeqNum == prevSeq() && m.startBound[it] == nil && m.endBound[it] == nil {
				m.removeAt(it)
				continue
			}
			m.seqs[it] = t.SeqNum
			m.startBound[it] = nil
			m.endBound[it] = nil
		}
		it++
	}

	if t.SeqNum == prevSeq() {
		// The new tombstone is unterminated; install its end transition,
		// unless an existing entry at End already takes precedence.
		if it >= len(m.keys) || m.cmp(m.keys[it], t.End) != 0 {
			m.insertAt(it, t.End, endSeq)
			m.endBound[it] = t.EndBoundary
		}
	}
}

// ShouldDelete implements TombstoneMap. FullScan is a ModeMisuse for
// CollapsedMap (spec §4.2.1, §7); only compaction/read callers that supply a
// positional hint use collapsed maps.
func (m *CollapsedMap) ShouldDelete(key base.InternalKey, mode PositioningMode) bool {
	if !m.valid && (mode == ForwardTraversal || mode == BackwardTraversal) {
		mode = BinarySearch
	}
	switch mode {
	case FullScan:
		assertf("CollapsedMap.ShouldDelete: FullScan is unsupported")
	case BinarySearch:
		idx := m.upperBound(key.UserKey)
		if idx == 0 {
			return false
		}
		m.pos, m.valid = idx-1, true
	case ForwardTraversal:
		if m.pos == 0 && m.cmp(key.UserKey, m.keys[0]) < 0 {
			return false
		}
		for m.pos+1 < len(m.keys) && m.cmp(m.keys[m.pos+1], key.UserKey) <= 0 {
			m.pos++
		}
	case BackwardTraversal:
		for m.pos > 0 && m.cmp(key.UserKey, m.keys[m.pos]) < 0 {
			m.pos--
		}
		if m.pos == 0 && m.cmp(key.UserKey, m.keys[0]) < 0 {
			return false
		}
	default:
		assertf("CollapsedMap.ShouldDelete: unknown positioning mode %d", mode)
	}
	return m.activeCovers(m.pos, key)
}

// activeCovers applies the transition at idx to key, honoring any
// StartBoundary/EndBoundary override installed at that exact transition
// key (spec §4.3.2) in place of the plain "seq < active seq" rule.
func (m *CollapsedMap) activeCovers(idx int, key base.InternalKey) bool {
	if m.cmp(key.UserKey, m.keys[idx]) == 0 {
		if sup := m.startBound[idx]; sup != nil {
			return key.SeqNum() < sup.TombstoneSeq && key.SeqNum() <= sup.SeqNum
		}
		if ext := m.endBound[idx]; ext != nil {
			return key.SeqNum() < ext.TombstoneSeq && key.SeqNum() > ext.SeqNum
		}
	}
	return key.SeqNum() < m.seqs[idx]
}

// IsRangeOverlapped implements TombstoneMap. Unimplemented for CollapsedMap:
// the only caller, file ingestion, always uses an UncollapsedMap (spec
// §4.2, §1 Non-goals).
func (m *CollapsedMap) IsRangeOverlapped(start, end []byte) bool {
	assertf("CollapsedMap.IsRangeOverlapped is unsupported")
	return false
}

// Size implements TombstoneMap: the number of transitions minus the
// trailing sentinel (spec §3), or zero if the map is empty.
func (m *CollapsedMap) Size() int {
	if len(m.keys) == 0 {
		return 0
	}
	return len(m.keys) - 1
}

// Empty implements TombstoneMap.
func (m *CollapsedMap) Empty() bool { return m.Size() == 0 }

// InvalidatePosition implements TombstoneMap.
func (m *CollapsedMap) InvalidatePosition() { m.valid = false }

// NewIter implements TombstoneMap.
func (m *CollapsedMap) NewIter() Iterator {
	return &collapsedIter{m: m}
}

// GetTombstone returns the PartialTombstone describing the transition
// interval containing key, visible to a reader at querySeq (spec §4.3.5).
func (m *CollapsedMap) GetTombstone(key base.InternalKey, querySeq base.SeqNum) PartialTombstone {
	idx := m.upperBound(key.UserKey)
	if idx == 0 {
		var end []byte
		if len(m.keys) > 0 {
			end = m.keys[0]
		}
		return PartialTombstone{EndKey: endKeyFor(end)}
	}
	active := idx - 1
	pt := PartialTombstone{
		StartKey: startKeyFor(m.keys[active]),
	}
	if active+1 < len(m.keys) {
		pt.EndKey = endKeyFor(m.keys[active+1])
	}
	if querySeq < m.seqs[active] {
		pt.SeqNum = m.seqs[active]
	}
	return pt
}

func startKeyFor(userKey []byte) *base.InternalKey {
	if userKey == nil {
		return nil
	}
	k := base.MakeInternalKey(userKey, base.SeqNumMax, base.InternalKeyKindMax)
	return &k
}

func endKeyFor(userKey []byte) *base.InternalKey {
	if userKey == nil {
		return nil
	}
	k := base.MakeInternalKey(userKey, base.SeqNumMax, base.InternalKeyKindMax)
	return &k
}

// PartialTombstone describes the transition interval covering a queried
// internal key, for callers that want to cache the covering tombstone for
// locality (spec §4.3.5).
type PartialTombstone struct {
	StartKey *base.InternalKey
	EndKey   *base.InternalKey
	SeqNum   base.SeqNum
}

type collapsedIter struct {
	m   *CollapsedMap
	cur int
}

func (it *collapsedIter) Valid() bool {
	return it.cur < len(it.m.keys)-1
}

func (it *collapsedIter) seekPastSentinels() {
	for it.Valid() && it.m.seqs[it.cur] == 0 {
		it.cur++
	}
}

func (it *collapsedIter) Next() {
	it.cur++
	it.seekPastSentinels()
}

func (it *collapsedIter) Seek(target []byte) {
	idx := it.m.upperBound(target)
	if idx > 0 {
		idx--
	}
	it.cur = idx
	it.seekPastSentinels()
}

func (it *collapsedIter) Tombstone() RangeTombstone {
	return RangeTombstone{
		Start:  it.m.keys[it.cur],
		End:    it.m.keys[it.cur+1],
		SeqNum: it.m.seqs[it.cur],
	}
}
