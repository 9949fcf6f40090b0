package rangedel

import (
	"sort"

	"github.com/lsmkit/rangedel/internal/base"
)

// UncollapsedMap is a multiset of raw tombstones ordered by start key, with
// ties broken by insertion order. It is quick to build and slow to answer
// ShouldDelete queries (a linear scan per query), the complement of
// CollapsedMap (spec §4.1). Its one caller in a real LSM store is file
// ingestion, which scans every tombstone exactly once and needs
// IsRangeOverlapped, a query CollapsedMap refuses to answer.
type UncollapsedMap struct {
	cmp        base.Compare
	tombstones []RangeTombstone
}

// NewUncollapsedMap constructs an empty UncollapsedMap ordered by cmp.
func NewUncollapsedMap(cmp base.Compare) *UncollapsedMap {
	return &UncollapsedMap{cmp: cmp}
}

var _ TombstoneMap = (*UncollapsedMap)(nil)

// AddTombstone implements TombstoneMap. Insertion preserves the arrival
// order of tombstones that share a start key, mirroring std::multiset's
// stability.
func (m *UncollapsedMap) AddTombstone(t RangeTombstone) {
	i := sort.Search(len(m.tombstones), func(i int) bool {
		return m.cmp(m.tombstones[i].Start, t.Start) > 0
	})
	m.tombstones = append(m.tombstones, RangeTombstone{})
	copy(m.tombstones[i+1:], m.tombstones[i:])
	m.tombstones[i] = t
}

// ShouldDelete implements TombstoneMap. Only FullScan is supported; any
// other mode is a ModeMisuse (spec §4.1, §7).
func (m *UncollapsedMap) ShouldDelete(key base.InternalKey, mode PositioningMode) bool {
	if mode != FullScan {
		assertf("UncollapsedMap.ShouldDelete: unsupported positioning mode %d", mode)
	}
	for _, t := range m.tombstones {
		if m.cmp(key.UserKey, t.Start) < 0 {
			break
		}
		if t.Contains(m.cmp, key) {
			return true
		}
	}
	return false
}

// IsRangeOverlapped implements TombstoneMap.
func (m *UncollapsedMap) IsRangeOverlapped(start, end []byte) bool {
	for _, t := range m.tombstones {
		if m.cmp(start, t.End) < 0 && m.cmp(t.Start, end) <= 0 && m.cmp(t.Start, t.End) < 0 {
			return true
		}
	}
	return false
}

// Size implements TombstoneMap.
func (m *UncollapsedMap) Size() int { return len(m.tombstones) }

// Empty implements TombstoneMap.
func (m *UncollapsedMap) Empty() bool { return len(m.tombstones) == 0 }

// InvalidatePosition implements TombstoneMap. UncollapsedMap keeps no
// positional cursor, so this is a no-op.
func (m *UncollapsedMap) InvalidatePosition() {}

// NewIter implements TombstoneMap.
func (m *UncollapsedMap) NewIter() Iterator {
	return &uncollapsedIter{m: m}
}

type uncollapsedIter struct {
	m   *UncollapsedMap
	pos int
}

func (it *uncollapsedIter) Valid() bool { return it.pos < len(it.m.tombstones) }

func (it *uncollapsedIter) Next() { it.pos++ }

func (it *uncollapsedIter) Seek(target []byte) {
	assertf("UncollapsedMap iterator does not support Seek")
}

func (it *uncollapsedIter) Tombstone() RangeTombstone {
	return it.m.tombstones[it.pos]
}
