package rangedel

import (
	"sort"

	"github.com/lsmkit/rangedel/internal/base"
)

// MemTombstoneIter is a SourceIterator over an in-memory slice of
// tombstones, sorted by encoded internal key on construction. It stands in
// for a memtable or SST's range-deletion block in tests and for embedders
// that do not have a real source of their own (spec §6).
type MemTombstoneIter struct {
	records []memRecord
	pos     int
}

type memRecord struct {
	key   base.InternalKey
	value []byte
}

// NewMemTombstoneIter builds a MemTombstoneIter over ts, encoding each
// tombstone via EncodeTombstone and sorting the result by internal key.
func NewMemTombstoneIter(cmp base.Compare, ts []RangeTombstone) *MemTombstoneIter {
	records := make([]memRecord, len(ts))
	for i, t := range ts {
		key, value := EncodeTombstone(t)
		records[i] = memRecord{key: key, value: value}
	}
	sort.Slice(records, func(i, j int) bool {
		return base.InternalCompare(cmp, records[i].key, records[j].key) < 0
	})
	return &MemTombstoneIter{records: records, pos: -1}
}

var _ SourceIterator = (*MemTombstoneIter)(nil)

// First implements SourceIterator.
func (it *MemTombstoneIter) First() { it.pos = 0 }

// Valid implements SourceIterator.
func (it *MemTombstoneIter) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.records)
}

// Next implements SourceIterator.
func (it *MemTombstoneIter) Next() { it.pos++ }

// Key implements SourceIterator.
func (it *MemTombstoneIter) Key() []byte {
	buf := make([]byte, it.records[it.pos].key.Size())
	it.records[it.pos].key.Encode(buf)
	return buf
}

// Value implements SourceIterator.
func (it *MemTombstoneIter) Value() []byte { return it.records[it.pos].value }

// Error implements SourceIterator. MemTombstoneIter never fails.
func (it *MemTombstoneIter) Error() error { return nil }

// Close implements SourceIterator.
func (it *MemTombstoneIter) Close() error { return nil }

// SliceTableBuilder is a minimal in-memory TableBuilder: it just records
// every emitted tombstone record in emission order (spec §4.3.4, §6). The
// file-bounds/seqno-range metadata that a real SST builder would also
// maintain is computed by Aggregator.AddToBuilder itself, into a
// FileMetadata, rather than by the builder — see FileMetadata.
type SliceTableBuilder struct {
	Keys   []base.InternalKey
	Values [][]byte
}

// NewSliceTableBuilder constructs an empty SliceTableBuilder.
func NewSliceTableBuilder() *SliceTableBuilder {
	return &SliceTableBuilder{}
}

var _ TableBuilder = (*SliceTableBuilder)(nil)

// AddTombstone implements TableBuilder.
func (b *SliceTableBuilder) AddTombstone(key base.InternalKey, value []byte) error {
	b.Keys = append(b.Keys, key)
	b.Values = append(b.Values, value)
	return nil
}
