package rangedel

import "github.com/lsmkit/rangedel/internal/base"

// SourceIterator yields encoded (internal key, value) tombstone records in
// any order. Implementations must be seekable-to-first and
// forward-iterable (spec §6). AddTombstones takes ownership of the
// iterator it is given: the aggregator closes it when the aggregator
// itself is closed, because decoded tombstones may borrow from the
// iterator's buffers (spec §5).
type SourceIterator interface {
	// First seeks to the first record. Valid reports whether a record is
	// now positioned.
	First()
	// Valid reports whether the iterator is positioned at a record.
	Valid() bool
	// Next advances to the next record.
	Next()
	// Key returns the encoded internal key at the current position. Valid
	// must be true. The returned slice is only valid until the next
	// iterator method call.
	Key() []byte
	// Value returns the value payload at the current position. Valid must
	// be true. The returned slice is only valid until the next iterator
	// method call.
	Value() []byte
	// Error returns any error encountered during iteration.
	Error() error
	// Close releases resources held by the iterator.
	Close() error
}

// TableBuilder accepts emitted tombstone records in order, mirroring the
// subset of an SST builder's surface that AddToBuilder needs (spec §4.3.4,
// §6). It is not told the output file's bounds or seqno range;
// AddToBuilder returns those to its caller in a FileMetadata.
type TableBuilder interface {
	// AddTombstone appends an encoded tombstone record to the file under
	// construction.
	AddTombstone(key base.InternalKey, value []byte) error
}

// Decode parses an encoded internal key and value payload produced by the
// tombstone record wire format (spec §6) into a RangeTombstone. The
// returned tombstone's Start and End alias ikey.UserKey and value
// respectively; callers that need the tombstone to outlive the source
// record must Clone it.
func Decode(ikey []byte, value []byte) (RangeTombstone, error) {
	key, ok := base.DecodeInternalKey(ikey)
	if !ok {
		return RangeTombstone{}, newParseErrorf("rangedel: invalid internal key of length %d", len(ikey))
	}
	if key.Kind() != base.InternalKeyKindRangeDelete {
		return RangeTombstone{}, newParseErrorf("rangedel: expected kind RANGEDEL, got %s", key.Kind())
	}
	return RangeTombstone{
		Start:  key.UserKey,
		End:    value,
		SeqNum: key.SeqNum(),
	}, nil
}

// EncodeTombstone encodes t as an internal key and value payload in the
// wire format Decode expects: the start key becomes the internal key's
// user key (at t.SeqNum, kind RangeDelete), and the end key becomes the
// value.
func EncodeTombstone(t RangeTombstone) (base.InternalKey, []byte) {
	return base.MakeInternalKey(t.Start, t.SeqNum, base.InternalKeyKindRangeDelete), t.End
}
