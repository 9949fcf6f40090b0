package rangedel

import "github.com/lsmkit/rangedel/internal/base"

// PositioningMode controls how a TombstoneMap's ShouldDelete call positions
// itself, trading off the cost of relocating a cursor against exploiting
// spatial locality between successive queries (spec §4.2.1).
type PositioningMode int

const (
	// FullScan scans every tombstone in order; only UncollapsedMap supports
	// it.
	FullScan PositioningMode = iota
	// BinarySearch repositions from scratch via upper_bound. Always safe on
	// a CollapsedMap, whatever the state of its cursor; UncollapsedMap
	// supports only FullScan.
	BinarySearch
	// ForwardTraversal assumes the stored cursor is valid and that queries
	// arrive in non-decreasing user-key order; it advances from the
	// previous position instead of searching from scratch.
	ForwardTraversal
	// BackwardTraversal is the non-increasing-order symmetric of
	// ForwardTraversal.
	BackwardTraversal
)

// Iterator walks a TombstoneMap's tombstones in start-key order.
type Iterator interface {
	// Valid reports whether the iterator is positioned at a tombstone.
	Valid() bool
	// Next advances to the next tombstone.
	Next()
	// Seek positions the iterator at the tombstone (if any) that would be
	// returned by ShouldDelete for target, or past all tombstones starting
	// at or before target.
	Seek(target []byte)
	// Tombstone returns the tombstone at the iterator's current position.
	// Valid must be true.
	Tombstone() RangeTombstone
}

// TombstoneMap holds a collection of range tombstones ingested at a single
// snapshot stripe and answers coverage queries over them. UncollapsedMap and
// CollapsedMap are the two implementations (spec §4.1, §4.2); neither
// supports every operation the interface exposes — each documents which
// calls are a ModeMisuse panic for it.
type TombstoneMap interface {
	// AddTombstone ingests a tombstone. Tombstones may be added in any
	// order (spec §5).
	AddTombstone(t RangeTombstone)
	// ShouldDelete reports whether key is shadowed by some ingested
	// tombstone, using the given positioning mode.
	ShouldDelete(key base.InternalKey, mode PositioningMode) bool
	// IsRangeOverlapped reports whether any non-empty tombstone overlaps
	// [start, end]. Only UncollapsedMap supports this; CollapsedMap panics.
	IsRangeOverlapped(start, end []byte) bool
	// Size returns the number of entries: for UncollapsedMap, the number of
	// tombstones ingested; for CollapsedMap, the number of transitions
	// minus the trailing sentinel, which counts uncovered gaps between
	// tombstones as intervals too.
	Size() int
	// Empty reports whether the map holds no tombstones.
	Empty() bool
	// InvalidatePosition invalidates any cached traversal cursor. Called
	// whenever new tombstones are ingested.
	InvalidatePosition()
	// NewIter returns an iterator over the map's tombstones in start-key
	// order.
	NewIter() Iterator
}
