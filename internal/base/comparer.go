// Package base defines the key types and comparator abstraction shared by
// the rangedel packages: user keys, sequence numbers, and internal keys.
package base

import "bytes"

// Compare returns -1, 0, or +1 depending on whether a is less than, equal
// to, or greater than b, under some total order over user keys.
type Compare func(a, b []byte) int

// Comparer defines a total ordering over the space of []byte user keys.
// Only Compare and Name are mandatory; the rest of Pebble's full Comparer
// (Split, Separator, Successor, AbbreviatedKey, ...) exist to support SST
// block building and are not needed by the aggregator, which only ever
// needs to order and compare whole user keys.
type Comparer struct {
	// Compare orders two user keys.
	Compare Compare
	// Equal reports whether a and b are equivalent. Defaults to
	// Compare(a, b) == 0 if left nil by EnsureDefaults.
	Equal func(a, b []byte) bool
	// Name identifies the comparer; two comparers with different names are
	// never interchangeable.
	Name string
}

// EnsureDefaults fills in Equal if unset. Returns DefaultComparer if c is
// nil.
func (c *Comparer) EnsureDefaults() *Comparer {
	if c == nil {
		return DefaultComparer
	}
	if c.Compare == nil || c.Name == "" {
		panic("invalid Comparer: Compare and Name must be set")
	}
	if c.Equal != nil {
		return c
	}
	n := *c
	cmp := n.Compare
	n.Equal = func(a, b []byte) bool { return cmp(a, b) == 0 }
	return &n
}

// DefaultComparer orders user keys using the natural byte-wise ordering,
// consistent with bytes.Compare.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Equal:   bytes.Equal,
	Name:    "leveldb.BytewiseComparator",
}
