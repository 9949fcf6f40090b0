// Package rangedel aggregates range-deletion tombstones for an LSM-tree key
// value store. It answers two kinds of queries: whether a candidate
// internal key is shadowed by a tombstone on the read path, and which
// (possibly collapsed) tombstones a compaction should emit to a new output
// file.
package rangedel
