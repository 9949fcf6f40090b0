package rangedel

import "github.com/lsmkit/rangedel/internal/base"

// RangeTombstone is a range deletion tombstone: it logically deletes every
// key in the half-open user-key interval [Start, End) for reads with a
// sequence number less than SeqNum. A tombstone with Start == End is empty
// and covers nothing, but remains representable (spec §3).
type RangeTombstone struct {
	Start  []byte
	End    []byte
	SeqNum base.SeqNum

	// StartBoundary and EndBoundary refine coverage at the exact Start/End
	// user key when that boundary was clipped to an SST's smallest/largest
	// internal key and that key's kind is not RangeDeletion (spec §4.3.2).
	// Both are nil for an untruncated tombstone, or one truncated against a
	// RangeDeletion-kind boundary, in which case the plain half-open
	// interval rule below applies with no exception.
	StartBoundary *Boundary
	EndBoundary   *Boundary
}

// Boundary pins the exact sequence number an SST's boundary key carried,
// used to refine tombstone coverage at that precise user key (spec
// §4.3.2). TombstoneSeq is the refined tombstone's own sequence number,
// carried alongside SeqNum (the boundary key's sequence number) so the
// refinement can still be combined with the ordinary "query seq below
// tombstone seq" rule.
type Boundary struct {
	SeqNum       base.SeqNum
	TombstoneSeq base.SeqNum
}

// Empty reports whether the tombstone covers no keys.
func (t RangeTombstone) Empty(cmp base.Compare) bool {
	return cmp(t.Start, t.End) >= 0
}

// Contains reports whether the tombstone covers the given internal key.
// Ordinarily this is Start <= key.UserKey < End and key.SeqNum < t.SeqNum,
// but when key.UserKey lands exactly on a truncated Start or End boundary,
// StartBoundary/EndBoundary override the usual half-open-interval rule
// (spec §4.3.2): a key at Start with a sequence above StartBoundary was
// never part of this file and is not covered; a key at End with a
// sequence above EndBoundary belongs to a version of that user key the
// file's largest key predates, and is covered as if the interval
// continued just past End.
func (t RangeTombstone) Contains(cmp base.Compare, key base.InternalKey) bool {
	if cmp(key.UserKey, t.Start) < 0 || cmp(key.UserKey, t.End) > 0 {
		return false
	}
	switch {
	case t.StartBoundary != nil && cmp(key.UserKey, t.Start) == 0:
		b := t.StartBoundary
		return key.SeqNum() < b.TombstoneSeq && key.SeqNum() <= b.SeqNum
	case cmp(key.UserKey, t.End) == 0:
		if b := t.EndBoundary; b != nil {
			return key.SeqNum() < b.TombstoneSeq && key.SeqNum() > b.SeqNum
		}
		return false
	default:
		return key.SeqNum() < t.SeqNum
	}
}

// Clone copies the tombstone's key storage so it no longer aliases any
// buffer borrowed from a source iterator (DESIGN NOTES §9).
func (t RangeTombstone) Clone() RangeTombstone {
	c := RangeTombstone{
		Start:  append([]byte(nil), t.Start...),
		End:    append([]byte(nil), t.End...),
		SeqNum: t.SeqNum,
	}
	if t.StartBoundary != nil {
		b := *t.StartBoundary
		c.StartBoundary = &b
	}
	if t.EndBoundary != nil {
		b := *t.EndBoundary
		c.EndBoundary = &b
	}
	return c
}
