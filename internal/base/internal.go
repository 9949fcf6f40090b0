package base

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/redact"
)

// SeqNum is a sequence number defining precedence among identical user
// keys: a key with a higher sequence number takes precedence over an
// identical user key with a lower one. Sequence numbers are assigned in
// increasing order as keys are committed.
type SeqNum uint64

const (
	// SeqNumZero is the reserved sentinel meaning "no tombstone" when it
	// appears as a CollapsedMap transition seq.
	SeqNumZero SeqNum = 0
	// SeqNumMax is reserved to mean "newer than any snapshot".
	SeqNumMax SeqNum = 1<<56 - 1
)

// String implements fmt.Stringer.
func (s SeqNum) String() string {
	if s == SeqNumMax {
		return "inf"
	}
	return strconv.FormatUint(uint64(s), 10)
}

// SafeFormat implements redact.SafeFormatter.
func (s SeqNum) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(s.String()))
}

// InternalKeyKind enumerates the kind of an internal key. Only the kinds
// relevant to range deletions and the comparator ordering exercised by this
// module are represented; this is a deliberately trimmed subset of a full
// LSM's key-kind space.
type InternalKeyKind uint8

const (
	// InternalKeyKindDelete is a point-delete tombstone.
	InternalKeyKindDelete InternalKeyKind = 0
	// InternalKeyKindSet is a point value.
	InternalKeyKindSet InternalKeyKind = 1
	// InternalKeyKindRangeDelete is a range-deletion tombstone record.
	InternalKeyKindRangeDelete InternalKeyKind = 15
	// InternalKeyKindMax sorts less than or equal to any other valid kind,
	// for the same (user key, seqnum) pair, under InternalCompare's
	// descending-kind tiebreak. Used to build search keys.
	InternalKeyKindMax InternalKeyKind = 25
	// InternalKeyKindInvalid marks an internal key that failed to parse.
	InternalKeyKindInvalid InternalKeyKind = 255
)

var internalKeyKindNames = map[InternalKeyKind]string{
	InternalKeyKindDelete:      "DEL",
	InternalKeyKindSet:         "SET",
	InternalKeyKindRangeDelete: "RANGEDEL",
	InternalKeyKindMax:         "MAX",
	InternalKeyKindInvalid:     "INVALID",
}

var internalKeyKindsByName = map[string]InternalKeyKind{
	"DEL":      InternalKeyKindDelete,
	"SET":      InternalKeyKindSet,
	"RANGEDEL": InternalKeyKindRangeDelete,
	"MAX":      InternalKeyKindMax,
	"INVALID":  InternalKeyKindInvalid,
}

// String implements fmt.Stringer.
func (k InternalKeyKind) String() string {
	if name, ok := internalKeyKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN:%d", uint8(k))
}

// SafeFormat implements redact.SafeFormatter.
func (k InternalKeyKind) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(k.String()))
}

// InternalKeyTrailer packs a SeqNum and an InternalKeyKind into the 8 bytes
// that follow a user key in an encoded internal key: the top 56 bits are
// the sequence number, the low 8 bits are the kind.
type InternalKeyTrailer uint64

// MakeTrailer constructs a trailer from a sequence number and kind.
func MakeTrailer(seqNum SeqNum, kind InternalKeyKind) InternalKeyTrailer {
	return (InternalKeyTrailer(seqNum) << 8) | InternalKeyTrailer(kind)
}

// SeqNum returns the sequence number component of the trailer.
func (t InternalKeyTrailer) SeqNum() SeqNum { return SeqNum(t >> 8) }

// Kind returns the kind component of the trailer.
func (t InternalKeyTrailer) Kind() InternalKeyKind { return InternalKeyKind(t & 0xff) }

// InternalTrailerLen is the encoded length, in bytes, of an InternalKeyTrailer.
const InternalTrailerLen = 8

// InternalKey is the internal representation of a user key: the user key
// plus a trailer encoding a sequence number and kind. Internal keys are
// ordered by InternalCompare: user key ascending, then sequence number
// descending, then kind descending (spec.md §3).
type InternalKey struct {
	UserKey []byte
	Trailer InternalKeyTrailer
}

// MakeInternalKey constructs an internal key.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, Trailer: MakeTrailer(seqNum, kind)}
}

// MakeSearchKey constructs an internal key suitable for searching for the
// given user key: it sorts before any other internal key sharing that user
// key, because it carries the maximal sequence number and kind.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindMax)
}

// SeqNum returns the key's sequence number.
func (k InternalKey) SeqNum() SeqNum { return k.Trailer.SeqNum() }

// Kind returns the key's kind.
func (k InternalKey) Kind() InternalKeyKind { return k.Trailer.Kind() }

// Visible reports whether a key with this sequence number is visible to a
// reader at the given snapshot sequence number: strictly older keys are
// visible, and SeqNumMax (used for sentinels) is always visible.
func (k InternalKey) Visible(snapshot SeqNum) bool {
	return k.SeqNum() < snapshot || k.SeqNum() == SeqNumMax
}

// Clone copies the UserKey storage so the result does not alias any buffer
// the original may have borrowed from a source iterator (DESIGN NOTES §9).
func (k InternalKey) Clone() InternalKey {
	if len(k.UserKey) == 0 {
		return k
	}
	return InternalKey{
		UserKey: append([]byte(nil), k.UserKey...),
		Trailer: k.Trailer,
	}
}

// Encode writes the encoded form of the key (user key followed by the
// little-endian trailer) into buf, which must be at least k.Size() bytes.
func (k InternalKey) Encode(buf []byte) {
	n := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[n:], uint64(k.Trailer))
}

// Size returns the encoded size of the key.
func (k InternalKey) Size() int { return len(k.UserKey) + InternalTrailerLen }

// DecodeInternalKey decodes an encoded internal key produced by Encode.
func DecodeInternalKey(encoded []byte) (InternalKey, bool) {
	n := len(encoded) - InternalTrailerLen
	if n < 0 {
		return InternalKey{}, false
	}
	trailer := InternalKeyTrailer(binary.LittleEndian.Uint64(encoded[n:]))
	return InternalKey{UserKey: encoded[:n:n], Trailer: trailer}, true
}

// String implements fmt.Stringer.
func (k InternalKey) String() string {
	return fmt.Sprintf("%s#%s,%s", k.UserKey, k.SeqNum(), k.Kind())
}

// InternalCompare compares two internal keys per spec.md §3: user key
// ascending, then sequence number descending, then kind descending.
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	if c := userCmp(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}

// ParseSeqNum parses the string representation of a sequence number, as
// produced by SeqNum.String. "inf" denotes SeqNumMax. Panics on malformed
// input; intended for use in tests and datadriven test inputs only.
func ParseSeqNum(s string) SeqNum {
	if s == "inf" {
		return SeqNumMax
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid seqnum %q: %s", s, err))
	}
	return SeqNum(n)
}

// ParseKind parses the string representation of an InternalKeyKind, as
// produced by InternalKeyKind.String. Panics on malformed input; intended
// for use in tests and datadriven test inputs only.
func ParseKind(s string) InternalKeyKind {
	kind, ok := internalKeyKindsByName[s]
	if !ok {
		panic(fmt.Sprintf("unknown kind: %q", s))
	}
	return kind
}

// ParseInternalKey parses the string representation of an internal key,
// "<user-key>#<seq-num>,<kind>", as produced by InternalKey.String. Panics
// on malformed input; intended for use in tests and datadriven test inputs
// only.
func ParseInternalKey(s string) InternalKey {
	sep1 := strings.IndexByte(s, '#')
	sep2 := strings.IndexByte(s, ',')
	if sep1 < 0 || sep2 < 0 || sep2 < sep1 {
		panic(fmt.Sprintf("invalid internal key %q", s))
	}
	userKey := []byte(s[:sep1])
	seqNum := ParseSeqNum(s[sep1+1 : sep2])
	kind := ParseKind(s[sep2+1:])
	return MakeInternalKey(userKey, seqNum, kind)
}
