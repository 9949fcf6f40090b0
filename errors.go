package rangedel

import "github.com/cockroachdb/errors"

// ErrCorruption marks errors returned when a source record cannot be
// decoded into a tombstone. Callers can test for it with errors.Is.
var ErrCorruption = errors.New("rangedel: corruption")

// newParseError wraps a decode failure and marks it with ErrCorruption, the
// same pattern the teacher's db-level recovery code uses for its own
// corruption sentinel.
func newParseError(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrCorruption)
}

// newParseErrorf builds a fresh ErrCorruption-marked error with no
// underlying cause, for decode failures detected directly (malformed
// length, unexpected kind) rather than propagated from a lower layer.
func newParseErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// assertf panics with an assertion failure. Used for the ModeMisuse class of
// programming errors spec §7 says implementations may assert/abort on:
// FullScan against a CollapsedMap, or IsRangeOverlapped against one.
func assertf(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}
