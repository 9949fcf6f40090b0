package rangedel

import "github.com/lsmkit/rangedel/internal/base"

// Options configures an Aggregator. It plays the same role as Pebble's own
// large Options structs: a plain value passed once at construction, no
// flag or environment-variable parsing (this is a library, not a CLI).
type Options struct {
	// Comparer orders user keys. Defaults to base.DefaultComparer if nil.
	Comparer *base.Comparer
	// Logger receives ingestion-time diagnostics. Defaults to
	// base.DefaultLogger if nil.
	Logger base.Logger
	// Metrics receives instrumentation, if non-nil. Left nil, the
	// aggregator records nothing.
	Metrics *Metrics
}

// EnsureDefaults fills in Comparer and Logger if unset, returning o itself
// if it was already fully populated, or a defaulted copy otherwise.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		return &Options{Comparer: base.DefaultComparer, Logger: base.DefaultLogger{}}
	}
	if o.Comparer != nil && o.Logger != nil {
		return o
	}
	n := *o
	if n.Comparer == nil {
		n.Comparer = base.DefaultComparer
	}
	n.Comparer = n.Comparer.EnsureDefaults()
	if n.Logger == nil {
		n.Logger = base.DefaultLogger{}
	}
	return &n
}
