package membership

import "time"

// Options tunes a single Engine instance, mirroring the teacher's
// PeerConfiguration/Configuration split between per-peer and cluster-wide
// knobs.
type Options struct {
	// RNG is the injected randomness source. NewSystemRNG() if nil.
	RNG RNG

	// ActiveViewSize bounds the active view (default 5, HyParView paper
	// default for clusters in the thousands).
	ActiveViewSize int

	// PassiveViewSize bounds the passive view (default 30).
	PassiveViewSize int

	// ARWL is the active random walk length: the TTL a ForwardJoin starts
	// with (default 6).
	ARWL int

	// PRWL is the passive random walk length: the TTL at which a
	// ForwardJoin is also added to the passive view along the way
	// (default 3).
	PRWL int

	// ShuffleInterval is the cadence of periodic passive-view shuffles
	// (spec.md §9: "cadence is unspecified... default: one tick per
	// second").
	ShuffleInterval time.Duration

	// ShuffleSampleSize bounds how many ids are drawn from each of the
	// active and passive views for one shuffle request, and from the
	// passive view for a shuffle reply (default 6).
	ShuffleSampleSize int

	// ShuffleTTL bounds how many hops a shuffle request travels before the
	// receiver answers it directly (default 3).
	ShuffleTTL int
}

// withDefaults fills zero fields with HyParView's standard parameters.
func (o Options) withDefaults() Options {
	if o.RNG == nil {
		o.RNG = NewSystemRNG()
	}
	if o.ActiveViewSize <= 0 {
		o.ActiveViewSize = 5
	}
	if o.PassiveViewSize <= 0 {
		o.PassiveViewSize = 30
	}
	if o.ARWL <= 0 {
		o.ARWL = 6
	}
	if o.PRWL <= 0 {
		o.PRWL = 3
	}
	if o.ShuffleInterval <= 0 {
		o.ShuffleInterval = time.Second
	}
	if o.ShuffleSampleSize <= 0 {
		o.ShuffleSampleSize = 6
	}
	if o.ShuffleTTL <= 0 {
		o.ShuffleTTL = 3
	}
	return o
}
