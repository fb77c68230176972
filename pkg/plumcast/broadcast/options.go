package broadcast

import "time"

// Options tunes a single Engine instance.
type Options struct {
	// SeenCacheSize bounds the "already delivered" LRU (spec.md §9 open
	// question: "imposing a bound... is a recommended refinement", taken
	// here via hashicorp/golang-lru — see DESIGN.md). Default 8192.
	SeenCacheSize int

	// FirstGraftTimeout is how long to wait before grafting a message
	// known only through IHAVE from its first announcer, measured from
	// the first Tick after that IHAVE arrived. Default 200ms.
	FirstGraftTimeout time.Duration

	// RetryGraftTimeout is how long to wait between subsequent graft
	// retries against the next announcer if one doesn't pan out,
	// supplementing spec.md's single-timeout sketch with the original
	// Plumtree paper's retry ladder. Default 500ms.
	RetryGraftTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SeenCacheSize <= 0 {
		o.SeenCacheSize = 8192
	}
	if o.FirstGraftTimeout <= 0 {
		o.FirstGraftTimeout = 200 * time.Millisecond
	}
	if o.RetryGraftTimeout <= 0 {
		o.RetryGraftTimeout = 500 * time.Millisecond
	}
	return o
}
