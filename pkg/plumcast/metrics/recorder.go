// Package metrics defines the Recorder capability the core reports
// events through, and a Prometheus-backed implementation. Metrics
// exposition is an external collaborator per spec.md §1 — the core only
// ever talks to the Recorder interface, never to Prometheus directly.
package metrics

// Recorder is the capability the core reports protocol events through.
// A nil-safe no-op implementation is the default so wiring metrics is
// opt-in.
type Recorder interface {
	ActiveViewSize(node string, size int)
	MessageDelivered(node string)
	DuplicateDropped(node string)
	InboxDropped(node string)
	QueueDepth(node string, depth int)
}

type noop struct{}

// NoOp is a Recorder that discards every event.
var NoOp Recorder = noop{}

func (noop) ActiveViewSize(string, int) {}
func (noop) MessageDelivered(string)    {}
func (noop) DuplicateDropped(string)    {}
func (noop) InboxDropped(string)        {}
func (noop) QueueDepth(string, int)     {}
