package core

import (
	"sync"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// inbox is the per-node bounded queue of inbound RpcMessages. The
// producer end (registry/transport dispatch) is shared across
// goroutines; the consumer end is exclusive to the node's single driver
// (spec.md §5). Bounding it takes the spec's §9 open-question
// recommendation: unbounded growth under pathological fan-in is a real
// risk, so this ring drops rather than grows without limit.
type inbox struct {
	mu       sync.Mutex
	items    []types.RpcMessage
	capacity int
	dropped  uint64
}

func newInbox(capacity int) *inbox {
	if capacity <= 0 {
		capacity = 4096
	}
	return &inbox{capacity: capacity}
}

// Push enqueues m, applying the bounded drop policy when full:
// LowPriority arrivals (IHAVE) are dropped themselves (drop-newest);
// anything else evicts the oldest queued message to make room
// (drop-oldest), matching spec.md §9.
func (b *inbox) Push(m types.RpcMessage) (accepted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.capacity {
		if m.LowPriority {
			b.dropped++
			return false
		}
		b.items = b.items[1:]
		b.dropped++
	}
	b.items = append(b.items, m)
	return true
}

// Pop removes and returns the oldest message, if any.
func (b *inbox) Pop() (types.RpcMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return types.RpcMessage{}, false
	}
	m := b.items[0]
	b.items = b.items[1:]
	return m, true
}

// Len reports the current queue depth.
func (b *inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Dropped reports how many messages have been dropped since construction.
func (b *inbox) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
