package membership

import "github.com/jabolina/plumcast/pkg/plumcast/types"

// view is a small ordered set of NodeIds bounded at capacity, used for
// both the active and the passive view. Order is preserved (oldest
// first) so eviction can pick the longest-standing member, matching
// HyParView's "drop a random active peer" / "drop oldest passive peer"
// policies.
type view struct {
	capacity int
	order    []types.NodeId
	index    map[types.NodeId]int
}

func newView(capacity int) *view {
	return &view{capacity: capacity, index: make(map[types.NodeId]int)}
}

func (v *view) Contains(id types.NodeId) bool {
	_, ok := v.index[id]
	return ok
}

func (v *view) Len() int { return len(v.order) }

func (v *view) Items() []types.NodeId {
	out := make([]types.NodeId, len(v.order))
	copy(out, v.order)
	return out
}

// Add inserts id if absent, returns false if it was already present.
// When the view is full the oldest member is dropped to make room.
func (v *view) Add(id types.NodeId) bool {
	if v.Contains(id) {
		return false
	}
	if v.Full() {
		if oldest, ok := v.Oldest(); ok {
			v.Remove(oldest)
		}
	}
	v.index[id] = len(v.order)
	v.order = append(v.order, id)
	return true
}

// Remove deletes id if present, returns false if it was absent.
func (v *view) Remove(id types.NodeId) bool {
	i, ok := v.index[id]
	if !ok {
		return false
	}
	v.order = append(v.order[:i], v.order[i+1:]...)
	delete(v.index, id)
	for j := i; j < len(v.order); j++ {
		v.index[v.order[j]] = j
	}
	return true
}

func (v *view) Full() bool {
	return v.capacity > 0 && len(v.order) >= v.capacity
}

// Oldest returns the longest-standing member, or the zero value if empty.
func (v *view) Oldest() (types.NodeId, bool) {
	if len(v.order) == 0 {
		return types.NodeId{}, false
	}
	return v.order[0], true
}

// Random returns a uniformly random member using rng, or the zero value
// if empty.
func (v *view) Random(rng RNG) (types.NodeId, bool) {
	if len(v.order) == 0 {
		return types.NodeId{}, false
	}
	return v.order[rng.Intn(len(v.order))], true
}

// Sample returns up to n distinct members in random order.
func (v *view) Sample(rng RNG, n int) []types.NodeId {
	items := v.Items()
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	if n < len(items) {
		items = items[:n]
	}
	return items
}
