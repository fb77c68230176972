package broadcast

import "github.com/jabolina/plumcast/pkg/plumcast/types"

// peerset is an unordered set of NodeIds, used for both the eager and the
// lazy peer sets.
type peerset map[types.NodeId]struct{}

func newPeerset() peerset { return make(peerset) }

func (p peerset) Contains(id types.NodeId) bool {
	_, ok := p[id]
	return ok
}

func (p peerset) Add(id types.NodeId) { p[id] = struct{}{} }

func (p peerset) Remove(id types.NodeId) { delete(p, id) }

func (p peerset) Items() []types.NodeId {
	out := make([]types.NodeId, 0, len(p))
	for id := range p {
		out = append(out, id)
	}
	return out
}

// ItemsExcept returns all members other than except.
func (p peerset) ItemsExcept(except types.NodeId) []types.NodeId {
	out := make([]types.NodeId, 0, len(p))
	for id := range p {
		if id != except {
			out = append(out, id)
		}
	}
	return out
}
