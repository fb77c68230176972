package membership

import (
	"testing"
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

func node(local uint64) types.NodeId {
	return types.NodeId{Address: "loop", LocalID: local}
}

// fabric drives a fixed set of Engines by routing each ActionSend to its
// destination's HandleProtocolMessage, round-robin to a fixpoint.
type fabric struct {
	engines map[types.NodeId]*Engine
}

func newFabric(ids ...types.NodeId) *fabric {
	f := &fabric{engines: make(map[types.NodeId]*Engine)}
	for _, id := range ids {
		f.engines[id] = New(id, Options{RNG: NewSeededRNG(int64(id.LocalID))})
	}
	return f
}

func (f *fabric) settle(t *testing.T) {
	t.Helper()
	for round := 0; round < 200; round++ {
		progressed := false
		for _, e := range f.engines {
			for {
				a, ok := e.PollAction()
				if !ok {
					break
				}
				progressed = true
				if a.Kind == ActionSend {
					if dst, ok := f.engines[a.Destination]; ok {
						dst.HandleProtocolMessage(a.Message)
					}
				}
			}
		}
		if !progressed {
			return
		}
	}
	t.Fatalf("fabric: did not converge after 200 rounds")
}

func TestEngineJoinAddsBidirectionalActiveLink(t *testing.T) {
	a, b := node(1), node(2)
	f := newFabric(a, b)

	f.engines[b].Join(a)
	f.settle(t)

	if !f.engines[a].active.Contains(b) {
		t.Fatalf("a's active view does not contain b")
	}
	if !f.engines[b].active.Contains(a) {
		t.Fatalf("b's active view does not contain a")
	}
}

func TestEngineForwardJoinReachesThirdNode(t *testing.T) {
	a, b, c := node(1), node(2), node(3)
	f := newFabric(a, b, c)

	f.engines[b].Join(a)
	f.settle(t)
	f.engines[c].Join(a)
	f.settle(t)

	if !f.engines[a].active.Contains(b) || !f.engines[a].active.Contains(c) {
		t.Fatalf("a active view = %v, want b and c", f.engines[a].ActiveView())
	}
}

func TestEngineActiveViewEvictsOnOverflow(t *testing.T) {
	opt := Options{RNG: NewSeededRNG(7), ActiveViewSize: 1}
	a := New(node(1), opt)
	b := New(node(2), opt)
	c := New(node(3), opt)

	f := &fabric{engines: map[types.NodeId]*Engine{node(1): a, node(2): b, node(3): c}}

	b.Join(node(1))
	f.settle(t)
	c.Join(node(1))
	f.settle(t)

	if a.active.Len() != 1 {
		t.Fatalf("a active view len = %d, want 1 (bounded)", a.active.Len())
	}
}

func TestEngineDisconnectEmitsNeighborDown(t *testing.T) {
	a, b := node(1), node(2)
	f := newFabric(a, b)

	f.engines[b].Join(a)
	f.settle(t)

	f.engines[b].HandleProtocolMessage(NewDisconnect(a))

	foundNotify := false
	for {
		act, ok := f.engines[b].PollAction()
		if !ok {
			break
		}
		if act.Kind == ActionNotify && act.Event == NeighborDown && act.Peer == a {
			foundNotify = true
		}
	}
	if !foundNotify {
		t.Fatalf("expected a NeighborDown notify after disconnect")
	}
	if f.engines[b].active.Contains(a) {
		t.Fatalf("b still has a in its active view after disconnect")
	}
}

func TestEngineTickFillsEmptyActiveViewFromPassive(t *testing.T) {
	a, b, c := node(1), node(2), node(3)
	f := newFabric(a, b, c)

	f.engines[b].Join(a)
	f.settle(t)
	f.engines[c].Join(a)
	f.settle(t)

	// b's active view now holds a and c (c arrived via ForwardJoin).
	// Force b to drop both, leaving its active view empty and its passive
	// view holding the two disconnected peers.
	f.engines[b].HandleProtocolMessage(NewDisconnect(a))
	f.engines[b].HandleProtocolMessage(NewDisconnect(c))
	f.settle(t)

	if f.engines[b].active.Len() != 0 {
		t.Fatalf("precondition: b active view should be empty, got %v", f.engines[b].ActiveView())
	}

	hadPassive := f.engines[b].passive.Len() > 0

	now := time.Unix(0, 0)
	f.engines[b].Tick(now)
	f.settle(t)

	if hadPassive && f.engines[b].active.Len() == 0 {
		t.Fatalf("b had a passive candidate but active view is still empty after Tick")
	}
}
