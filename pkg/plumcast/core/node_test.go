package core

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/plumcast/pkg/plumcast/broadcast"
	"github.com/jabolina/plumcast/pkg/plumcast/definition"
	"github.com/jabolina/plumcast/pkg/plumcast/membership"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// cluster is an in-memory fabric of Nodes wired directly to each other's
// Enqueue, standing in for the registry+transport layer in isolation
// tests. Grounded on the teacher's test/tcp_transport_test.go pattern of
// a small fixed-membership loopback fabric.
type cluster struct {
	nodes map[types.NodeId]*Node
}

func newCluster() *cluster {
	return &cluster{nodes: make(map[types.NodeId]*Node)}
}

func (c *cluster) newNode(t *testing.T, localID uint64, seed int64) *Node {
	t.Helper()
	id := types.NodeId{Address: "loop", LocalID: localID}
	opt := NodeOptions{
		Membership: membership.Options{RNG: membership.NewSeededRNG(seed)},
		Broadcast:  broadcast.Options{},
	}
	n := NewNode(id, c, definition.NewDefaultLogger(), opt)
	c.nodes[id] = n
	return n
}

// SendMessage implements Sender by directly enqueueing onto the
// destination node, skipping any real transport.
func (c *cluster) SendMessage(dest types.NodeId, msg types.RpcMessage) error {
	n, ok := c.nodes[dest]
	if !ok {
		return types.ErrNodeUnregistered
	}
	n.Enqueue(msg)
	return nil
}

// settle drains every node's engines and inbox until no node has inbound
// messages left, bounding the number of rounds so a protocol bug fails
// the test instead of hanging the process. Delivered messages stay on
// each node's deliverable queue for the test to Poll.
func settle(t *testing.T, nodes ...*Node) {
	t.Helper()
	for round := 0; round < 200; round++ {
		for _, n := range nodes {
			n.mu.Lock()
			err := n.fatal
			if err == nil {
				n.drainToFixpoint()
			}
			n.mu.Unlock()
			if err != nil {
				t.Fatalf("node %s: %v", n.ID(), err)
			}
		}
		progressed := false
		for _, n := range nodes {
			if n.inbox.Len() > 0 {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
	t.Fatalf("settle: did not converge after 200 rounds")
}

func tick(nodes ...*Node) {
	now := time.Unix(0, 0)
	for _, n := range nodes {
		n.Tick(now)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNodeJoinEstablishesActiveView(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)
	b := c.newNode(t, 2, 2)

	b.Join(a.ID())
	settle(t, a, b)

	if len(a.ActiveView()) != 1 || a.ActiveView()[0] != b.ID() {
		t.Fatalf("a active view = %v, want [%s]", a.ActiveView(), b.ID())
	}
	if len(b.ActiveView()) != 1 || b.ActiveView()[0] != a.ID() {
		t.Fatalf("b active view = %v, want [%s]", b.ActiveView(), a.ID())
	}
}

func TestNodeBroadcastDeliversToAllButOrigin(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)
	b := c.newNode(t, 2, 2)
	d := c.newNode(t, 3, 3)

	b.Join(a.ID())
	d.Join(a.ID())
	settle(t, a, b, d)
	// Let HyParView promote b<->d into each other's passive/active sets
	// via shuffles is not required for tree correctness here; both are
	// active-linked through a which is sufficient for eager delivery.

	id, err := a.Broadcast(types.BytesPayload("hello"))
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	settle(t, a, b, d)

	for _, n := range []*Node{b, d} {
		msg, status, err := n.Poll()
		if err != nil {
			t.Fatalf("node %s: %v", n.ID(), err)
		}
		if status != PollReady {
			t.Fatalf("node %s: expected a delivered message, got status %v", n.ID(), status)
		}
		if msg.ID != id {
			t.Fatalf("node %s: delivered %v, want %v", n.ID(), msg.ID, id)
		}
		if string(msg.Content) != "hello" {
			t.Fatalf("node %s: content = %q, want %q", n.ID(), msg.Content, "hello")
		}
	}

	// Origin never self-delivers.
	_, status, err := a.Poll()
	if err != nil {
		t.Fatalf("origin Poll: %v", err)
	}
	if status != PollPending {
		t.Fatalf("origin status = %v, want PollPending", status)
	}
}

func TestNodeDuplicateGossipIsSuppressed(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)
	b := c.newNode(t, 2, 2)

	b.Join(a.ID())
	settle(t, a, b)

	id, err := a.Broadcast(types.BytesPayload("x"))
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	settle(t, a, b)

	msg, status, err := b.Poll()
	if err != nil || status != PollReady || msg.ID != id {
		t.Fatalf("first delivery: msg=%v status=%v err=%v", msg, status, err)
	}

	// Replaying the same GOSSIP at b must not redeliver.
	replay := broadcast.NewGossip(a.ID(), types.Message{ID: id, Content: []byte("x")}, 0)
	body, err := replay.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b.Enqueue(types.RpcMessage{Kind: types.RpcPlumtree, Sender: a.ID(), Body: body})
	settle(t, a, b)

	_, status, err = b.Poll()
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if status != PollPending {
		t.Fatalf("duplicate gossip was redelivered, status = %v", status)
	}
}

func TestNodeLeaveNotifiesPeers(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)
	b := c.newNode(t, 2, 2)

	b.Join(a.ID())
	settle(t, a, b)

	b.Leave()
	settle(t, a, b)

	if len(a.ActiveView()) != 0 {
		t.Fatalf("a active view after b leaves = %v, want empty", a.ActiveView())
	}

	_, status, err := b.Poll()
	if err != nil {
		t.Fatalf("Poll after Leave: %v", err)
	}
	if status != PollTerminal {
		t.Fatalf("b status after Leave = %v, want PollTerminal", status)
	}
}

func TestNodeRunDeliversOverChannel(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)
	b := c.newNode(t, 2, 2)

	b.Join(a.ID())
	settle(t, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Run(ctx)

	id, err := a.Broadcast(types.BytesPayload("ran"))
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	settle(t, a)

	select {
	case msg := <-ch:
		if msg.ID != id {
			t.Fatalf("Run delivered %v, want %v", msg.ID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run never delivered the broadcast message")
	}

	cancel()
	for range ch {
	}
}

func TestNodeMisroutedCastReturnsError(t *testing.T) {
	c := newCluster()
	a := c.newNode(t, 1, 1)

	err := c.SendMessage(types.NodeId{Address: "loop", LocalID: 99}, types.RpcMessage{Kind: types.RpcPlumtree})
	if err != types.ErrNodeUnregistered {
		t.Fatalf("SendMessage to unregistered node: err = %v, want ErrNodeUnregistered", err)
	}
	_ = a
}
