// Package core is the per-node protocol engine: the coupled membership
// and broadcast state machines, the message-dispatch loop that drives
// them, the delivery queue, and the node<->transport contract (spec.md
// §2's C4, "the heart of the core").
//
// Grounded on the teacher's pkg/mcast/core/peer.go almost module for
// module — the Invoker abstraction, the poll/process split, the
// deferred-finish pattern on message handling — rewritten for two
// coupled gossip engines instead of one consensus state machine.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/plumcast/pkg/plumcast/broadcast"
	"github.com/jabolina/plumcast/pkg/plumcast/membership"
	"github.com/jabolina/plumcast/pkg/plumcast/metrics"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// Sender is the narrow capability Node needs from its owning service to
// place outbound protocol messages on the wire (spec.md §4.6:
// "send_message(dest, RpcMessage): route via the transport client").
type Sender interface {
	SendMessage(dest types.NodeId, msg types.RpcMessage) error
}

// PollStatus is the tri-state result of Poll, matching spec.md §6's
// {Ready(Some)|Ready(None)|Pending}.
type PollStatus int

const (
	// PollPending means no message is ready; try again later.
	PollPending PollStatus = iota
	// PollReady means a Message was returned.
	PollReady
	// PollTerminal means the delivery stream has ended (node left, or a
	// fatal error occurred — check the accompanying error).
	PollTerminal
)

// NodeOptions tunes a Node's engines and ambient behavior.
type NodeOptions struct {
	Membership    membership.Options
	Broadcast     broadcast.Options
	InboxCapacity int
	Metrics       metrics.Recorder
}

func (o NodeOptions) withDefaults() NodeOptions {
	if o.Metrics == nil {
		o.Metrics = metrics.NoOp
	}
	if o.Membership.RNG == nil {
		o.Membership.RNG = membership.NewSystemRNG()
	}
	return o
}

// Node owns one membership engine and one broadcast engine, and drives
// them per spec.md §4.4. Conceptually the engines are driven by a single
// execution context (spec.md §5); in practice this module's public Node
// API is callable from whichever goroutine an application chooses —
// Service.tickLoop calls Tick from one goroutine while Run's poll loop
// (or a caller's own Poll/Broadcast calls) runs on another, exactly the
// shape of cmd/plumcastd's timer goroutine calling Broadcast while a
// separate goroutine drains Run's channel. mu guards every engine and
// sequencing mutation so that shape is safe, the same coarse
// mutex-guarded-peer idiom as the teacher's core/peer.go
// (Peer.mutex *sync.Mutex guarding Peer.observers).
type Node struct {
	id types.NodeId

	mu    sync.Mutex
	mem   *membership.Engine
	bcast *broadcast.Engine

	seqno uint64

	sender Sender
	logger types.Logger
	rec    metrics.Recorder

	inbox       *inbox
	deliverable []types.Message

	closed bool
	fatal  error
}

// NewNode constructs a Node bound to id, registered nowhere yet — the
// owning service is responsible for registration (spec.md §3 lifecycle).
func NewNode(id types.NodeId, sender Sender, logger types.Logger, opt NodeOptions) *Node {
	opt = opt.withDefaults()
	return &Node{
		id:     id,
		mem:    membership.New(id, opt.Membership),
		bcast:  broadcast.New(id, opt.Broadcast, opt.Metrics),
		seqno:  membership.RandomInitialSeqno(opt.Membership.RNG),
		sender: sender,
		logger: logger,
		rec:    opt.Metrics,
		inbox:  newInbox(opt.InboxCapacity),
	}
}

// ID returns the node's identity.
func (n *Node) ID() types.NodeId { return n.id }

// ActiveView exposes the current membership active view, mainly for
// tests and diagnostics.
func (n *Node) ActiveView() []types.NodeId {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mem.ActiveView()
}

// Join forwards to the membership engine (spec.md §4.4). Idempotent once
// connected; repeated joins are allowed and treated as topology hints.
func (n *Node) Join(contact types.NodeId) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mem.Join(contact)
}

// Broadcast stamps payload with (self.id, self.seqno), increments seqno,
// and submits it to the broadcast engine. Returns immediately; delivery
// back to the local application is not guaranteed (spec.md §4.4).
func (n *Node) Broadcast(payload types.Payload) (types.MessageId, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return types.MessageId{}, types.ErrServiceClosed
	}
	if n.seqno == ^uint64(0) {
		n.haltLocked(types.ErrSequenceOverflow)
		return types.MessageId{}, types.ErrSequenceOverflow
	}

	content, err := payload.Encode()
	if err != nil {
		return types.MessageId{}, err
	}

	id := types.MessageId{Origin: n.id, Seqno: n.seqno}
	n.seqno++

	n.bcast.BroadcastMessage(types.Message{ID: id, Content: content})
	return id, nil
}

// Enqueue places an inbound RpcMessage on the node's inbox. Safe to call
// from a different goroutine than the one driving Poll.
func (n *Node) Enqueue(rpc types.RpcMessage) {
	if !n.inbox.Push(rpc) {
		n.rec.InboxDropped(n.id.String())
		n.logger.Warnf("node %s: dropped inbound %s message from %s, inbox full", n.id, rpc.Kind, rpc.Sender)
	}
}

// Poll performs one delivery-stream cycle (spec.md §4.4):
//  1. if a message is already queued for delivery, return it;
//  2. otherwise drain both engines and the inbox to a fixpoint, in
//     round-robin passes, so a membership NeighborDown always reaches
//     the broadcast engine before that engine's next PollAction (spec.md
//     §3 invariant 3);
//  3. if draining produced any delivery, return one; else report Pending.
func (n *Node) Poll() (types.Message, PollStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fatal != nil {
		return types.Message{}, PollTerminal, n.fatal
	}
	if n.closed {
		return types.Message{}, PollTerminal, nil
	}

	if msg, ok := n.popDeliverable(); ok {
		return msg, PollReady, nil
	}

	delivered := n.drainToFixpoint()

	if delivered {
		if msg, ok := n.popDeliverable(); ok {
			return msg, PollReady, nil
		}
	}
	return types.Message{}, PollPending, nil
}

func (n *Node) popDeliverable() (types.Message, bool) {
	if len(n.deliverable) == 0 {
		return types.Message{}, false
	}
	m := n.deliverable[0]
	n.deliverable = n.deliverable[1:]
	return m, true
}

// drainToFixpoint runs round-robin passes over membership actions,
// broadcast actions, and the inbox until a full pass makes no progress.
// Returns whether any Deliver action was produced along the way.
func (n *Node) drainToFixpoint() bool {
	anyDeliver := false
	for {
		progressed := false

		for {
			a, ok := n.mem.PollAction()
			if !ok {
				break
			}
			progressed = true
			n.handleMembershipAction(a)
		}

		for {
			a, ok := n.bcast.PollAction()
			if !ok {
				break
			}
			progressed = true
			if a.Kind == broadcast.ActionDeliver {
				anyDeliver = true
			}
			n.handleBroadcastAction(a)
		}

		for {
			rpc, ok := n.inbox.Pop()
			if !ok {
				break
			}
			progressed = true
			n.dispatchInbound(rpc)
		}

		if !progressed {
			return anyDeliver
		}
	}
}

func (n *Node) handleMembershipAction(a membership.Action) {
	switch a.Kind {
	case membership.ActionSend:
		n.sendMembership(a.Destination, a.Message)
	case membership.ActionNotify:
		switch a.Event {
		case membership.NeighborUp:
			n.bcast.HandleNeighborUp(a.Peer)
			n.logger.Debugf("node %s: neighbor up %s", n.id, a.Peer)
		case membership.NeighborDown:
			n.bcast.HandleNeighborDown(a.Peer)
			n.logger.Debugf("node %s: neighbor down %s", n.id, a.Peer)
		}
	case membership.ActionDisconnect:
		n.logger.Debugf("node %s: disconnected from %s", n.id, a.Disconnected)
	}
}

func (n *Node) handleBroadcastAction(a broadcast.Action) {
	switch a.Kind {
	case broadcast.ActionSend:
		n.sendBroadcast(a.Destination, a.Message)
	case broadcast.ActionDeliver:
		n.deliverable = append(n.deliverable, a.Deliver)
		n.rec.MessageDelivered(n.id.String())
	}
}

func (n *Node) dispatchInbound(rpc types.RpcMessage) {
	switch rpc.Kind {
	case types.RpcHyparview:
		m, err := membership.Decode(rpc.Body)
		if err != nil {
			n.logger.Warnf("node %s: bad hyparview message from %s: %v", n.id, rpc.Sender, err)
			return
		}
		n.mem.HandleProtocolMessage(m)
	case types.RpcPlumtree:
		m, err := broadcast.Decode(rpc.Body)
		if err != nil {
			n.logger.Warnf("node %s: bad plumtree message from %s: %v", n.id, rpc.Sender, err)
			return
		}
		n.bcast.HandleProtocolMessage(m)
	default:
		n.logger.Warnf("node %s: unknown rpc kind %d from %s", n.id, rpc.Kind, rpc.Sender)
	}
}

func (n *Node) sendMembership(dest types.NodeId, m membership.ProtocolMessage) {
	body, err := m.Encode()
	if err != nil {
		n.logger.Errorf("node %s: failed encoding hyparview message: %v", n.id, err)
		return
	}
	rpc := types.RpcMessage{Kind: types.RpcHyparview, Sender: n.id, Body: body}
	if err := n.sender.SendMessage(dest, rpc); err != nil {
		n.logger.Warnf("node %s: failed sending hyparview message to %s: %v", n.id, dest, err)
	}
}

func (n *Node) sendBroadcast(dest types.NodeId, m broadcast.ProtocolMessage) {
	body, err := m.Encode()
	if err != nil {
		n.logger.Errorf("node %s: failed encoding plumtree message: %v", n.id, err)
		return
	}
	rpc := types.RpcMessage{
		Kind:        types.RpcPlumtree,
		Sender:      n.id,
		Body:        body,
		LowPriority: m.IsAnnouncementOnly(),
	}
	if err := n.sender.SendMessage(dest, rpc); err != nil {
		n.logger.Warnf("node %s: failed sending plumtree message to %s: %v", n.id, dest, err)
	}
}

// Tick drives each engine's periodic maintenance: HyParView's active-view
// fill and passive-view shuffle, and Plumtree's missing-message graft
// retry ladder (spec.md §9: cadence is the caller's tunable). It also
// reports gauge-style metrics, since those are only meaningful as of a
// point in time.
func (n *Node) Tick(now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.mem.Tick(now)
	n.bcast.Tick(now)
	n.rec.ActiveViewSize(n.id.String(), len(n.mem.ActiveView()))
	n.rec.QueueDepth(n.id.String(), n.inbox.Len())
}

// Leave synthesizes a Disconnect for every current active-view peer and
// marks the node closed, so a subsequent Poll reports PollTerminal
// (spec.md §4.4, §3 invariant 5). Best-effort: no acknowledgments are
// expected. The caller is still responsible for deregistering the node
// from the service registry.
func (n *Node) Leave() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, peer := range n.mem.ActiveView() {
		n.sendMembership(peer, membership.NewDisconnect(n.id))
	}
	n.closed = true
}

// runPollInterval is how often Run retries Poll while it is Pending.
const runPollInterval = 10 * time.Millisecond

// Run wraps Poll in a loop for callers who prefer a channel over manual
// polling: pure additive sugar over the same Poll path, grounded on the
// teacher's invoker.Spawn(p.poll) pattern. The returned channel is closed
// once Poll reports PollTerminal or ctx is done.
func (n *Node) Run(ctx context.Context) <-chan types.Message {
	out := make(chan types.Message)
	InvokerInstance().Spawn(func() {
		defer close(out)
		ticker := time.NewTicker(runPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, status, err := n.Poll()
			switch status {
			case PollReady:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
				continue
			case PollTerminal:
				if err != nil {
					n.logger.Errorf("node %s: Run stopping on terminal error: %v", n.id, err)
				}
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	})
	return out
}

// haltLocked marks the node fatally stopped. Callers must already hold
// n.mu.
func (n *Node) haltLocked(err error) {
	n.fatal = err
	n.closed = true
	n.logger.Errorf("node %s: halted: %v", n.id, err)
}
