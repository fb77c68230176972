// Package transport defines the wire-level contract a plumcast service
// depends on: one-way casts identified by stable 32-bit procedure IDs,
// with no replies and no built-in retries (spec.md §4.5 — "the core adds
// no framing beyond the outer cast envelope").
//
// Grounded on the teacher's pkg/mcast/core/transport.go Transport
// interface and its relt-backed implementation, generalized from a
// two-method (Broadcast/Unicast) reliable-multicast API to plumcast's
// single-destination RpcMessage cast model.
package transport

import (
	"context"
	"errors"

	"github.com/jabolina/plumcast/pkg/plumcast/membership"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// errQueueFull is returned by a Transport when an outbound cast is
// dropped because the destination's queue is saturated — a transient
// network condition per spec.md §7, not a fatal one.
var errQueueFull = errors.New("transport: destination queue full")

// ProcedureID is a stable 32-bit identifier for a wire-level cast family.
// Fixed by convention and must not change without a wire-compatibility
// break (spec.md §6).
type ProcedureID uint32

const (
	// ProcedurePlumtreeGossip carries full-payload GOSSIP messages.
	ProcedurePlumtreeGossip ProcedureID = 0x17CD_0000
	// ProcedurePlumtreeIHave carries metadata-only IHAVE announcements.
	// procedureTable lists it with a raised priority (200) relative to
	// the other families; the transports do not reorder casts by it.
	ProcedurePlumtreeIHave ProcedureID = 0x17CD_0001
	// ProcedurePlumtreeGraft carries GRAFT requests.
	ProcedurePlumtreeGraft ProcedureID = 0x17CD_0002
	// ProcedurePlumtreePrune carries PRUNE notices.
	ProcedurePlumtreePrune ProcedureID = 0x17CD_0003

	// ProcedureHyparviewJoin carries HyParView JOIN messages.
	ProcedureHyparviewJoin ProcedureID = 0x17CD_1000
	// ProcedureHyparviewForwardJoin carries FORWARDJOIN messages.
	ProcedureHyparviewForwardJoin ProcedureID = 0x17CD_1001
	// ProcedureHyparviewNeighbor carries NEIGHBOR messages.
	ProcedureHyparviewNeighbor ProcedureID = 0x17CD_1002
	// ProcedureHyparviewNeighborReply carries NEIGHBOR replies.
	ProcedureHyparviewNeighborReply ProcedureID = 0x17CD_1003
	// ProcedureHyparviewDisconnect carries DISCONNECT notices.
	ProcedureHyparviewDisconnect ProcedureID = 0x17CD_1004
	// ProcedureHyparviewShuffle carries SHUFFLE requests.
	ProcedureHyparviewShuffle ProcedureID = 0x17CD_1005
	// ProcedureHyparviewShuffleReply carries SHUFFLE replies.
	ProcedureHyparviewShuffleReply ProcedureID = 0x17CD_1006
)

// defaultQueueDepth bounds a procedure's per-family client queue
// (spec.md §4.5 Table: 4096 for every family).
const defaultQueueDepth = 4096

var hyparviewProcedureBySubKind = map[string]ProcedureID{
	"join":            ProcedureHyparviewJoin,
	"forward_join":    ProcedureHyparviewForwardJoin,
	"neighbor":        ProcedureHyparviewNeighbor,
	"neighbor_reply":  ProcedureHyparviewNeighborReply,
	"disconnect":      ProcedureHyparviewDisconnect,
	"shuffle_request": ProcedureHyparviewShuffle,
	"shuffle_reply":   ProcedureHyparviewShuffleReply,
}

// procedureFor maps an outbound RpcMessage to its wire procedure ID
// (spec.md §4.5's table). Plumtree's IHAVE flag is carried directly on
// the RpcMessage (types.RpcMessage.LowPriority) so no decode is needed;
// every other Plumtree message, GRAFT and PRUNE included, is labeled
// ProcedurePlumtreeGossip, so ProcedurePlumtreeGraft and
// ProcedurePlumtreePrune are never returned. A hyparview message is
// decoded once, here, purely to label it — its
// payload bytes are untouched and travel as opaque content.
func procedureFor(msg types.RpcMessage) ProcedureID {
	if msg.Kind == types.RpcPlumtree {
		if msg.LowPriority {
			return ProcedurePlumtreeIHave
		}
		return ProcedurePlumtreeGossip
	}

	m, err := membership.Decode(msg.Body)
	if err != nil {
		return ProcedureHyparviewJoin
	}
	if id, ok := hyparviewProcedureBySubKind[m.SubKind()]; ok {
		return id
	}
	return ProcedureHyparviewJoin
}

// Envelope pairs a decoded inbound RpcMessage with the transport-level
// peer address it actually arrived from, so callers can reject a
// message whose declared sender doesn't match (spec.md §8's "misrouted
// cast" scenario, §4.5: "the message's declared sender matches the peer
// from which it arrived").
type Envelope struct {
	From types.Address
	To   types.NodeId
	RPC  types.RpcMessage
}

// Transport is the capability a plumcast service depends on to exchange
// RpcMessages with peers. One-way casts only; no replies are modeled
// (spec.md §4.5).
type Transport interface {
	// Send casts msg to dest. Errors are transient-network signals only
	// (spec.md §7); the caller logs and lets the engines self-heal.
	Send(ctx context.Context, dest types.NodeId, msg types.RpcMessage) error

	// Listen returns the channel of inbound envelopes. Closed when the
	// transport is closed.
	Listen() <-chan Envelope

	// Close releases the transport's resources. Idempotent.
	Close() error
}

// Addressable is a Transport that can report its own advertised address,
// used to stamp freshly generated NodeIds (registry.Registry) and to
// bind two loop transports to each other in tests.
type Addressable interface {
	Transport
	Address() types.Address
}
