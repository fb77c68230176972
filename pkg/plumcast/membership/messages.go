// Package membership implements a HyParView-family partial-view
// membership protocol: a small active view of live peers survives churn
// and crashes and emits neighbor-up/neighbor-down notifications.
//
// Grounded on other_examples/2b429bc9_lilymona-gog__agent-agent.go.go,
// the one file in the retrieval pack that names HyParView's active and
// passive views and its message set directly, generalized into an
// action-queue state machine the way the teacher's core/peer.go wraps
// its protocol instead of driving sockets directly.
package membership

import (
	"encoding/json"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// messageKind tags a membership protocol message for wire framing.
type messageKind uint8

const (
	kindJoin messageKind = iota
	kindForwardJoin
	kindNeighbor
	kindNeighborReply
	kindDisconnect
	kindShuffleRequest
	kindShuffleReply
)

// ProtocolMessage is the union of wire messages HyParView exchanges.
// Exactly one of the typed fields is meaningful, selected by Kind.
type ProtocolMessage struct {
	Kind messageKind

	Join          *JoinMsg
	ForwardJoin   *ForwardJoinMsg
	Neighbor      *NeighborMsg
	NeighborReply *NeighborReplyMsg
	Disconnect    *DisconnectMsg
	ShuffleReq    *ShuffleRequestMsg
	ShuffleReply  *ShuffleReplyMsg
}

// JoinMsg requests the contact add the sender to its active view.
type JoinMsg struct {
	Sender types.NodeId
}

// ForwardJoinMsg propagates a Join through the network, decrementing TTL
// on each hop (the active random walk).
type ForwardJoinMsg struct {
	Sender  types.NodeId
	NewNode types.NodeId
	TTL     int
}

// NeighborMsg proposes the sender as an active-view neighbor; Priority
// true means the receiver must accept even at the cost of evicting
// another peer (used when a node's active view is empty).
type NeighborMsg struct {
	Sender   types.NodeId
	Priority bool
}

// NeighborReplyMsg answers a NeighborMsg.
type NeighborReplyMsg struct {
	Sender   types.NodeId
	Accepted bool
}

// DisconnectMsg informs the receiver that the sender has dropped it from
// its active view (graceful leave or eviction).
type DisconnectMsg struct {
	Sender types.NodeId
}

// ShuffleRequestMsg carries a small sample of the sender's active and
// passive views, used to keep passive views diverse over time.
type ShuffleRequestMsg struct {
	Sender types.NodeId
	Origin types.NodeId
	Sample []types.NodeId
	TTL    int
}

// ShuffleReplyMsg answers a ShuffleRequestMsg with a reciprocal sample.
type ShuffleReplyMsg struct {
	Sender types.NodeId
	Sample []types.NodeId
}

// Encode serializes the message for the wire.
func (m ProtocolMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// SubKind names the message's wire sub-type, used by the transport to
// pick the matching procedure ID from spec.md §4.5's table without
// needing to decode the message body a second time.
func (m ProtocolMessage) SubKind() string {
	switch m.Kind {
	case kindJoin:
		return "join"
	case kindForwardJoin:
		return "forward_join"
	case kindNeighbor:
		return "neighbor"
	case kindNeighborReply:
		return "neighbor_reply"
	case kindDisconnect:
		return "disconnect"
	case kindShuffleRequest:
		return "shuffle_request"
	case kindShuffleReply:
		return "shuffle_reply"
	default:
		return "unknown"
	}
}

// NewDisconnect builds a Disconnect message from sender, used by the core
// to synthesize a graceful-leave notice for every active-view peer
// (spec.md §4.4) without reaching into the engine's internals.
func NewDisconnect(sender types.NodeId) ProtocolMessage {
	return ProtocolMessage{Kind: kindDisconnect, Disconnect: &DisconnectMsg{Sender: sender}}
}

// Decode parses a wire-encoded ProtocolMessage.
func Decode(data []byte) (ProtocolMessage, error) {
	var m ProtocolMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ProtocolMessage{}, err
	}
	return m, nil
}
