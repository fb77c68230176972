// Package broadcast implements a Plumtree-family epidemic broadcast-tree
// protocol: payloads travel eagerly along tree edges, metadata-only
// IHAVE announcements travel along non-tree edges and are grafted back
// in when a tree edge is lost.
//
// Grounded on other_examples/af0cd2e9_WebFirstLanguage-beenet__pkg-gossip-gossip.go.go
// (mesh peers + fanout sets + a seen-message map) and
// other_examples/cf8a4351_technicolor-research-pnyxdb__network-gossipsub-gossipsub.go.go
// (delivery-loop shape), wrapped the way the teacher's core/deliver.go
// wraps a state machine behind a narrow Commit-style capability.
package broadcast

import (
	"encoding/json"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

type messageKind uint8

const (
	kindGossip messageKind = iota
	kindIHave
	kindGraft
	kindPrune
)

// ProtocolMessage is the union of wire messages Plumtree exchanges.
type ProtocolMessage struct {
	Kind   messageKind
	Gossip *GossipMsg
	IHave  *IHaveMsg
	Graft  *GraftMsg
	Prune  *PruneMsg
}

// GossipMsg carries a full payload-bearing broadcast.
type GossipMsg struct {
	Sender  types.NodeId
	ID      types.MessageId
	Round   int
	Content []byte
}

// IHaveMsg announces that Sender holds a message with ID, without the
// payload.
type IHaveMsg struct {
	Sender types.NodeId
	ID     types.MessageId
	Round  int
}

// GraftMsg requests Sender's message ID be (re-)sent eagerly and promotes
// Sender to an eager peer going forward.
type GraftMsg struct {
	Sender types.NodeId
	ID     types.MessageId
}

// PruneMsg demotes the eager edge to Sender down to lazy, sent after
// receiving a duplicate GOSSIP from a node already in the eager set.
type PruneMsg struct {
	Sender types.NodeId
}

// Encode serializes the message for the wire.
func (m ProtocolMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewGossip builds a GOSSIP message carrying msg at round, used by tests
// and by callers replaying a message outside the normal engine flow.
func NewGossip(sender types.NodeId, msg types.Message, round int) ProtocolMessage {
	return ProtocolMessage{
		Kind:   kindGossip,
		Gossip: &GossipMsg{Sender: sender, ID: msg.ID, Round: round, Content: msg.Content},
	}
}

// IsAnnouncementOnly reports whether m is an IHAVE: cheap to regenerate,
// so callers bounding a queue can prefer dropping these over GOSSIP
// (spec.md §9).
func (m ProtocolMessage) IsAnnouncementOnly() bool {
	return m.Kind == kindIHave
}

// Decode parses a wire-encoded ProtocolMessage.
func Decode(data []byte) (ProtocolMessage, error) {
	var m ProtocolMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ProtocolMessage{}, err
	}
	return m, nil
}
