package membership

import "github.com/jabolina/plumcast/pkg/plumcast/types"

// ActionKind tags which variant an Action carries.
type ActionKind uint8

const (
	// ActionSend asks the core to deliver Message to Destination.
	ActionSend ActionKind = iota
	// ActionNotify asks the core to propagate a neighbor-up/down event
	// into the broadcast engine.
	ActionNotify
	// ActionDisconnect is informational: a peer left the active view.
	ActionDisconnect
)

// EventKind distinguishes NeighborUp from NeighborDown inside a Notify
// action.
type EventKind uint8

const (
	NeighborUp EventKind = iota
	NeighborDown
)

// Action is one unit of work the engine asks the core to perform. Exactly
// one field set is meaningful, selected by Kind.
type Action struct {
	Kind ActionKind

	// Valid when Kind == ActionSend.
	Destination types.NodeId
	Message     ProtocolMessage

	// Valid when Kind == ActionNotify.
	Event EventKind
	Peer  types.NodeId

	// Valid when Kind == ActionDisconnect.
	Disconnected types.NodeId
}
