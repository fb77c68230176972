package broadcast

import "github.com/jabolina/plumcast/pkg/plumcast/types"

// ActionKind tags which variant an Action carries.
type ActionKind uint8

const (
	// ActionSend asks the core to deliver Message to Destination.
	ActionSend ActionKind = iota
	// ActionDeliver asks the core to enqueue Payload on the application's
	// deliverable stream.
	ActionDeliver
)

// Action is one unit of work the engine asks the core to perform.
type Action struct {
	Kind ActionKind

	// Valid when Kind == ActionSend.
	Destination types.NodeId
	Message     ProtocolMessage

	// Valid when Kind == ActionDeliver.
	Deliver types.Message
}
