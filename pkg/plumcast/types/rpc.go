package types

// RpcKind tags which protocol family an RpcMessage carries.
type RpcKind uint8

const (
	// RpcHyparview carries a membership protocol message.
	RpcHyparview RpcKind = iota
	// RpcPlumtree carries a broadcast protocol message.
	RpcPlumtree
)

func (k RpcKind) String() string {
	switch k {
	case RpcHyparview:
		return "hyparview"
	case RpcPlumtree:
		return "plumtree"
	default:
		return "unknown"
	}
}

// RpcMessage is the tagged union that rides the wire and the per-node
// inbox: {Hyparview(protocol-message), Plumtree(protocol-message)}.
// Body holds the family-specific encoded payload; only the membership and
// broadcast packages know how to decode it, which keeps this package free
// of a dependency on either.
type RpcMessage struct {
	Kind   RpcKind
	Sender NodeId
	Body   []byte

	// LowPriority marks messages (IHAVE announcements) that are cheap to
	// regenerate: when a bounded inbox is full, a LowPriority arrival is
	// dropped in preference to evicting an older queued message
	// (spec.md §9: "drop-oldest for gossip, drop-newest for IHAVE").
	LowPriority bool
}
