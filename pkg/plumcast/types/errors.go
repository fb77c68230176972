package types

import "errors"

var (
	// ErrSequenceOverflow is returned (and the node halts) if a node's
	// broadcast sequence number would wrap. Wrapping would let a restarted
	// node collide with a past MessageId, so the core treats it as fatal
	// rather than silently wrapping.
	ErrSequenceOverflow = errors.New("plumcast: broadcast sequence number would wrap")

	// ErrNodeUnregistered is returned when an operation targets a local-id
	// that the registry no longer (or never did) hold.
	ErrNodeUnregistered = errors.New("plumcast: local node id not registered")

	// ErrServiceClosed is returned by operations attempted after the owning
	// service has been torn down.
	ErrServiceClosed = errors.New("plumcast: service closed")

	// ErrUnknownRpcKind describes an RpcMessage whose tag does not match
	// any known protocol family. No function in this module returns it;
	// core.Node logs and drops such messages.
	ErrUnknownRpcKind = errors.New("plumcast: unknown rpc message kind")
)
