// Package registry implements the process-wide local-id → node table
// (spec.md §4.6, C6): a copy-on-write map read by every inbound cast
// handler and every node runtime in the process, written rarely (node
// join/leave).
//
// Grounded on the teacher's pkg/mcast/core/peer.go InvokerInstance
// singleton-via-package-variable idiom and on hashicorp/golang-lru's
// atomic-pointer snapshot style (the same dependency the broadcast
// engine uses for its seen-cache), generalized here into a read-mostly
// routing table instead of a cache.
package registry

import (
	"context"
	"sync/atomic"

	"github.com/jabolina/plumcast/pkg/plumcast/membership"
	"github.com/jabolina/plumcast/pkg/plumcast/transport"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// NodeHandle is the capability the registry needs from a running node:
// the producer side of its inbox.
type NodeHandle interface {
	ID() types.NodeId
	Enqueue(rpc types.RpcMessage)
}

// Registry is the process-wide local-id → NodeHandle table. Safe for
// concurrent use: reads never block a writer and vice versa (spec.md
// §4.6: "implementations may use a copy-on-write snapshot to achieve
// lock-free reads").
type Registry struct {
	address types.Address
	gen     *types.LocalIDGenerator
	table   atomic.Pointer[map[uint64]NodeHandle]
	tport   transport.Transport
	logger  types.Logger
}

// New constructs a Registry bound to address and tport. address is
// stamped onto every NodeId this registry mints.
func New(address types.Address, tport transport.Transport, logger types.Logger) *Registry {
	r := &Registry{
		address: address,
		gen:     types.NewLocalIDGenerator(),
		tport:   tport,
		logger:  logger,
	}
	empty := make(map[uint64]NodeHandle)
	r.table.Store(&empty)
	return r
}

// GenerateNodeId allocates a fresh local-id bound to the registry's
// listening address.
func (r *Registry) GenerateNodeId() types.NodeId {
	return types.NodeId{Address: r.address, LocalID: r.gen.Next()}
}

// RegisterLocalNode inserts handle under handle.ID().LocalID via a
// copy-on-write swap.
func (r *Registry) RegisterLocalNode(handle NodeHandle) {
	for {
		old := r.table.Load()
		next := make(map[uint64]NodeHandle, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[handle.ID().LocalID] = handle
		if r.table.CompareAndSwap(old, &next) {
			return
		}
	}
}

// DeregisterLocalNode removes localID via a copy-on-write swap.
func (r *Registry) DeregisterLocalNode(localID uint64) {
	for {
		old := r.table.Load()
		if _, ok := (*old)[localID]; !ok {
			return
		}
		next := make(map[uint64]NodeHandle, len(*old))
		for k, v := range *old {
			if k != localID {
				next[k] = v
			}
		}
		if r.table.CompareAndSwap(old, &next) {
			return
		}
	}
}

// GetLocalNodeOrDisconnect looks up localID. On a miss, it synthesizes a
// courtesy membership Disconnect back to apparentSender so a stale peer
// learns the node is gone (spec.md §4.6, §7 "protocol misrouting").
func (r *Registry) GetLocalNodeOrDisconnect(localID uint64, apparentSender types.NodeId) (NodeHandle, bool) {
	table := r.table.Load()
	handle, ok := (*table)[localID]
	if ok {
		return handle, true
	}

	r.logger.Warnf("registry %s: unknown local-id %d, notifying apparent sender %s", r.address, localID, apparentSender)
	dead := types.NodeId{Address: r.address, LocalID: localID}
	disconnect := membership.NewDisconnect(dead)
	body, err := disconnect.Encode()
	if err != nil {
		r.logger.Errorf("registry %s: failed encoding courtesy disconnect: %v", r.address, err)
		return nil, false
	}
	r.SendMessage(apparentSender, types.RpcMessage{Kind: types.RpcHyparview, Sender: dead, Body: body})
	return nil, false
}

// SendMessage routes rpc to dest via the transport client, logging and
// swallowing any error (spec.md §4.6).
func (r *Registry) SendMessage(dest types.NodeId, rpc types.RpcMessage) error {
	if err := r.tport.Send(context.Background(), dest, rpc); err != nil {
		r.logger.Warnf("registry %s: failed sending to %s: %v", r.address, dest, err)
		return nil
	}
	return nil
}

// Dispatch routes an inbound transport envelope to its target node's
// inbox, enforcing the misrouted-cast rule: if the declared sender's
// address does not match the peer the envelope actually arrived from,
// the message is dropped (spec.md §4.5, §8 boundary property).
func (r *Registry) Dispatch(env transport.Envelope) {
	handle, ok := r.GetLocalNodeOrDisconnect(env.To.LocalID, env.RPC.Sender)
	if !ok {
		return
	}
	if env.RPC.Sender.Address != env.From {
		r.logger.Warnf("registry %s: dropping cast whose declared sender %s does not match transport peer %s", r.address, env.RPC.Sender, env.From)
		return
	}
	handle.Enqueue(env.RPC)
}
