package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// loopHub is the shared in-memory fabric a set of loopTransports register
// with, standing in for a real network for tests and the local demo
// harness. Grounded on the teacher's test/tcp_transport_test.go pattern
// of a small fixed-address loopback fabric, generalized to a registry of
// channels instead of real listeners.
type loopHub struct {
	mu     sync.Mutex
	routes map[types.Address]chan Envelope
}

// Hub is an in-memory transport fabric shared by a set of loop
// transports; opaque to callers outside this package beyond being passed
// back into NewLoopTransport.
type Hub = *loopHub

// NewLoopHub creates an empty in-memory transport fabric.
func NewLoopHub() Hub {
	return &loopHub{routes: make(map[types.Address]chan Envelope)}
}

// loopTransport is an in-memory Transport bound to a unique loopback
// address on hub, used in tests and by cmd/plumcastd's local demo so
// neither needs a real network.
type loopTransport struct {
	hub     *loopHub
	address types.Address
	inbox   chan Envelope
	closed  chan struct{}
	once    sync.Once
}

// NewLoopTransport registers a new transport endpoint on hub under a
// freshly generated address.
func NewLoopTransport(hub Hub) Addressable {
	addr := types.Address("loop-" + uuid.NewString())
	inbox := make(chan Envelope, defaultQueueDepth)

	hub.mu.Lock()
	hub.routes[addr] = inbox
	hub.mu.Unlock()

	return &loopTransport{hub: hub, address: addr, inbox: inbox, closed: make(chan struct{})}
}

// Address reports the transport's own loopback address, for use as the
// Address field of NodeIds minted on top of it.
func (l *loopTransport) Address() types.Address { return l.address }

// Send implements Transport by placing msg directly on dest's inbox
// channel, non-blocking: a full destination queue drops the message,
// matching the "transient network" error class of spec.md §7.
func (l *loopTransport) Send(ctx context.Context, dest types.NodeId, msg types.RpcMessage) error {
	l.hub.mu.Lock()
	target, ok := l.hub.routes[dest.Address]
	l.hub.mu.Unlock()
	if !ok {
		return types.ErrNodeUnregistered
	}

	env := Envelope{From: l.address, To: dest, RPC: msg}
	select {
	case target <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errQueueFull
	}
}

// Listen implements Transport.
func (l *loopTransport) Listen() <-chan Envelope { return l.inbox }

// Close implements Transport, deregistering the address from the hub.
func (l *loopTransport) Close() error {
	l.once.Do(func() {
		l.hub.mu.Lock()
		delete(l.hub.routes, l.address)
		l.hub.mu.Unlock()
		close(l.closed)
		close(l.inbox)
	})
	return nil
}
