package transport

import (
	"context"
	"testing"

	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

func TestLoopTransportRoutesByAddress(t *testing.T) {
	hub := NewLoopHub()
	a := NewLoopTransport(hub)
	b := NewLoopTransport(hub)

	dest := types.NodeId{Address: b.Address(), LocalID: 1}
	msg := types.RpcMessage{Kind: types.RpcPlumtree, Sender: types.NodeId{Address: a.Address()}}

	if err := a.Send(context.Background(), dest, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	env := <-b.Listen()
	if env.From != a.Address() {
		t.Fatalf("env.From = %v, want %v", env.From, a.Address())
	}
	if env.To != dest {
		t.Fatalf("env.To = %v, want %v", env.To, dest)
	}
}

func TestLoopTransportSendToUnknownAddressErrors(t *testing.T) {
	hub := NewLoopHub()
	a := NewLoopTransport(hub)

	err := a.Send(context.Background(), types.NodeId{Address: "nowhere"}, types.RpcMessage{})
	if err != types.ErrNodeUnregistered {
		t.Fatalf("Send to unknown address: err = %v, want ErrNodeUnregistered", err)
	}
}

func TestLoopTransportCloseIsIdempotentAndDeregisters(t *testing.T) {
	hub := NewLoopHub()
	a := NewLoopTransport(hub)
	b := NewLoopTransport(hub)

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	err := b.Send(context.Background(), types.NodeId{Address: a.Address()}, types.RpcMessage{})
	if err != types.ErrNodeUnregistered {
		t.Fatalf("Send to closed transport: err = %v, want ErrNodeUnregistered", err)
	}
}

func TestProcedureForClassifiesFamilies(t *testing.T) {
	gossip := types.RpcMessage{Kind: types.RpcPlumtree, LowPriority: false}
	if got := procedureFor(gossip); got != ProcedurePlumtreeGossip {
		t.Fatalf("procedureFor(gossip) = %v, want ProcedurePlumtreeGossip", got)
	}

	ihave := types.RpcMessage{Kind: types.RpcPlumtree, LowPriority: true}
	if got := procedureFor(ihave); got != ProcedurePlumtreeIHave {
		t.Fatalf("procedureFor(ihave) = %v, want ProcedurePlumtreeIHave", got)
	}
}
