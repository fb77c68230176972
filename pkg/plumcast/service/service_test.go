package service

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/plumcast/pkg/plumcast/config"
	"github.com/jabolina/plumcast/pkg/plumcast/core"
	"github.com/jabolina/plumcast/pkg/plumcast/transport"
	"github.com/jabolina/plumcast/pkg/plumcast/types"
)

// TestMain checks that Close always stops the dispatch and tick loops a
// Service spawns via core.InvokerInstance (spec.md §5: a dropped node or
// service must not leave its driver goroutine running).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, hub transport.Hub, tickInterval time.Duration) (*Service, *core.Node) {
	t.Helper()
	lt := transport.NewLoopTransport(hub)
	svc := New(config.ServiceConfig{
		ListenAddress: string(lt.Address()),
		TickInterval:  tickInterval,
	}, lt, nil, nil)
	t.Cleanup(func() { svc.Close() })

	n := svc.NewNode(core.NodeOptions{})
	return svc, n
}

func TestServiceTwoNodesJoinAndBroadcast(t *testing.T) {
	hub := transport.NewLoopHub()
	_, a := newTestService(t, hub, 5*time.Millisecond)
	_, b := newTestService(t, hub, 5*time.Millisecond)

	b.Join(a.ID())

	deadline := time.Now().Add(2 * time.Second)
	for len(a.ActiveView()) == 0 || len(b.ActiveView()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("active views never converged: a=%v b=%v", a.ActiveView(), b.ActiveView())
		}
		// The service only dispatches and ticks; Poll drives the engines.
		a.Poll()
		b.Poll()
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := a.Broadcast(types.BytesPayload("hello")); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		a.Poll()
		msg, status, err := b.Poll()
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if status == core.PollReady {
			if string(msg.Content) != "hello" {
				t.Fatalf("delivered content = %q, want %q", msg.Content, "hello")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("broadcast was never delivered to b")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceJoinContactsParsesConfiguredPeers(t *testing.T) {
	hub := transport.NewLoopHub()
	_, a := newTestService(t, hub, time.Second)

	lt := transport.NewLoopTransport(hub)
	svc := New(config.ServiceConfig{
		ListenAddress: string(lt.Address()),
		Contacts:      []string{a.ID().String()},
	}, lt, nil, nil)
	t.Cleanup(func() { svc.Close() })

	b := svc.NewNode(core.NodeOptions{})
	if err := svc.JoinContacts(b); err != nil {
		t.Fatalf("JoinContacts: %v", err)
	}
}

func TestServiceJoinContactsRejectsMalformedContact(t *testing.T) {
	hub := transport.NewLoopHub()
	lt := transport.NewLoopTransport(hub)
	svc := New(config.ServiceConfig{
		ListenAddress: string(lt.Address()),
		Contacts:      []string{"not-a-valid-contact"},
	}, lt, nil, nil)
	t.Cleanup(func() { svc.Close() })

	n := svc.NewNode(core.NodeOptions{})
	if err := svc.JoinContacts(n); err == nil {
		t.Fatalf("expected an error for a malformed contact")
	}
}

func TestServiceLeaveRemovesNodeFromRegistry(t *testing.T) {
	svc, n := newTestService(t, transport.NewLoopHub(), time.Second)
	svc.Leave(n)

	if _, ok := svc.reg.GetLocalNodeOrDisconnect(n.ID().LocalID, types.NodeId{}); ok {
		t.Fatalf("node %s still registered after Leave", n.ID())
	}

	_, status, err := n.Poll()
	if status != core.PollTerminal {
		t.Fatalf("status = %v, want PollTerminal", status)
	}
	if err != nil {
		t.Fatalf("Poll after Leave: %v", err)
	}
}
